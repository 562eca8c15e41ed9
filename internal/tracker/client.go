package tracker

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/CrawlerEmporium/issuecrawler/internal/config"
)

// Client is the external tracker contract. All operations are keyed by
// (repo, issue number).
type Client interface {
	CreateIssue(ctx context.Context, repo, title, body string, labels []string) (int, error)
	AddComment(ctx context.Context, repo string, issue int, body string) error
	EditLabels(ctx context.Context, repo string, issue int, labels []string) error
	EditBody(ctx context.Context, repo string, issue int, body string) error
	EditTitle(ctx context.Context, repo string, issue int, title string) error
	CloseIssue(ctx context.Context, repo string, issue int) error
	OpenIssue(ctx context.Context, repo string, issue int) error
}

type githubClient struct {
	client *resty.Client
}

// NewGitHubClient builds a Client against the GitHub REST API.
func NewGitHubClient(cfg config.TrackerConfig) Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.Token).
		SetTimeout(cfg.Timeout()).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("User-Agent", cfg.UserAgent)

	return &githubClient{client: client}
}

type issueResponse struct {
	Number int `json:"number"`
}

func (g *githubClient) CreateIssue(ctx context.Context, repo, title, body string, labels []string) (int, error) {
	var issue issueResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"title": title, "body": body, "labels": labels}).
		SetResult(&issue).
		Post(fmt.Sprintf("/repos/%s/issues", repo))
	if err != nil {
		return 0, fmt.Errorf("create issue: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return 0, fmt.Errorf("create issue: tracker returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return issue.Number, nil
}

func (g *githubClient) AddComment(ctx context.Context, repo string, issue int, body string) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"body": body}).
		Post(fmt.Sprintf("/repos/%s/issues/%d/comments", repo, issue))
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		return fmt.Errorf("add comment: tracker returned status %d", resp.StatusCode())
	}
	return nil
}

func (g *githubClient) EditLabels(ctx context.Context, repo string, issue int, labels []string) error {
	// Full replace, not incremental, so repeated calls converge.
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"labels": labels}).
		Put(fmt.Sprintf("/repos/%s/issues/%d/labels", repo, issue))
	if err != nil {
		return fmt.Errorf("edit labels: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("edit labels: tracker returned status %d", resp.StatusCode())
	}
	return nil
}

func (g *githubClient) EditBody(ctx context.Context, repo string, issue int, body string) error {
	return g.patchIssue(ctx, repo, issue, map[string]any{"body": body})
}

func (g *githubClient) EditTitle(ctx context.Context, repo string, issue int, title string) error {
	return g.patchIssue(ctx, repo, issue, map[string]any{"title": title})
}

func (g *githubClient) CloseIssue(ctx context.Context, repo string, issue int) error {
	return g.patchIssue(ctx, repo, issue, map[string]any{"state": "closed"})
}

func (g *githubClient) OpenIssue(ctx context.Context, repo string, issue int) error {
	return g.patchIssue(ctx, repo, issue, map[string]any{"state": "open"})
}

func (g *githubClient) patchIssue(ctx context.Context, repo string, issue int, body map[string]any) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(body).
		Patch(fmt.Sprintf("/repos/%s/issues/%d", repo, issue))
	if err != nil {
		return fmt.Errorf("edit issue: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("edit issue: tracker returned status %d", resp.StatusCode())
	}
	return nil
}
