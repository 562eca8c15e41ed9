package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/CrawlerEmporium/issuecrawler/internal/api/dto"
	"github.com/CrawlerEmporium/issuecrawler/internal/service"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// WebhookHandler ingests external tracker events.
type WebhookHandler struct {
	webhooks *service.WebhookService
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(webhooks *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Github POST /webhooks/github. The event name comes from the
// X-GitHub-Event header per the webhook delivery contract.
func (h *WebhookHandler) Github(c *fiber.Ctx) error {
	eventName := c.Get("X-GitHub-Event")
	var payload dto.GithubWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if payload.Issue == nil || payload.Repository == nil {
		return c.SendStatus(http.StatusNoContent)
	}

	ev := service.IssueEvent{
		Action:      payload.Action,
		Repo:        payload.Repository.FullName,
		IssueNumber: payload.Issue.Number,
		Title:       payload.Issue.Title,
	}
	for _, label := range payload.Issue.Labels {
		ev.Labels = append(ev.Labels, label.Name)
	}
	if payload.Label != nil {
		ev.Label = payload.Label.Name
	}
	if payload.Sender != nil {
		ev.Sender = payload.Sender.Login
		ev.SenderIsBot = payload.Sender.Type == "Bot"
	}

	var err error
	switch eventName {
	case "issues":
		err = h.webhooks.HandleIssue(c.UserContext(), ev)
	case "issue_comment":
		if payload.Action == "created" && payload.Comment != nil {
			ev.CommentBody = payload.Comment.Body
			if payload.Comment.User != nil {
				ev.Sender = payload.Comment.User.Login
				ev.SenderIsBot = payload.Comment.User.Type == "Bot"
			}
			err = h.webhooks.HandleComment(c.UserContext(), ev)
		}
	}
	if err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
