package tracker

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// resolutionAllowList bounds which bracket-tagged tokens in a resolution
// comment become external labels.
var resolutionAllowList = map[string]struct{}{
	"duplicate":         {},
	"wontfix":           {},
	"invalid":           {},
	"fixed":             {},
	"works-as-intended": {},
	"cannot-reproduce":  {},
	"stale":             {},
	"by-design":         {},
}

// Mirror keeps a ticket's external issue in sync with internal state. The
// internal record is the source of truth; a failed call here is logged by the
// caller and never rolled back.
type Mirror struct {
	client Client
	logger *zap.Logger
}

// NewMirror constructs the mirror.
func NewMirror(client Client, logger *zap.Logger) *Mirror {
	return &Mirror{client: client, logger: logger}
}

// OpenResult reports the outcome of opening a mirrored issue.
type OpenResult struct {
	IssueNumber int
	Repo        string
	// MirroredAttachmentIDs lists attachments folded into the issue body.
	MirroredAttachmentIDs []string
}

// Open creates the mirrored external issue for a ticket. Returns an
// INVALID_STATE error when the ticket is already mirrored.
func (m *Mirror) Open(ctx context.Context, ticket *domain.Ticket, community *domain.Community, attachments []domain.Attachment) (*OpenResult, error) {
	if ticket.IsMirrored() {
		return nil, util.NewInvalidState("ticket already mirrored", map[string]any{"ticket_id": ticket.TicketID})
	}
	if community.Repo == nil || *community.Repo == "" {
		return nil, util.NewInvalidState("community has no tracker repo configured", nil)
	}
	repo := *community.Repo

	body, mirroredIDs := buildIssueBody(ticket, community, attachments)
	title := fmt.Sprintf("%s: %s", ticket.TicketID, ticket.Title)

	number, err := m.client.CreateIssue(ctx, repo, title, body, DeriveLabels(ticket))
	if err != nil {
		return nil, util.NewExternalSync("create", err)
	}
	return &OpenResult{IssueNumber: number, Repo: repo, MirroredAttachmentIDs: mirroredIDs}, nil
}

// Relabel pushes a full label replace derived from current ticket state.
func (m *Mirror) Relabel(ctx context.Context, ticket *domain.Ticket, extra ...string) error {
	if !ticket.IsMirrored() {
		return nil
	}
	labels := append(DeriveLabels(ticket), extra...)
	if err := m.client.EditLabels(ctx, *ticket.ExternalRepo, *ticket.ExternalIssueID, labels); err != nil {
		return util.NewExternalSync("relabel", err)
	}
	return nil
}

// Retitle renames the external issue to "<idPrefix><newTitle>".
func (m *Mirror) Retitle(ctx context.Context, ticket *domain.Ticket, newTitle, idPrefix string) error {
	if !ticket.IsMirrored() {
		return nil
	}
	if err := m.client.EditTitle(ctx, *ticket.ExternalRepo, *ticket.ExternalIssueID, idPrefix+newTitle); err != nil {
		return util.NewExternalSync("retitle", err)
	}
	return nil
}

// RefreshBody rewrites the issue body so the vote tally stays current.
func (m *Mirror) RefreshBody(ctx context.Context, ticket *domain.Ticket, community *domain.Community, attachments []domain.Attachment) error {
	if !ticket.IsMirrored() {
		return nil
	}
	body, _ := buildIssueBody(ticket, community, attachments)
	if err := m.client.EditBody(ctx, *ticket.ExternalRepo, *ticket.ExternalIssueID, body); err != nil {
		return util.NewExternalSync("editbody", err)
	}
	return nil
}

// Comment appends a comment to the external issue.
func (m *Mirror) Comment(ctx context.Context, ticket *domain.Ticket, body string) error {
	if !ticket.IsMirrored() {
		return nil
	}
	if err := m.client.AddComment(ctx, *ticket.ExternalRepo, *ticket.ExternalIssueID, body); err != nil {
		return util.NewExternalSync("comment", err)
	}
	return nil
}

// Close mirrors a resolution: applies resolution labels derived from the
// comment, posts the comment, and closes the issue.
func (m *Mirror) Close(ctx context.Context, ticket *domain.Ticket, comment string) error {
	if !ticket.IsMirrored() {
		return nil
	}
	repo, issue := *ticket.ExternalRepo, *ticket.ExternalIssueID

	if extra := ResolutionLabels(comment); len(extra) > 0 {
		labels := append(DeriveLabels(ticket), extra...)
		if err := m.client.EditLabels(ctx, repo, issue, labels); err != nil {
			return util.NewExternalSync("relabel", err)
		}
	}
	if comment != "" {
		if err := m.client.AddComment(ctx, repo, issue, comment); err != nil {
			return util.NewExternalSync("comment", err)
		}
	}
	if err := m.client.CloseIssue(ctx, repo, issue); err != nil {
		return util.NewExternalSync("close", err)
	}
	return nil
}

// Reopen mirrors an unresolve, optionally with a comment.
func (m *Mirror) Reopen(ctx context.Context, ticket *domain.Ticket, comment string) error {
	if !ticket.IsMirrored() {
		return nil
	}
	repo, issue := *ticket.ExternalRepo, *ticket.ExternalIssueID
	if err := m.client.OpenIssue(ctx, repo, issue); err != nil {
		return util.NewExternalSync("reopen", err)
	}
	if comment != "" {
		if err := m.client.AddComment(ctx, repo, issue, comment); err != nil {
			return util.NewExternalSync("comment", err)
		}
	}
	return nil
}

// DeriveLabels computes the full external label set from ticket state:
// priority label, kind tag, and vote-tier tags.
func DeriveLabels(ticket *domain.Ticket) []string {
	labels := []string{ticket.KindTag()}
	if label, ok := domain.PriorityLabels[ticket.Priority]; ok {
		labels = append(labels, label)
	}
	if ticket.IsVotable() {
		score := ticket.Score()
		if score >= 15 {
			labels = append(labels, "+15")
		} else if score >= 10 {
			labels = append(labels, "+10")
		}
	}
	return labels
}

// ResolutionLabels extracts bracket-tagged tokens from a resolution comment,
// keeping only allow-listed ones. A comment starting with "dupe" also yields
// the duplicate label without brackets.
func ResolutionLabels(comment string) []string {
	var labels []string
	seen := map[string]struct{}{}
	add := func(label string) {
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}

	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(comment)), "dupe") {
		add("duplicate")
	}

	rest := comment
	for {
		open := strings.Index(rest, "[")
		if open < 0 {
			break
		}
		closing := strings.Index(rest[open:], "]")
		if closing < 0 {
			break
		}
		token := strings.ToLower(strings.TrimSpace(rest[open+1 : open+closing]))
		if _, ok := resolutionAllowList[token]; ok {
			add(token)
		}
		rest = rest[open+closing+1:]
	}
	return labels
}

// buildIssueBody renders the issue description. Bug tickets fold every
// un-mirrored attachment in as a quoted block; other kinds carry the vote
// tally and at most the community's note-threshold of note-like follow-ups.
func buildIssueBody(ticket *domain.Ticket, community *domain.Community, attachments []domain.Attachment) (string, []string) {
	var sb strings.Builder
	var mirroredIDs []string

	if len(attachments) > 0 {
		sb.WriteString(attachments[0].Message)
		mirroredIDs = append(mirroredIDs, attachments[0].ID)
	}
	sb.WriteString(fmt.Sprintf("\n\nReported by %s in %s", ticket.ReporterID, ticket.TicketID))

	if ticket.Kind == domain.KindBug {
		for _, attachment := range attachments[min(1, len(attachments)):] {
			if attachment.Mirrored {
				continue
			}
			sb.WriteString("\n\n> ")
			sb.WriteString(strings.ReplaceAll(attachment.Message, "\n", "\n> "))
			sb.WriteString(fmt.Sprintf("\n> — %s", attachment.AuthorID))
			mirroredIDs = append(mirroredIDs, attachment.ID)
		}
		return sb.String(), mirroredIDs
	}

	sb.WriteString(fmt.Sprintf("\n\nVotes: +%d / -%d / %d indifferent",
		ticket.Upvotes, ticket.Downvotes, ticket.Shrugs))

	copied := 0
	for _, attachment := range attachments[min(1, len(attachments)):] {
		if copied >= community.NoteThreshold {
			break
		}
		// Vote attachments already feed the tally line above.
		if !attachment.VerificationCode.IsNoteLike() {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n\n%s: %s", attachment.AuthorID, attachment.Message))
		mirroredIDs = append(mirroredIDs, attachment.ID)
		copied++
	}
	return sb.String(), mirroredIDs
}
