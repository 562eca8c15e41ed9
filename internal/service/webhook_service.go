package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/internal/repository"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// untrackedLabel marks external issues the engine must never import or sync.
const untrackedLabel = "enhancement"

// IssueEvent is a normalized external tracker issue event.
type IssueEvent struct {
	Action      string
	Repo        string
	IssueNumber int
	Title       string
	Label       string
	Labels      []string
	CommentBody string
	Sender      string
	SenderIsBot bool
}

// WebhookService applies external tracker events back onto tickets. Inbound
// changes never echo back out to the tracker.
type WebhookService struct {
	tickets     *TicketService
	ticketRepo  repository.TicketRepository
	communities repository.CommunityRepository
	logger      *zap.Logger
}

// NewWebhookService constructs the service.
func NewWebhookService(tickets *TicketService, ticketRepo repository.TicketRepository, communities repository.CommunityRepository, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		tickets:     tickets,
		ticketRepo:  ticketRepo,
		communities: communities,
		logger:      logger,
	}
}

// HandleIssue processes an issues.* event.
func (s *WebhookService) HandleIssue(ctx context.Context, ev IssueEvent) error {
	if hasLabel(ev.Labels, untrackedLabel) || ev.Label == untrackedLabel {
		return nil
	}

	switch ev.Action {
	case "opened":
		return s.importIssue(ctx, ev)
	case "closed":
		return s.closeFromRemote(ctx, ev)
	case "reopened":
		return s.reopenFromRemote(ctx, ev)
	case "labeled", "unlabeled":
		return s.syncPriorityLabel(ctx, ev)
	default:
		s.logger.Debug("ignoring issue event", zap.String("action", ev.Action))
		return nil
	}
}

// HandleComment processes an issue_comment.created event. Comments from the
// engine's own tracker account are skipped to avoid echo loops.
func (s *WebhookService) HandleComment(ctx context.Context, ev IssueEvent) error {
	if ev.SenderIsBot || ev.CommentBody == "" {
		return nil
	}
	ticket, err := s.ticketRepo.GetByExternalIssue(ctx, ev.Repo, ev.IssueNumber)
	if err != nil {
		if util.HasCode(err, util.CodeNotFound) {
			return nil
		}
		return err
	}
	return s.tickets.AddNote(ctx, ticket.CommunityID, ticket.TicketID, ev.Sender, ev.CommentBody, false)
}

// importIssue opens a ticket for an issue created directly on the tracker.
// The kind comes from the issue's labels; the identifier is the community's
// first code of that kind.
func (s *WebhookService) importIssue(ctx context.Context, ev IssueEvent) error {
	if ev.SenderIsBot {
		// Our own mirror creation coming back around.
		return nil
	}
	community, err := s.communities.GetByRepo(ctx, ev.Repo)
	if err != nil {
		if util.HasCode(err, util.CodeNotFound) {
			return nil
		}
		return err
	}

	kind := domain.KindFeatureRequest
	if hasLabel(ev.Labels, "bug") {
		kind = domain.KindBug
	} else if hasLabel(ev.Labels, "support") {
		kind = domain.KindSupport
	}
	var code string
	for _, ident := range community.Identifiers {
		if ident.Kind == kind {
			code = ident.Code
			break
		}
	}
	if code == "" {
		s.logger.Info("no identifier for imported issue kind",
			zap.String("repo", ev.Repo), zap.String("kind", string(kind)))
		return nil
	}

	repo := ev.Repo
	number := ev.IssueNumber
	_, err = s.tickets.Create(ctx, TicketCreateInput{
		CommunityID:     community.ID,
		Identifier:      code,
		ReporterID:      ev.Sender,
		Title:           ev.Title,
		FirstAttachment: fmt.Sprintf("Imported from %s#%d", repo, number),
		ExternalRepo:    &repo,
		ExternalIssueID: &number,
	})
	return err
}

func (s *WebhookService) closeFromRemote(ctx context.Context, ev IssueEvent) error {
	ticket, err := s.ticketRepo.GetByExternalIssue(ctx, ev.Repo, ev.IssueNumber)
	if err != nil {
		if util.HasCode(err, util.CodeNotFound) {
			return nil
		}
		return err
	}
	comment := fmt.Sprintf("Closed on %s by %s", ev.Repo, ev.Sender)
	err = s.tickets.Resolve(ctx, ticket.CommunityID, ticket.TicketID, ev.Sender, comment, ResolveOptions{
		CloseExternal:       false,
		IgnoreAlreadyClosed: true,
	})
	if util.HasCode(err, util.CodeInvalidState) {
		return nil
	}
	return err
}

func (s *WebhookService) reopenFromRemote(ctx context.Context, ev IssueEvent) error {
	ticket, err := s.ticketRepo.GetByExternalIssue(ctx, ev.Repo, ev.IssueNumber)
	if err != nil {
		if util.HasCode(err, util.CodeNotFound) {
			return nil
		}
		return err
	}
	comment := fmt.Sprintf("Reopened on %s by %s", ev.Repo, ev.Sender)
	err = s.tickets.Unresolve(ctx, ticket.CommunityID, ticket.TicketID, ev.Sender, comment, false)
	if util.HasCode(err, util.CodeInvalidState) {
		return nil
	}
	return err
}

// syncPriorityLabel mirrors priority label edits made on the tracker back onto
// the ticket. Removing the current priority label resets to the default.
func (s *WebhookService) syncPriorityLabel(ctx context.Context, ev IssueEvent) error {
	priority, ok := priorityForLabel(ev.Label)
	if !ok {
		return nil
	}
	ticket, err := s.ticketRepo.GetByExternalIssue(ctx, ev.Repo, ev.IssueNumber)
	if err != nil {
		if util.HasCode(err, util.CodeNotFound) {
			return nil
		}
		return err
	}
	if !ticket.IsOpen() {
		return nil
	}

	switch ev.Action {
	case "labeled":
		if ticket.Priority == priority {
			return nil
		}
		ticket.Priority = priority
	case "unlabeled":
		if ticket.Priority != priority {
			return nil
		}
		ticket.Priority = domain.PriorityPending
	}
	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return err
	}
	s.tickets.updatePresentation(ctx, ticket)
	return nil
}

func priorityForLabel(label string) (int, bool) {
	for priority, name := range domain.PriorityLabels {
		if name == label {
			return priority, true
		}
	}
	return 0, false
}

func hasLabel(labels []string, name string) bool {
	for _, label := range labels {
		if label == name {
			return true
		}
	}
	return false
}
