package presentation

import (
	"context"

	"go.uber.org/zap"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
)

// Ref points at the rendered surface for a ticket. Persisted with the ticket
// so re-renders are idempotent.
type Ref struct {
	MessageID string
	ThreadID  string
	JumpURL   string
}

// Renderer is implemented by presentation collaborators. The engine only
// calls these hooks; it never formats output itself.
type Renderer interface {
	SetupPresentation(ctx context.Context, ticket *domain.Ticket) (*Ref, error)
	UpdatePresentation(ctx context.Context, ticket *domain.Ticket) error
	RemovePresentation(ctx context.Context, ticket *domain.Ticket) error
}

// LogRenderer records presentation hooks without a chat platform attached.
// Used in headless deployments and tests.
type LogRenderer struct {
	logger *zap.Logger
}

// NewLogRenderer constructs the renderer.
func NewLogRenderer(logger *zap.Logger) *LogRenderer {
	return &LogRenderer{logger: logger}
}

func (r *LogRenderer) SetupPresentation(ctx context.Context, ticket *domain.Ticket) (*Ref, error) {
	r.logger.Info("setup presentation", zap.String("ticket_id", ticket.TicketID))
	return &Ref{}, nil
}

func (r *LogRenderer) UpdatePresentation(ctx context.Context, ticket *domain.Ticket) error {
	r.logger.Debug("update presentation", zap.String("ticket_id", ticket.TicketID))
	return nil
}

func (r *LogRenderer) RemovePresentation(ctx context.Context, ticket *domain.Ticket) error {
	r.logger.Info("remove presentation", zap.String("ticket_id", ticket.TicketID))
	return nil
}
