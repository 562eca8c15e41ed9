package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByTicketID(ctx context.Context, communityID, ticketID string) (*domain.Ticket, error)
	GetByExternalIssue(ctx context.Context, repo string, issueNumber int) (*domain.Ticket, error)
	ListByCommunity(ctx context.Context, communityID string, openOnly bool, limit, offset int) ([]domain.Ticket, error)
	Delete(ctx context.Context, communityID, ticketID string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `community_id, ticket_id, kind, title, priority, verification,
        upvotes, downvotes, shrugs, reporter_id, assignee_id, subscribers,
        external_issue_id, external_repo, jump_url, presentation_message_id, thread_id,
        tracker_channel_id, milestones, opened_at, closed_at, last_updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (community_id, ticket_id, kind, title, priority, verification,
            upvotes, downvotes, shrugs, reporter_id, assignee_id, subscribers,
            external_issue_id, external_repo, jump_url, presentation_message_id, thread_id,
            tracker_channel_id, milestones)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING opened_at, last_updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.CommunityID,
		ticket.TicketID,
		ticket.Kind,
		ticket.Title,
		ticket.Priority,
		ticket.Verification,
		ticket.Upvotes,
		ticket.Downvotes,
		ticket.Shrugs,
		ticket.ReporterID,
		ticket.AssigneeID,
		ticket.Subscribers,
		ticket.ExternalIssueID,
		ticket.ExternalRepo,
		ticket.JumpURL,
		ticket.PresentationMessageID,
		ticket.ThreadID,
		ticket.TrackerChannelID,
		ticket.Milestones,
	).Scan(&ticket.OpenedAt, &ticket.LastUpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET kind=$1, title=$2, priority=$3, verification=$4,
            upvotes=$5, downvotes=$6, shrugs=$7, assignee_id=$8, subscribers=$9,
            external_issue_id=$10, external_repo=$11, jump_url=$12,
            presentation_message_id=$13, thread_id=$14, milestones=$15,
            closed_at=$16, last_updated_at=NOW()
        WHERE community_id=$17 AND ticket_id=$18`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Kind,
		ticket.Title,
		ticket.Priority,
		ticket.Verification,
		ticket.Upvotes,
		ticket.Downvotes,
		ticket.Shrugs,
		ticket.AssigneeID,
		ticket.Subscribers,
		ticket.ExternalIssueID,
		ticket.ExternalRepo,
		ticket.JumpURL,
		ticket.PresentationMessageID,
		ticket.ThreadID,
		ticket.Milestones,
		ticket.ClosedAt,
		ticket.CommunityID,
		ticket.TicketID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("ticket", map[string]any{"ticket_id": ticket.TicketID})
	}
	return nil
}

func (r *ticketRepository) GetByTicketID(ctx context.Context, communityID, ticketID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE community_id=$1 AND ticket_id=$2`
	return r.fetchSingle(ctx, query, communityID, ticketID)
}

func (r *ticketRepository) GetByExternalIssue(ctx context.Context, repo string, issueNumber int) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE external_repo=$1 AND external_issue_id=$2`
	return r.fetchSingle(ctx, query, repo, issueNumber)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, args...), &ticket); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByCommunity(ctx context.Context, communityID string, openOnly bool, limit, offset int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE community_id=$1`
	if openOnly {
		query += ` AND priority <> -1`
	}
	query += ` ORDER BY last_updated_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, communityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Delete(ctx context.Context, communityID, ticketID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE community_id=$1 AND ticket_id=$2`, communityID, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.CommunityID,
		&ticket.TicketID,
		&ticket.Kind,
		&ticket.Title,
		&ticket.Priority,
		&ticket.Verification,
		&ticket.Upvotes,
		&ticket.Downvotes,
		&ticket.Shrugs,
		&ticket.ReporterID,
		&ticket.AssigneeID,
		&ticket.Subscribers,
		&ticket.ExternalIssueID,
		&ticket.ExternalRepo,
		&ticket.JumpURL,
		&ticket.PresentationMessageID,
		&ticket.ThreadID,
		&ticket.TrackerChannelID,
		&ticket.Milestones,
		&ticket.OpenedAt,
		&ticket.ClosedAt,
		&ticket.LastUpdatedAt,
	)
}
