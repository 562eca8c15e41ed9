package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
)

// AttachmentRepository persists the append-only annotation log. The only
// removal path is the implicit retraction performed by vote casting.
type AttachmentRepository interface {
	Append(ctx context.Context, attachment *domain.Attachment) error
	// ListByTicket returns the log in insertion order.
	ListByTicket(ctx context.Context, communityID, ticketID string) ([]domain.Attachment, error)
	Delete(ctx context.Context, id string) error
	MarkMirrored(ctx context.Context, ids []string) error
	DeleteByTicket(ctx context.Context, communityID, ticketID string) error
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Append(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (community_id, ticket_id, author_id, message, verification_code, mirrored)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		attachment.CommunityID,
		attachment.TicketID,
		attachment.AuthorID,
		attachment.Message,
		attachment.VerificationCode,
		attachment.Mirrored,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, communityID, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, community_id, ticket_id, author_id, message, verification_code, mirrored, created_at
        FROM attachments WHERE community_id=$1 AND ticket_id=$2
        ORDER BY seq`
	rows, err := r.pool.Query(ctx, query, communityID, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.CommunityID,
			&attachment.TicketID,
			&attachment.AuthorID,
			&attachment.Message,
			&attachment.VerificationCode,
			&attachment.Mirrored,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM attachments WHERE id=$1`, id)
	return err
}

func (r *attachmentRepository) MarkMirrored(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `UPDATE attachments SET mirrored=TRUE WHERE id = ANY($1)`, ids)
	return err
}

func (r *attachmentRepository) DeleteByTicket(ctx context.Context, communityID, ticketID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM attachments WHERE community_id=$1 AND ticket_id=$2`,
		communityID, ticketID)
	return err
}
