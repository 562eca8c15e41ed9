package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PendingReleaseRepository queues tickets resolved as patch-pending until a
// release drains them.
type PendingReleaseRepository interface {
	Enqueue(ctx context.Context, communityID, ticketID string) error
	List(ctx context.Context, communityID string) ([]string, error)
	Clear(ctx context.Context, communityID string) error
}

type pendingReleaseRepository struct {
	pool *pgxpool.Pool
}

// NewPendingReleaseRepository instantiates repository.
func NewPendingReleaseRepository(pool *pgxpool.Pool) PendingReleaseRepository {
	return &pendingReleaseRepository{pool: pool}
}

func (r *pendingReleaseRepository) Enqueue(ctx context.Context, communityID, ticketID string) error {
	const query = `
        INSERT INTO pending_releases (community_id, ticket_id)
        VALUES ($1,$2)
        ON CONFLICT (community_id, ticket_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, communityID, ticketID)
	return err
}

func (r *pendingReleaseRepository) List(ctx context.Context, communityID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT ticket_id FROM pending_releases WHERE community_id=$1 ORDER BY queued_at`,
		communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var ticketID string
		if err := rows.Scan(&ticketID); err != nil {
			return nil, err
		}
		result = append(result, ticketID)
	}
	return result, rows.Err()
}

func (r *pendingReleaseRepository) Clear(ctx context.Context, communityID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pending_releases WHERE community_id=$1`, communityID)
	return err
}
