package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// CounterRepository issues monotonically increasing per-(identifier, community)
// sequence numbers for ticket ids.
type CounterRepository interface {
	// NextSequence atomically increments and returns the counter for the
	// pair, starting at 1. Returns NOT_FOUND when no counter record exists
	// for the pair.
	NextSequence(ctx context.Context, communityID, identifier string) (int64, error)
	// Seed creates the counter record at 0 when an identifier is registered.
	Seed(ctx context.Context, communityID, identifier string) error
	Remove(ctx context.Context, communityID, identifier string) error
}

type counterRepository struct {
	pool *pgxpool.Pool
}

// NewCounterRepository instantiates repository.
func NewCounterRepository(pool *pgxpool.Pool) CounterRepository {
	return &counterRepository{pool: pool}
}

func (r *counterRepository) NextSequence(ctx context.Context, communityID, identifier string) (int64, error) {
	// Single store-level increment-and-read; no read-then-write in
	// application code, so concurrent callers cannot lose updates.
	const query = `
        UPDATE ticket_counters SET value = value + 1
        WHERE community_id=$1 AND identifier=$2
        RETURNING value`
	var value int64
	if err := r.pool.QueryRow(ctx, query, communityID, identifier).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, util.NewNotFound("identifier", map[string]any{
				"community_id": communityID,
				"identifier":   identifier,
			})
		}
		return 0, err
	}
	return value, nil
}

func (r *counterRepository) Seed(ctx context.Context, communityID, identifier string) error {
	const query = `
        INSERT INTO ticket_counters (community_id, identifier, value)
        VALUES ($1,$2,0)
        ON CONFLICT (community_id, identifier) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, communityID, identifier)
	return err
}

func (r *counterRepository) Remove(ctx context.Context, communityID, identifier string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM ticket_counters WHERE community_id=$1 AND identifier=$2`,
		communityID, identifier)
	return err
}
