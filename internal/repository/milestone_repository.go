package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// MilestoneRepository persists milestone records.
type MilestoneRepository interface {
	Create(ctx context.Context, milestone *domain.Milestone) error
	GetByID(ctx context.Context, communityID, milestoneID string) (*domain.Milestone, error)
	Update(ctx context.Context, milestone *domain.Milestone) error
	Delete(ctx context.Context, communityID, milestoneID string) error
	ListByCommunity(ctx context.Context, communityID string) ([]domain.Milestone, error)
}

type milestoneRepository struct {
	pool *pgxpool.Pool
}

// NewMilestoneRepository instantiates repository.
func NewMilestoneRepository(pool *pgxpool.Pool) MilestoneRepository {
	return &milestoneRepository{pool: pool}
}

func (r *milestoneRepository) Create(ctx context.Context, milestone *domain.Milestone) error {
	const query = `
        INSERT INTO milestones (milestone_id, community_id, title, description, closed, ticket_ids)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		milestone.MilestoneID,
		milestone.CommunityID,
		milestone.Title,
		milestone.Description,
		milestone.Closed,
		milestone.TicketIDs,
	).Scan(&milestone.CreatedAt)
}

func (r *milestoneRepository) GetByID(ctx context.Context, communityID, milestoneID string) (*domain.Milestone, error) {
	const query = `
        SELECT milestone_id, community_id, title, description, closed, ticket_ids, created_at
        FROM milestones WHERE community_id=$1 AND milestone_id=$2`
	var milestone domain.Milestone
	if err := r.pool.QueryRow(ctx, query, communityID, milestoneID).Scan(
		&milestone.MilestoneID,
		&milestone.CommunityID,
		&milestone.Title,
		&milestone.Description,
		&milestone.Closed,
		&milestone.TicketIDs,
		&milestone.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("milestone", map[string]any{"milestone_id": milestoneID})
		}
		return nil, err
	}
	return &milestone, nil
}

func (r *milestoneRepository) Update(ctx context.Context, milestone *domain.Milestone) error {
	const query = `
        UPDATE milestones SET title=$1, description=$2, closed=$3, ticket_ids=$4
        WHERE community_id=$5 AND milestone_id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		milestone.Title,
		milestone.Description,
		milestone.Closed,
		milestone.TicketIDs,
		milestone.CommunityID,
		milestone.MilestoneID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("milestone", map[string]any{"milestone_id": milestone.MilestoneID})
	}
	return nil
}

func (r *milestoneRepository) Delete(ctx context.Context, communityID, milestoneID string) error {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM milestones WHERE community_id=$1 AND milestone_id=$2`,
		communityID, milestoneID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("milestone", map[string]any{"milestone_id": milestoneID})
	}
	return nil
}

func (r *milestoneRepository) ListByCommunity(ctx context.Context, communityID string) ([]domain.Milestone, error) {
	const query = `
        SELECT milestone_id, community_id, title, description, closed, ticket_ids, created_at
        FROM milestones WHERE community_id=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Milestone
	for rows.Next() {
		var milestone domain.Milestone
		if err := rows.Scan(
			&milestone.MilestoneID,
			&milestone.CommunityID,
			&milestone.Title,
			&milestone.Description,
			&milestone.Closed,
			&milestone.TicketIDs,
			&milestone.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, milestone)
	}
	return result, rows.Err()
}
