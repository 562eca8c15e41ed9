package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// CommunityRepository persists per-community listener configuration.
type CommunityRepository interface {
	Create(ctx context.Context, community *domain.Community) error
	GetByID(ctx context.Context, communityID string) (*domain.Community, error)
	GetByRepo(ctx context.Context, repo string) (*domain.Community, error)
	Update(ctx context.Context, community *domain.Community) error
	AddIdentifier(ctx context.Context, ident domain.Identifier) error
	RemoveIdentifier(ctx context.Context, communityID, code string) error
}

type communityRepository struct {
	pool *pgxpool.Pool
}

// NewCommunityRepository instantiates repository.
func NewCommunityRepository(pool *pgxpool.Pool) CommunityRepository {
	return &communityRepository{pool: pool}
}

func (r *communityRepository) Create(ctx context.Context, community *domain.Community) error {
	const query = `
        INSERT INTO communities (id, tracker_channel_id, repo, vote_threshold, note_threshold)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		community.ID,
		community.TrackerChannelID,
		community.Repo,
		community.VoteThreshold,
		community.NoteThreshold,
	).Scan(&community.CreatedAt)
}

func (r *communityRepository) GetByID(ctx context.Context, communityID string) (*domain.Community, error) {
	const query = `
        SELECT id, tracker_channel_id, repo, vote_threshold, note_threshold, created_at
        FROM communities WHERE id=$1`
	var community domain.Community
	if err := r.pool.QueryRow(ctx, query, communityID).Scan(
		&community.ID,
		&community.TrackerChannelID,
		&community.Repo,
		&community.VoteThreshold,
		&community.NoteThreshold,
		&community.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("community", map[string]any{"community_id": communityID})
		}
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT community_id, code, kind FROM identifiers WHERE community_id=$1 ORDER BY code`,
		communityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ident domain.Identifier
		if err := rows.Scan(&ident.CommunityID, &ident.Code, &ident.Kind); err != nil {
			return nil, err
		}
		community.Identifiers = append(community.Identifiers, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *communityRepository) GetByRepo(ctx context.Context, repo string) (*domain.Community, error) {
	const query = `SELECT id FROM communities WHERE repo=$1`
	var communityID string
	if err := r.pool.QueryRow(ctx, query, repo).Scan(&communityID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("community", map[string]any{"repo": repo})
		}
		return nil, err
	}
	return r.GetByID(ctx, communityID)
}

func (r *communityRepository) Update(ctx context.Context, community *domain.Community) error {
	const query = `
        UPDATE communities SET tracker_channel_id=$1, repo=$2, vote_threshold=$3, note_threshold=$4
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		community.TrackerChannelID,
		community.Repo,
		community.VoteThreshold,
		community.NoteThreshold,
		community.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("community", map[string]any{"community_id": community.ID})
	}
	return nil
}

func (r *communityRepository) AddIdentifier(ctx context.Context, ident domain.Identifier) error {
	const query = `
        INSERT INTO identifiers (community_id, code, kind)
        VALUES ($1,$2,$3)
        ON CONFLICT (community_id, code) DO NOTHING`
	cmd, err := r.pool.Exec(ctx, query, ident.CommunityID, ident.Code, ident.Kind)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewConflict("identifier already registered", map[string]any{"code": ident.Code})
	}
	return nil
}

func (r *communityRepository) RemoveIdentifier(ctx context.Context, communityID, code string) error {
	cmd, err := r.pool.Exec(ctx,
		`DELETE FROM identifiers WHERE community_id=$1 AND code=$2`,
		communityID, code)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("identifier", map[string]any{"code": code})
	}
	return nil
}

// ManagerRepository persists moderation accounts.
type ManagerRepository interface {
	Upsert(ctx context.Context, manager *domain.Manager) error
	Get(ctx context.Context, communityID, userID string) (*domain.Manager, error)
	Remove(ctx context.Context, communityID, userID string) error
}

type managerRepository struct {
	pool *pgxpool.Pool
}

// NewManagerRepository instantiates repository.
func NewManagerRepository(pool *pgxpool.Pool) ManagerRepository {
	return &managerRepository{pool: pool}
}

func (r *managerRepository) Upsert(ctx context.Context, manager *domain.Manager) error {
	const query = `
        INSERT INTO managers (community_id, user_id, secret_hash)
        VALUES ($1,$2,$3)
        ON CONFLICT (community_id, user_id) DO UPDATE SET secret_hash=EXCLUDED.secret_hash
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		manager.CommunityID,
		manager.UserID,
		manager.SecretHash,
	).Scan(&manager.CreatedAt)
}

func (r *managerRepository) Get(ctx context.Context, communityID, userID string) (*domain.Manager, error) {
	const query = `
        SELECT community_id, user_id, secret_hash, created_at
        FROM managers WHERE community_id=$1 AND user_id=$2`
	var manager domain.Manager
	if err := r.pool.QueryRow(ctx, query, communityID, userID).Scan(
		&manager.CommunityID,
		&manager.UserID,
		&manager.SecretHash,
		&manager.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("manager", map[string]any{"user_id": userID})
		}
		return nil, err
	}
	return &manager, nil
}

func (r *managerRepository) Remove(ctx context.Context, communityID, userID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM managers WHERE community_id=$1 AND user_id=$2`,
		communityID, userID)
	return err
}
