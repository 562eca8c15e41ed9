package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
)

// QuestionnaireRepository persists per-identifier submission form fields.
type QuestionnaireRepository interface {
	Replace(ctx context.Context, questionnaire *domain.Questionnaire) error
	Get(ctx context.Context, communityID, identifier string) (*domain.Questionnaire, error)
	Delete(ctx context.Context, communityID, identifier string) error
}

type questionnaireRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionnaireRepository instantiates repository.
func NewQuestionnaireRepository(pool *pgxpool.Pool) QuestionnaireRepository {
	return &questionnaireRepository{pool: pool}
}

func (r *questionnaireRepository) Replace(ctx context.Context, questionnaire *domain.Questionnaire) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM questionnaires WHERE community_id=$1 AND identifier=$2`,
		questionnaire.CommunityID, questionnaire.Identifier); err != nil {
		return err
	}
	for _, field := range questionnaire.Fields {
		if _, err := tx.Exec(ctx, `
            INSERT INTO questionnaires (community_id, identifier, position, label, placeholder, style, required)
            VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			questionnaire.CommunityID,
			questionnaire.Identifier,
			field.Position,
			field.Label,
			field.Placeholder,
			field.Style,
			field.Required,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *questionnaireRepository) Get(ctx context.Context, communityID, identifier string) (*domain.Questionnaire, error) {
	const query = `
        SELECT position, label, placeholder, style, required
        FROM questionnaires WHERE community_id=$1 AND identifier=$2
        ORDER BY position`
	rows, err := r.pool.Query(ctx, query, communityID, identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questionnaire := &domain.Questionnaire{CommunityID: communityID, Identifier: identifier}
	for rows.Next() {
		var field domain.QuestionnaireField
		if err := rows.Scan(&field.Position, &field.Label, &field.Placeholder, &field.Style, &field.Required); err != nil {
			return nil, err
		}
		questionnaire.Fields = append(questionnaire.Fields, field)
	}
	return questionnaire, rows.Err()
}

func (r *questionnaireRepository) Delete(ctx context.Context, communityID, identifier string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM questionnaires WHERE community_id=$1 AND identifier=$2`,
		communityID, identifier)
	return err
}
