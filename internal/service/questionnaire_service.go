package service

import (
	"context"
	"fmt"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/internal/repository"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// QuestionnaireService manages per-identifier submission form fields.
type QuestionnaireService struct {
	questionnaires repository.QuestionnaireRepository
	communities    CommunityProvider
}

// NewQuestionnaireService constructs the service.
func NewQuestionnaireService(questionnaires repository.QuestionnaireRepository, communities CommunityProvider) *QuestionnaireService {
	return &QuestionnaireService{questionnaires: questionnaires, communities: communities}
}

// Replace validates and stores the full field list for an identifier.
func (s *QuestionnaireService) Replace(ctx context.Context, communityID, identifier string, fields []domain.QuestionnaireField) (*domain.Questionnaire, error) {
	community, err := s.communities.Get(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if _, ok := community.FindIdentifier(identifier); !ok {
		return nil, util.NewNotFound("identifier", map[string]any{"identifier": identifier})
	}
	if len(fields) > domain.MaxQuestionnaireFields {
		return nil, util.NewValidationError(
			fmt.Sprintf("at most %d fields allowed", domain.MaxQuestionnaireFields), nil)
	}
	seen := map[int]struct{}{}
	for _, field := range fields {
		if field.Position < 1 || field.Position > domain.MaxQuestionnaireFields {
			return nil, util.NewValidationError("field position out of range", map[string]any{"position": field.Position})
		}
		if _, dup := seen[field.Position]; dup {
			return nil, util.NewValidationError("duplicate field position", map[string]any{"position": field.Position})
		}
		seen[field.Position] = struct{}{}
		if field.Label == "" {
			return nil, util.NewValidationError("field label required", map[string]any{"position": field.Position})
		}
		if field.Style != domain.FieldStyleShort && field.Style != domain.FieldStyleParagraph {
			return nil, util.NewValidationError("unknown field style", map[string]any{"style": field.Style})
		}
	}

	questionnaire := &domain.Questionnaire{
		CommunityID: communityID,
		Identifier:  identifier,
		Fields:      fields,
	}
	if err := s.questionnaires.Replace(ctx, questionnaire); err != nil {
		return nil, err
	}
	return questionnaire, nil
}

// Get returns the submission form fields for an identifier.
func (s *QuestionnaireService) Get(ctx context.Context, communityID, identifier string) (*domain.Questionnaire, error) {
	return s.questionnaires.Get(ctx, communityID, identifier)
}

// Delete clears the submission form for an identifier.
func (s *QuestionnaireService) Delete(ctx context.Context, communityID, identifier string) error {
	return s.questionnaires.Delete(ctx, communityID, identifier)
}
