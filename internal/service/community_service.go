package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/CrawlerEmporium/issuecrawler/internal/auth"
	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/internal/repository"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// CacheInvalidator drops a cached community config entry after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, communityID string)
}

// CommunityDependencies bundles collaborators for CommunityService.
type CommunityDependencies struct {
	CommunityRepo     repository.CommunityRepository
	CounterRepo       repository.CounterRepository
	QuestionnaireRepo repository.QuestionnaireRepository
	ManagerRepo       repository.ManagerRepository
	Cache             CacheInvalidator
	Tokens            *auth.TokenManager
	BcryptCost        int
	ConfirmWindow     time.Duration
	Logger            *zap.Logger
}

// CommunityService manages community registration, identifier codes and
// manager accounts.
type CommunityService struct {
	deps CommunityDependencies
}

// NewCommunityService constructs the service.
func NewCommunityService(deps CommunityDependencies) *CommunityService {
	if deps.ConfirmWindow <= 0 {
		deps.ConfirmWindow = 60 * time.Second
	}
	return &CommunityService{deps: deps}
}

// Register creates a community with default thresholds.
func (s *CommunityService) Register(ctx context.Context, communityID, trackerChannelID string) (*domain.Community, error) {
	if communityID == "" || trackerChannelID == "" {
		return nil, util.NewValidationError("community id and tracker channel required", nil)
	}
	community := &domain.Community{
		ID:               communityID,
		TrackerChannelID: trackerChannelID,
		VoteThreshold:    domain.DefaultVoteThreshold,
		NoteThreshold:    domain.DefaultNoteThreshold,
	}
	if err := s.deps.CommunityRepo.Create(ctx, community); err != nil {
		return nil, err
	}
	return community, nil
}

// Get loads a community with its identifiers.
func (s *CommunityService) Get(ctx context.Context, communityID string) (*domain.Community, error) {
	return s.deps.CommunityRepo.GetByID(ctx, communityID)
}

// UpdateSettings rewrites mutable community configuration and drops the
// cached copy.
func (s *CommunityService) UpdateSettings(ctx context.Context, community *domain.Community) error {
	if community.VoteThreshold < 1 || community.NoteThreshold < 1 {
		return util.NewValidationError("thresholds must be positive", nil)
	}
	if err := s.deps.CommunityRepo.Update(ctx, community); err != nil {
		return err
	}
	s.invalidate(ctx, community.ID)
	return nil
}

// AddIdentifier registers a reporting code and seeds its sequence counter so
// the first ticket allocates id 1.
func (s *CommunityService) AddIdentifier(ctx context.Context, communityID, code string, kind domain.TicketKind) (*domain.Identifier, error) {
	if code == "" {
		return nil, util.NewValidationError("identifier code required", nil)
	}
	ident := domain.Identifier{CommunityID: communityID, Code: code, Kind: kind}
	if err := s.deps.CommunityRepo.AddIdentifier(ctx, ident); err != nil {
		return nil, err
	}
	if err := s.deps.CounterRepo.Seed(ctx, communityID, code); err != nil {
		return nil, err
	}
	s.invalidate(ctx, communityID)
	return &ident, nil
}

// RemoveIdentifier deletes a reporting code after the caller confirms within
// the window. A timeout or negative answer leaves everything untouched.
// Existing tickets keep their ids; only the code, its counter and its
// questionnaire go away.
func (s *CommunityService) RemoveIdentifier(ctx context.Context, communityID, code string, confirm <-chan bool) error {
	community, err := s.deps.CommunityRepo.GetByID(ctx, communityID)
	if err != nil {
		return err
	}
	if _, ok := community.FindIdentifier(code); !ok {
		return util.NewNotFound("identifier", map[string]any{"code": code})
	}

	if confirm != nil {
		timer := time.NewTimer(s.deps.ConfirmWindow)
		defer timer.Stop()
		select {
		case ok := <-confirm:
			if !ok {
				return nil
			}
		case <-timer.C:
			s.deps.Logger.Info("identifier removal not confirmed",
				zap.String("community_id", communityID), zap.String("code", code))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := s.deps.CommunityRepo.RemoveIdentifier(ctx, communityID, code); err != nil {
		return err
	}
	if err := s.deps.CounterRepo.Remove(ctx, communityID, code); err != nil {
		s.deps.Logger.Warn("counter removal failed", zap.String("code", code), zap.Error(err))
	}
	if err := s.deps.QuestionnaireRepo.Delete(ctx, communityID, code); err != nil && !util.HasCode(err, util.CodeNotFound) {
		s.deps.Logger.Warn("questionnaire removal failed", zap.String("code", code), zap.Error(err))
	}
	s.invalidate(ctx, communityID)
	return nil
}

// ProvisionManager creates or rotates a manager account for a community.
func (s *CommunityService) ProvisionManager(ctx context.Context, communityID, userID, secret string) error {
	if len(secret) < 8 {
		return util.NewValidationError("secret must be at least 8 characters", nil)
	}
	hash, err := auth.HashSecret(secret, s.deps.BcryptCost)
	if err != nil {
		return util.NewInternalError(err)
	}
	manager := &domain.Manager{CommunityID: communityID, UserID: userID, SecretHash: hash}
	return s.deps.ManagerRepo.Upsert(ctx, manager)
}

// RevokeManager removes a manager account.
func (s *CommunityService) RevokeManager(ctx context.Context, communityID, userID string) error {
	return s.deps.ManagerRepo.Remove(ctx, communityID, userID)
}

// Login verifies a manager secret and issues a bearer token.
func (s *CommunityService) Login(ctx context.Context, communityID, userID, secret string) (string, time.Time, error) {
	manager, err := s.deps.ManagerRepo.Get(ctx, communityID, userID)
	if err != nil {
		if util.HasCode(err, util.CodeNotFound) {
			return "", time.Time{}, util.NewUnauthorized("invalid credentials")
		}
		return "", time.Time{}, err
	}
	if err := auth.CompareSecret(manager.SecretHash, secret); err != nil {
		return "", time.Time{}, util.NewUnauthorized("invalid credentials")
	}
	return s.deps.Tokens.GenerateToken(userID, communityID)
}

func (s *CommunityService) invalidate(ctx context.Context, communityID string) {
	if s.deps.Cache == nil {
		return
	}
	s.deps.Cache.Invalidate(ctx, communityID)
}
