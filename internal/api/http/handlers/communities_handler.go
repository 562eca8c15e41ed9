package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/CrawlerEmporium/issuecrawler/internal/api/dto"
	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/internal/service"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// CommunitiesHandler manages community registration, identifiers,
// questionnaires and manager accounts.
type CommunitiesHandler struct {
	communities    *service.CommunityService
	questionnaires *service.QuestionnaireService
}

// NewCommunitiesHandler constructs handler.
func NewCommunitiesHandler(communities *service.CommunityService, questionnaires *service.QuestionnaireService) *CommunitiesHandler {
	return &CommunitiesHandler{communities: communities, questionnaires: questionnaires}
}

// Register POST /communities.
func (h *CommunitiesHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterCommunityRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	community, err := h.communities.Register(c.UserContext(), req.CommunityID, req.TrackerChannelID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": community})
}

// Get GET /communities/:communityID.
func (h *CommunitiesHandler) Get(c *fiber.Ctx) error {
	community, err := h.communities.Get(c.UserContext(), c.Params("communityID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": community})
}

// UpdateSettings PATCH /communities/:communityID/settings.
func (h *CommunitiesHandler) UpdateSettings(c *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	community, err := h.communities.Get(c.UserContext(), c.Params("communityID"))
	if err != nil {
		return err
	}
	if req.TrackerChannelID != "" {
		community.TrackerChannelID = req.TrackerChannelID
	}
	community.Repo = req.Repo
	if req.VoteThreshold > 0 {
		community.VoteThreshold = req.VoteThreshold
	}
	if req.NoteThreshold > 0 {
		community.NoteThreshold = req.NoteThreshold
	}
	if err := h.communities.UpdateSettings(c.UserContext(), community); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": community})
}

// AddIdentifier POST /communities/:communityID/identifiers.
func (h *CommunitiesHandler) AddIdentifier(c *fiber.Ctx) error {
	var req dto.AddIdentifierRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	kind, ok := domain.ParseKind(req.Kind)
	if !ok {
		return util.NewValidationError("unknown kind", map[string]any{"kind": req.Kind})
	}
	ident, err := h.communities.AddIdentifier(c.UserContext(), c.Params("communityID"), req.Code, kind)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ident})
}

// RemoveIdentifier DELETE /communities/:communityID/identifiers/:code.
// Destructive; the caller must pass confirmed=true.
func (h *CommunitiesHandler) RemoveIdentifier(c *fiber.Ctx) error {
	if c.Query("confirmed") != "true" {
		return util.NewValidationError("confirmation required", map[string]any{"hint": "pass confirmed=true"})
	}
	if err := h.communities.RemoveIdentifier(c.UserContext(), c.Params("communityID"), c.Params("code"), nil); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// PutQuestionnaire PUT /communities/:communityID/identifiers/:code/questionnaire.
func (h *CommunitiesHandler) PutQuestionnaire(c *fiber.Ctx) error {
	var req dto.QuestionnaireRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	fields := make([]domain.QuestionnaireField, 0, len(req.Fields))
	for _, f := range req.Fields {
		fields = append(fields, domain.QuestionnaireField{
			Position:    f.Position,
			Label:       f.Label,
			Placeholder: f.Placeholder,
			Style:       domain.FieldStyle(f.Style),
			Required:    f.Required,
		})
	}
	questionnaire, err := h.questionnaires.Replace(c.UserContext(), c.Params("communityID"), c.Params("code"), fields)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": questionnaire})
}

// GetQuestionnaire GET /communities/:communityID/identifiers/:code/questionnaire.
func (h *CommunitiesHandler) GetQuestionnaire(c *fiber.Ctx) error {
	questionnaire, err := h.questionnaires.Get(c.UserContext(), c.Params("communityID"), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": questionnaire})
}

// DeleteQuestionnaire DELETE /communities/:communityID/identifiers/:code/questionnaire.
func (h *CommunitiesHandler) DeleteQuestionnaire(c *fiber.Ctx) error {
	if err := h.questionnaires.Delete(c.UserContext(), c.Params("communityID"), c.Params("code")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ProvisionManager POST /communities/:communityID/managers.
func (h *CommunitiesHandler) ProvisionManager(c *fiber.Ctx) error {
	var req dto.ProvisionManagerRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return util.NewValidationError("user_id required", nil)
	}
	if err := h.communities.ProvisionManager(c.UserContext(), c.Params("communityID"), req.UserID, req.Secret); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// RevokeManager DELETE /communities/:communityID/managers/:userID.
func (h *CommunitiesHandler) RevokeManager(c *fiber.Ctx) error {
	if err := h.communities.RevokeManager(c.UserContext(), c.Params("communityID"), c.Params("userID")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Login POST /auth/login.
func (h *CommunitiesHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	token, expiresAt, err := h.communities.Login(c.UserContext(), req.CommunityID, req.UserID, req.Secret)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{Token: token, ExpiresAt: expiresAt}})
}
