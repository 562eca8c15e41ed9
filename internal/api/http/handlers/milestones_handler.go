package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/CrawlerEmporium/issuecrawler/internal/api/dto"
	"github.com/CrawlerEmporium/issuecrawler/internal/service"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// MilestonesHandler exposes milestone management.
type MilestonesHandler struct {
	milestones *service.MilestoneService
}

// NewMilestonesHandler constructs handler.
func NewMilestonesHandler(milestones *service.MilestoneService) *MilestonesHandler {
	return &MilestonesHandler{milestones: milestones}
}

// Create POST /communities/:communityID/milestones.
func (h *MilestonesHandler) Create(c *fiber.Ctx) error {
	var req dto.MilestoneRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	milestone, err := h.milestones.Create(c.UserContext(), c.Params("communityID"), req.Title, req.Description)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": milestone})
}

// List GET /communities/:communityID/milestones.
func (h *MilestonesHandler) List(c *fiber.Ctx) error {
	milestones, err := h.milestones.List(c.UserContext(), c.Params("communityID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": milestones})
}

// Get GET /communities/:communityID/milestones/:milestoneID.
func (h *MilestonesHandler) Get(c *fiber.Ctx) error {
	milestone, err := h.milestones.Get(c.UserContext(), c.Params("communityID"), c.Params("milestoneID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": milestone})
}

// Close POST /communities/:communityID/milestones/:milestoneID/close.
func (h *MilestonesHandler) Close(c *fiber.Ctx) error {
	if err := h.milestones.Close(c.UserContext(), c.Params("communityID"), c.Params("milestoneID")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Delete DELETE /communities/:communityID/milestones/:milestoneID.
func (h *MilestonesHandler) Delete(c *fiber.Ctx) error {
	if err := h.milestones.Delete(c.UserContext(), c.Params("communityID"), c.Params("milestoneID")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Link PUT /communities/:communityID/milestones/:milestoneID/tickets/:ticketID.
func (h *MilestonesHandler) Link(c *fiber.Ctx) error {
	if err := h.milestones.Link(c.UserContext(), c.Params("communityID"), c.Params("milestoneID"), c.Params("ticketID")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Unlink DELETE /communities/:communityID/milestones/:milestoneID/tickets/:ticketID.
func (h *MilestonesHandler) Unlink(c *fiber.Ctx) error {
	if err := h.milestones.Unlink(c.UserContext(), c.Params("communityID"), c.Params("milestoneID"), c.Params("ticketID")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
