package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/CrawlerEmporium/issuecrawler/internal/api/dto"
	"github.com/CrawlerEmporium/issuecrawler/internal/auth"
	"github.com/CrawlerEmporium/issuecrawler/internal/service"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle over HTTP.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

// Create POST /communities/:communityID/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Identifier == "" || req.ReporterID == "" || strings.TrimSpace(req.Title) == "" {
		return util.NewValidationError("identifier, reporter_id, title required", nil)
	}
	ticket, err := h.tickets.Create(c.UserContext(), service.TicketCreateInput{
		CommunityID:     c.Params("communityID"),
		Identifier:      req.Identifier,
		ReporterID:      req.ReporterID,
		Title:           req.Title,
		FirstAttachment: req.FirstAttachment,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// List GET /communities/:communityID/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	openOnly := c.Query("open") == "true"
	limit := parseInt(c.Query("limit"), 50)
	offset := parseInt(c.Query("offset"), 0)
	tickets, err := h.tickets.List(c.UserContext(), c.Params("communityID"), openOnly, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.TicketFromDomain(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /communities/:communityID/tickets/:ticketID.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, log, err := h.tickets.Get(c.UserContext(), c.Params("communityID"), c.Params("ticketID"))
	if err != nil {
		return err
	}
	resp := dto.TicketFromDomain(ticket)
	resp.Attachments = make([]dto.AttachmentResponse, 0, len(log))
	for i := range log {
		resp.Attachments = append(resp.Attachments, dto.AttachmentFromDomain(&log[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Upvote POST /communities/:communityID/tickets/:ticketID/upvote.
func (h *TicketsHandler) Upvote(c *fiber.Ctx) error {
	return h.vote(c, h.tickets.Upvote)
}

// Downvote POST /communities/:communityID/tickets/:ticketID/downvote.
func (h *TicketsHandler) Downvote(c *fiber.Ctx) error {
	return h.vote(c, h.tickets.Downvote)
}

// Indifferent POST /communities/:communityID/tickets/:ticketID/indifferent.
func (h *TicketsHandler) Indifferent(c *fiber.Ctx) error {
	return h.vote(c, h.tickets.Indifferent)
}

// CanRepro POST /communities/:communityID/tickets/:ticketID/canrepro.
func (h *TicketsHandler) CanRepro(c *fiber.Ctx) error {
	return h.vote(c, h.tickets.CanRepro)
}

// CannotRepro POST /communities/:communityID/tickets/:ticketID/cannotrepro.
func (h *TicketsHandler) CannotRepro(c *fiber.Ctx) error {
	return h.vote(c, h.tickets.CannotRepro)
}

func (h *TicketsHandler) vote(c *fiber.Ctx, op func(ctx context.Context, communityID, ticketID, userID, comment string) error) error {
	var req dto.VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.UserID == "" {
		return util.NewValidationError("user_id required", nil)
	}
	if err := op(c.UserContext(), c.Params("communityID"), c.Params("ticketID"), req.UserID, req.Comment); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddNote POST /communities/:communityID/tickets/:ticketID/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.AuthorID == "" || strings.TrimSpace(req.Text) == "" {
		return util.NewValidationError("author_id and text required", nil)
	}
	if err := h.tickets.AddNote(c.UserContext(), c.Params("communityID"), c.Params("ticketID"), req.AuthorID, req.Text, req.ShouldMirror()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Resolve POST /communities/:communityID/tickets/:ticketID/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	err := h.tickets.Resolve(c.UserContext(), c.Params("communityID"), c.Params("ticketID"), principal.UserID, req.Comment, service.ResolveOptions{
		CloseExternal: req.ShouldCloseExternal(),
		IsPending:     req.Pending,
	})
	if err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Unresolve POST /communities/:communityID/tickets/:ticketID/unresolve.
func (h *TicketsHandler) Unresolve(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.UnresolveRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if err := h.tickets.Unresolve(c.UserContext(), c.Params("communityID"), c.Params("ticketID"), principal.UserID, req.Comment, req.ShouldOpenExternal()); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Reidentify POST /communities/:communityID/tickets/:ticketID/reidentify.
func (h *TicketsHandler) Reidentify(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.ReidentifyRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.Identifier == "" {
		return util.NewValidationError("identifier required", nil)
	}
	ticket, err := h.tickets.Reidentify(c.UserContext(), c.Params("communityID"), c.Params("ticketID"), principal.UserID, req.Identifier)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.TicketFromDomain(ticket)})
}

// Merge POST /communities/:communityID/tickets/:ticketID/merge.
func (h *TicketsHandler) Merge(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.MergeRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.TargetID == "" {
		return util.NewValidationError("target_id required", nil)
	}
	if err := h.tickets.Merge(c.UserContext(), c.Params("communityID"), c.Params("ticketID"), req.TargetID, principal.UserID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Assign POST /communities/:communityID/tickets/:ticketID/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if req.AssigneeID == "" {
		return util.NewValidationError("assignee_id required", nil)
	}
	if err := h.tickets.Assign(c.UserContext(), c.Params("communityID"), c.Params("ticketID"), principal.UserID, req.AssigneeID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Unassign DELETE /communities/:communityID/tickets/:ticketID/assign.
func (h *TicketsHandler) Unassign(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.tickets.Unassign(c.UserContext(), c.Params("communityID"), c.Params("ticketID"), principal.UserID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Subscribe PUT /communities/:communityID/tickets/:ticketID/subscribers/:userID.
func (h *TicketsHandler) Subscribe(c *fiber.Ctx) error {
	if err := h.tickets.Subscribe(c.UserContext(), c.Params("communityID"), c.Params("ticketID"), c.Params("userID")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Unsubscribe DELETE /communities/:communityID/tickets/:ticketID/subscribers/:userID.
func (h *TicketsHandler) Unsubscribe(c *fiber.Ctx) error {
	if err := h.tickets.Unsubscribe(c.UserContext(), c.Params("communityID"), c.Params("ticketID"), c.Params("userID")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Untrack DELETE /communities/:communityID/tickets/:ticketID.
func (h *TicketsHandler) Untrack(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.tickets.Untrack(c.UserContext(), c.Params("communityID"), c.Params("ticketID"), principal.UserID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Release POST /communities/:communityID/release.
func (h *TicketsHandler) Release(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	var req dto.ReleaseRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	released, err := h.tickets.Release(c.UserContext(), c.Params("communityID"), principal.UserID, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"released": released}})
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}
