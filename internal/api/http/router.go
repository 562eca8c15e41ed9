package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/CrawlerEmporium/issuecrawler/internal/api/http/handlers"
	"github.com/CrawlerEmporium/issuecrawler/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Communities    *handlers.CommunitiesHandler
	Milestones     *handlers.MilestonesHandler
	Webhooks       *handlers.WebhookHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Communities.Login)
	app.Post("/webhooks/github", cfg.Webhooks.Github)

	communities := app.Group("/communities")
	communities.Post("", cfg.Communities.Register)
	communities.Get("/:communityID", cfg.Communities.Get)
	communities.Get("/:communityID/identifiers/:code/questionnaire", cfg.Communities.GetQuestionnaire)

	tickets := communities.Group("/:communityID/tickets")
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:ticketID", cfg.Tickets.Get)
	tickets.Post("/:ticketID/upvote", cfg.Tickets.Upvote)
	tickets.Post("/:ticketID/downvote", cfg.Tickets.Downvote)
	tickets.Post("/:ticketID/indifferent", cfg.Tickets.Indifferent)
	tickets.Post("/:ticketID/canrepro", cfg.Tickets.CanRepro)
	tickets.Post("/:ticketID/cannotrepro", cfg.Tickets.CannotRepro)
	tickets.Post("/:ticketID/notes", cfg.Tickets.AddNote)
	tickets.Put("/:ticketID/subscribers/:userID", cfg.Tickets.Subscribe)
	tickets.Delete("/:ticketID/subscribers/:userID", cfg.Tickets.Unsubscribe)

	// Moderation routes require a manager token for the community.
	managed := communities.Group("/:communityID", cfg.AuthMiddleware.Handle, auth.RequireManager())
	managed.Patch("/settings", cfg.Communities.UpdateSettings)
	managed.Post("/identifiers", cfg.Communities.AddIdentifier)
	managed.Delete("/identifiers/:code", cfg.Communities.RemoveIdentifier)
	managed.Put("/identifiers/:code/questionnaire", cfg.Communities.PutQuestionnaire)
	managed.Delete("/identifiers/:code/questionnaire", cfg.Communities.DeleteQuestionnaire)
	managed.Post("/managers", cfg.Communities.ProvisionManager)
	managed.Delete("/managers/:userID", cfg.Communities.RevokeManager)
	managed.Post("/release", cfg.Tickets.Release)

	managedTickets := managed.Group("/tickets")
	managedTickets.Post("/:ticketID/resolve", cfg.Tickets.Resolve)
	managedTickets.Post("/:ticketID/unresolve", cfg.Tickets.Unresolve)
	managedTickets.Post("/:ticketID/reidentify", cfg.Tickets.Reidentify)
	managedTickets.Post("/:ticketID/merge", cfg.Tickets.Merge)
	managedTickets.Post("/:ticketID/assign", cfg.Tickets.Assign)
	managedTickets.Delete("/:ticketID/assign", cfg.Tickets.Unassign)
	managedTickets.Delete("/:ticketID", cfg.Tickets.Untrack)

	milestones := managed.Group("/milestones")
	milestones.Post("", cfg.Milestones.Create)
	milestones.Get("", cfg.Milestones.List)
	milestones.Get("/:milestoneID", cfg.Milestones.Get)
	milestones.Post("/:milestoneID/close", cfg.Milestones.Close)
	milestones.Delete("/:milestoneID", cfg.Milestones.Delete)
	milestones.Put("/:milestoneID/tickets/:ticketID", cfg.Milestones.Link)
	milestones.Delete("/:milestoneID/tickets/:ticketID", cfg.Milestones.Unlink)
}
