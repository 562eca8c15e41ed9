package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

// RequireManager ensures the caller holds a manager record for the community
// in the route.
func RequireManager() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Manager == nil {
			return util.NewPermissionDenied("manager required")
		}
		if communityID := c.Params("communityID"); communityID != "" && communityID != principal.CommunityID {
			return util.NewPermissionDenied("token is for a different community")
		}
		return c.Next()
	}
}
