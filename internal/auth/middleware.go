package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/CrawlerEmporium/issuecrawler/internal/domain"
	"github.com/CrawlerEmporium/issuecrawler/internal/repository"
	"github.com/CrawlerEmporium/issuecrawler/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	UserID      string
	CommunityID string
	Manager     *domain.Manager
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	managers repository.ManagerRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, managers repository.ManagerRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, managers: managers}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return util.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return util.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return util.NewUnauthorized("invalid token")
	}

	principal := &Principal{UserID: claims.UserID, CommunityID: claims.CommunityID}
	manager, err := m.managers.Get(c.Context(), claims.CommunityID, claims.UserID)
	if err == nil {
		principal.Manager = manager
	} else if !util.HasCode(err, util.CodeNotFound) {
		return util.MapError(err)
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
