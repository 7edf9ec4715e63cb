package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk-admin/internal/domain"
	apperrors "github.com/spec-kit/chatdesk-admin/pkg/util/errorutil"
)

const claimsKey = "auth_claims"

// Authorizer re-derives the caller identity from a bearer token.
type Authorizer interface {
	Authorize(ctx context.Context, token string, roles ...domain.Role) (*Claims, error)
}

// AuthMiddleware validates bearer tokens and stores the claims on the request.
type AuthMiddleware struct {
	authorizer Authorizer
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(authorizer Authorizer) *AuthMiddleware {
	return &AuthMiddleware{authorizer: authorizer}
}

// Handle admits any authenticated caller.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	return m.Require()(c)
}

// Require admits callers whose token carries one of roles.
func (m *AuthMiddleware) Require(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}
		claims, err := m.authorizer.Authorize(c.UserContext(), token, roles...)
		if err != nil {
			return err
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperrors.NewUnauthorized("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}

// ClaimsFromContext retrieves the authenticated caller.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	claims, ok := c.Locals(claimsKey).(*Claims)
	return claims, ok && claims != nil
}
