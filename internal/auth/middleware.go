package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/intake-service/pkg/util"
)

const claimsKey = "auth_claims"

// AuthMiddleware validates bearer tokens on protected routes.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes. Missing, malformed,
// expired, and tampered tokens all reject with 403.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewForbidden("token missing")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewForbidden("invalid authorization header")
	}

	claims, err := m.tokens.Verify(parts[1])
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return apperrors.NewForbidden("token expired")
		}
		return apperrors.NewForbidden("invalid token")
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

// ClaimsFromContext retrieves the verified token claims.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}
