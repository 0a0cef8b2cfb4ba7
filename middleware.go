package auth

import (
	"github.com/gofiber/fiber/v2"
)

// ClaimsContextKey is the fiber locals key under which Protected stores the
// verified claims.
const ClaimsContextKey = "auth_claims"

// Protected returns a middleware that admits only requests carrying a live
// access token. Revoked tokens are rejected even before their natural
// expiry, so a logged out session cannot keep using protected routes.
func Protected(tokens TokenService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return unauthorized(c)
		}

		claims, err := tokens.Verify(c.UserContext(), token, TokenKindAccess)
		if err != nil {
			return unauthorized(c)
		}

		c.Locals(ClaimsContextKey, claims)
		return c.Next()
	}
}

// ClaimsFromContext retrieves the claims Protected stored, nil when the
// route is not guarded.
func ClaimsFromContext(c *fiber.Ctx) AuthClaims {
	claims, ok := c.Locals(ClaimsContextKey).(AuthClaims)
	if !ok {
		return nil
	}
	return claims
}

// RequireRole layers a role check on top of Protected.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFromContext(c)
		if claims == nil {
			return unauthorized(c)
		}

		for _, role := range roles {
			if claims.HasRole(role) {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "forbidden",
		})
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "unauthorized",
	})
}
