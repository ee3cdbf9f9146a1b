package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/neogan74/vigil/internal/auth"
)

// Identity attaches the caller's identity when the request carries a valid
// bearer token. Requests without one, or with an invalid one, continue
// anonymously. A nil service disables token parsing.
func Identity(jwtService *auth.JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if jwtService == nil {
			return c.Next()
		}

		scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
		if !ok || scheme != "Bearer" {
			return c.Next()
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			GetLogger(c).Debug("Ignoring bearer token")
			return c.Next()
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("email", claims.Email)

		return c.Next()
	}
}

// GetUserID returns the user ID from the context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("user_id").(string); ok {
		return userID
	}
	return ""
}

// GetEmail returns the user email from the context
func GetEmail(c *fiber.Ctx) string {
	if email, ok := c.Locals("email").(string); ok {
		return email
	}
	return ""
}
