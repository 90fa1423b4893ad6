package middleware

import (
	"sukuk-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// RequireRole restricts a route to one role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, _ := c.Locals(userLocal).(map[string]interface{})
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		if r, _ := user["role"].(string); r != role {
			return response.Forbidden(c, "Insufficient role")
		}
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// GetUserID returns the session user's id, or empty string.
func GetUserID(c *fiber.Ctx) string {
	user, _ := c.Locals(userLocal).(map[string]interface{})
	if user == nil {
		return ""
	}
	id, _ := user["user_id"].(string)
	return id
}
