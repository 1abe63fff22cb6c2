package middleware

import (
	"backend-hallpass/internal/store"

	"github.com/gofiber/fiber/v2"
)

// KioskAuth resolves the public kiosk/display token from the URL into a
// tenant id. There is deliberately no fallback tenant: a request that
// doesn't name a tenant is rejected.
func KioskAuth(tenants *store.Tenants) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Params("token")
		if token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Missing kiosk token",
			})
		}

		t, ok, err := tenants.ByToken(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "Failed to resolve kiosk token",
			})
		}
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "Unknown kiosk token",
			})
		}

		c.Locals("tenant_id", t.ID)
		c.Locals("room", t.RoomName)
		return c.Next()
	}
}
