package handler

import (
	"log"
	"time"

	"backend-hallpass/internal/realtime"

	"github.com/gofiber/fiber/v2"
)

// Status returns the same payload the display websocket pushes, for
// clients that prefer polling.
func Status(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)

	snap, err := Registry.Snapshot(c.UserContext(), tenantID)
	if err != nil {
		log.Printf("[pass] tenant %d status failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Internal error",
		})
	}

	return c.JSON(realtime.BuildPayload(snap, time.Now()))
}
