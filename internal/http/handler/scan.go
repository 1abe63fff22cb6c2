package handler

import (
	"log"
	"strings"
	"time"

	"backend-hallpass/internal/models"
	"backend-hallpass/internal/monitoring"
	"backend-hallpass/internal/pass"

	"github.com/gofiber/fiber/v2"
)

// Scan is the kiosk endpoint: one scanned code in, one admission decision
// out. The whole decision runs under the tenant lock.
func Scan(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)

	var req models.ScanRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "No code scanned",
		})
	}

	var out pass.Outcome
	started := time.Now()
	err := Registry.With(c.UserContext(), tenantID, func(st *pass.TenantState) error {
		var applyErr error
		out, applyErr = Ctrl.Apply(c.UserContext(), st, pass.Event{Code: code, At: time.Now()})
		return applyErr
	})
	monitoring.ObserveApply(time.Since(started))

	if err != nil {
		log.Printf("[pass] tenant %d scan failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Internal error",
		})
	}

	monitoring.TrackScan(string(out.Action), string(out.Reason))
	Hubs.Wake(tenantID)

	if out.Action == pass.ActionRejected {
		return c.Status(out.Reason.HTTPStatus()).JSON(fiber.Map{
			"success":  false,
			"action":   out.Action,
			"reason":   out.Reason,
			"error":    out.Reason.Message(),
			"position": out.Position,
		})
	}

	resp := fiber.Map{
		"success": true,
		"action":  out.Action,
		"name":    out.Name,
	}
	if out.Promoted != "" {
		resp["promoted"] = out.Promoted
	}
	if out.Position > 0 {
		resp["position"] = out.Position
	}
	if out.AutoBanned {
		resp["auto_banned"] = true
	}
	return c.JSON(resp)
}
