package handler

import (
	"log"
	"time"

	"backend-hallpass/internal/models"
	"backend-hallpass/internal/pass"
	"backend-hallpass/internal/roster"

	"github.com/gofiber/fiber/v2"
)

// GetSettings returns the tenant account with its current config.
func GetSettings(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)

	tenant, found, err := Tenants.ByID(c.UserContext(), tenantID)
	if err != nil || !found {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load tenant",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    models.ToTenantResponse(tenant),
	})
}

// UpdateSettings changes config flags. The DB write and the in-memory
// config swap happen under the tenant lock so no scan sees a half-updated
// config.
func UpdateSettings(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)

	var req models.UpdateConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if req.Capacity != nil && *req.Capacity < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Capacity must be at least 1",
		})
	}

	var updated models.TenantConfig
	err := Registry.With(c.UserContext(), tenantID, func(st *pass.TenantState) error {
		cfg := req.Apply(st.Config)
		if err := Tenants.UpdateConfig(c.UserContext(), tenantID, cfg); err != nil {
			return err
		}
		st.Config = cfg
		updated = cfg
		return nil
	})
	if err != nil {
		log.Printf("[admin] tenant %d config update failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to update settings",
		})
	}

	Hubs.Wake(tenantID)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    updated,
	})
}

type overrideEndRequest struct {
	StudentKey string `json:"student_key"`
}

// OverrideEnd force-ends a pass (the oldest one when no student_key is
// given), promoting a waiter exactly like a scan-end would.
func OverrideEnd(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)

	var req overrideEndRequest
	_ = c.BodyParser(&req) // empty body means "end the oldest pass"

	var out pass.Outcome
	var ended bool
	err := Registry.With(c.UserContext(), tenantID, func(st *pass.TenantState) error {
		var opErr error
		out, ended, opErr = Ctrl.OverrideEnd(c.UserContext(), st, req.StudentKey, time.Now())
		return opErr
	})
	if err != nil {
		log.Printf("[admin] tenant %d override end failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to end session",
		})
	}
	if !ended {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "No one is out",
		})
	}

	Hubs.Wake(tenantID)
	resp := fiber.Map{
		"success": true,
		"name":    out.Name,
	}
	if out.Promoted != "" {
		resp["promoted"] = out.Promoted
	}
	return c.JSON(resp)
}

type banRequest struct {
	Code       string `json:"code"`
	StudentKey string `json:"student_key"`
	Banned     bool   `json:"banned"`
}

// SetStudentBan flips the ban flag. Banning also removes any waitlist
// entry, otherwise a banned waiter at the head of the queue would block
// everyone behind them.
func SetStudentBan(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)

	var req banRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	key := req.StudentKey
	if key == "" {
		if req.Code == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "code or student_key is required",
			})
		}
		key = roster.HashCode(req.Code)
	}

	if err := Bans.Set(c.UserContext(), tenantID, key, req.Banned); err != nil {
		log.Printf("[admin] tenant %d ban update failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to update ban",
		})
	}

	if req.Banned {
		_ = Registry.With(c.UserContext(), tenantID, func(st *pass.TenantState) error {
			st.RemoveWaiter(key)
			return nil
		})
	}

	Hubs.Wake(tenantID)
	return c.JSON(fiber.Map{
		"success": true,
		"banned":  req.Banned,
	})
}

// RemoveWaiter takes a student out of the waitlist.
func RemoveWaiter(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)
	key := c.Params("key")

	var removed bool
	err := Registry.With(c.UserContext(), tenantID, func(st *pass.TenantState) error {
		removed = st.RemoveWaiter(key)
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to update waitlist",
		})
	}
	if !removed {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Student is not waiting",
		})
	}

	Hubs.Wake(tenantID)
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// RegenerateKioskToken rotates the public kiosk/display URLs.
func RegenerateKioskToken(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)

	token, err := Tenants.RegenerateToken(c.UserContext(), tenantID)
	if err != nil {
		log.Printf("[admin] tenant %d token rotation failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to regenerate token",
		})
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"kiosk_token": token,
	})
}
