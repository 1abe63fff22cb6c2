package handler

import (
	"encoding/csv"
	"io"
	"log"
	"strings"

	"backend-hallpass/internal/config"
	"backend-hallpass/internal/roster"

	"github.com/gofiber/fiber/v2"
)

// ImportRoster uploads a two-column CSV (code,name) as form-data. Rows are
// upserted by hashed code; raw codes are never stored.
func ImportRoster(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "No file uploaded",
		})
	}

	f, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to read upload",
		})
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	count := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Malformed CSV",
			})
		}
		if len(row) < 2 {
			continue
		}

		code := strings.TrimSpace(row[0])
		name := strings.TrimSpace(row[1])
		if code == "" || name == "" {
			continue
		}

		_, err = config.DB.ExecContext(c.UserContext(), `
			INSERT INTO students (tenant_id, name_hash, display_name, banned)
			VALUES (?, ?, ?, 0)
			ON DUPLICATE KEY UPDATE display_name = VALUES(display_name)
		`, tenantID, roster.HashCode(code), name)
		if err != nil {
			log.Printf("[roster] tenant %d import failed: %v", tenantID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "Failed to import roster",
			})
		}
		count++
	}

	Roster.Invalidate(c.UserContext(), tenantID)

	return c.JSON(fiber.Map{
		"success":  true,
		"imported": count,
	})
}

// ClearRoster wipes the tenant's roster (and with it every ban flag).
// Session history keeps its denormalized names.
func ClearRoster(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)

	res, err := config.DB.ExecContext(c.UserContext(),
		`DELETE FROM students WHERE tenant_id = ?`, tenantID)
	if err != nil {
		log.Printf("[roster] tenant %d clear failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to clear roster",
		})
	}

	removed, _ := res.RowsAffected()
	Roster.Invalidate(c.UserContext(), tenantID)

	return c.JSON(fiber.Map{
		"success": true,
		"removed": removed,
	})
}
