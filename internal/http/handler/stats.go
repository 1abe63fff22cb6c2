package handler

import (
	"log"
	"time"

	"backend-hallpass/internal/config"

	"github.com/gofiber/fiber/v2"
)

type dailyCount struct {
	Date  string `json:"date"`
	Total int    `json:"total"`
}

// GetStats summarizes pass usage for the admin page: lifetime totals,
// today's count, how many passes are out right now, and a 7-day series.
func GetStats(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)
	ctx := c.UserContext()

	var total int
	err := config.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE tenant_id = ?`, tenantID,
	).Scan(&total)
	if err != nil {
		log.Printf("[stats] tenant %d total query failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load stats",
		})
	}

	var open int
	err = config.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE tenant_id = ? AND end_ts IS NULL`, tenantID,
	).Scan(&open)
	if err != nil {
		log.Printf("[stats] tenant %d open query failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load stats",
		})
	}

	var today int
	err = config.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE tenant_id = ? AND DATE(start_ts) = CURDATE()`, tenantID,
	).Scan(&today)
	if err != nil {
		log.Printf("[stats] tenant %d today query failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load stats",
		})
	}

	weekStart := time.Now().AddDate(0, 0, -6).Format("2006-01-02")
	rows, err := config.DB.QueryContext(ctx, `
		SELECT DATE(start_ts) AS day, COUNT(*) AS total
		FROM sessions
		WHERE tenant_id = ? AND DATE(start_ts) >= ?
		GROUP BY day
		ORDER BY day ASC
	`, tenantID, weekStart)
	if err != nil {
		log.Printf("[stats] tenant %d weekly query failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load stats",
		})
	}
	defer rows.Close()

	daily := []dailyCount{}
	for rows.Next() {
		var d dailyCount
		if err := rows.Scan(&d.Date, &d.Total); err != nil {
			continue
		}
		daily = append(daily, d)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_sessions": total,
			"open_sessions":  open,
			"today_sessions": today,
			"daily":          daily,
		},
	})
}
