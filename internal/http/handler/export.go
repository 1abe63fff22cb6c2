package handler

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"backend-hallpass/internal/config"

	"github.com/gofiber/fiber/v2"
)

// ExportDay streams today's sessions for the tenant as CSV.
func ExportDay(c *fiber.Ctx) error {
	tenantID := c.Locals("tenant_id").(int64)

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	rows, err := config.DB.QueryContext(c.UserContext(), `
		SELECT name, start_ts, end_ts, ended_by
		FROM sessions
		WHERE tenant_id = ? AND start_ts >= ? AND start_ts < ?
		ORDER BY start_ts ASC
	`, tenantID, startOfDay, endOfDay)
	if err != nil {
		log.Printf("[export] tenant %d query failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to export sessions",
		})
	}
	defer rows.Close()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"student", "start", "end", "duration_seconds", "ended_by"})

	for rows.Next() {
		var (
			name    string
			startTS time.Time
			endTS   sql.NullTime
			endedBy sql.NullString
		)
		if err := rows.Scan(&name, &startTS, &endTS, &endedBy); err != nil {
			log.Printf("[export] scan error: %v", err)
			continue
		}

		end := ""
		duration := ""
		if endTS.Valid {
			end = endTS.Time.Format("2006-01-02 15:04:05")
			duration = strconv.FormatInt(int64(endTS.Time.Sub(startTS).Seconds()), 10)
		}
		_ = w.Write([]string{
			name,
			startTS.Format("2006-01-02 15:04:05"),
			end,
			duration,
			endedBy.String,
		})
	}
	w.Flush()

	fileName := fmt.Sprintf("hallpass-%s.csv", startOfDay.Format("2006-01-02"))
	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	return c.Send(buf.Bytes())
}
