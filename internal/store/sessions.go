package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"backend-hallpass/internal/models"
)

// Sessions is the durable pass log. Rows are inserted open and completed
// exactly once; nothing here ever deletes.
type Sessions struct {
	DB *sql.DB
}

func NewSessions(db *sql.DB) *Sessions {
	return &Sessions{DB: db}
}

func (s *Sessions) Append(ctx context.Context, ps *models.PassSession) error {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO sessions (tenant_id, student_key, name, start_ts)
		VALUES (?, ?, ?, ?)
	`, ps.TenantID, ps.StudentKey, ps.Name, ps.StartTS)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert session id: %w", err)
	}
	ps.ID = id
	return nil
}

func (s *Sessions) Complete(ctx context.Context, tenantID, sessionID int64, endTS time.Time, endedBy string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE sessions
		SET end_ts = ?, ended_by = ?
		WHERE id = ? AND tenant_id = ? AND end_ts IS NULL
	`, endTS, endedBy, sessionID, tenantID)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %d not open for tenant %d", sessionID, tenantID)
	}
	return nil
}

// OpenByTenant returns the tenant's open sessions in start order. Used to
// hydrate in-memory state after a restart.
func (s *Sessions) OpenByTenant(ctx context.Context, tenantID int64) ([]models.PassSession, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, tenant_id, student_key, name, start_ts
		FROM sessions
		WHERE tenant_id = ? AND end_ts IS NULL
		ORDER BY start_ts ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("open sessions: %w", err)
	}
	defer rows.Close()

	var result []models.PassSession
	for rows.Next() {
		var ps models.PassSession
		if err := rows.Scan(&ps.ID, &ps.TenantID, &ps.StudentKey, &ps.Name, &ps.StartTS); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		result = append(result, ps)
	}
	return result, rows.Err()
}
