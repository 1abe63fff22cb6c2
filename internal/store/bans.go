package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Bans stores the per-student ban flag on the roster row. The controller
// reads it on every start attempt and writes it on the auto-ban
// transition; admins flip it from the settings page.
type Bans struct {
	DB *sql.DB
}

func NewBans(db *sql.DB) *Bans {
	return &Bans{DB: db}
}

func (b *Bans) Get(ctx context.Context, tenantID int64, studentKey string) (bool, error) {
	var banned bool
	err := b.DB.QueryRowContext(ctx,
		`SELECT banned FROM students WHERE tenant_id = ? AND name_hash = ?`,
		tenantID, studentKey,
	).Scan(&banned)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ban lookup: %w", err)
	}
	return banned, nil
}

func (b *Bans) Set(ctx context.Context, tenantID int64, studentKey string, banned bool) error {
	// No RowsAffected check: mysql reports 0 affected rows when the flag
	// already has the requested value, and Set must stay idempotent.
	_, err := b.DB.ExecContext(ctx,
		`UPDATE students SET banned = ? WHERE tenant_id = ? AND name_hash = ?`,
		banned, tenantID, studentKey,
	)
	if err != nil {
		return fmt.Errorf("set ban: %w", err)
	}
	return nil
}
