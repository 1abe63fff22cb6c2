package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"

	"backend-hallpass/internal/models"
)

const tenantColumns = `
	id, room_name, email, password, role, kiosk_token,
	capacity, overdue_minutes, auto_end_minutes,
	suspended, queue_enabled, auto_promote, auto_ban_overdue,
	created_at, updated_at
`

// Tenants handles tenant account + config rows.
type Tenants struct {
	DB *sql.DB
}

func NewTenants(db *sql.DB) *Tenants {
	return &Tenants{DB: db}
}

func scanTenant(row *sql.Row) (models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(
		&t.ID, &t.RoomName, &t.Email, &t.Password, &t.Role, &t.KioskToken,
		&t.Config.Capacity, &t.Config.OverdueMinutes, &t.Config.AutoEndMinutes,
		&t.Config.Suspended, &t.Config.QueueEnabled, &t.Config.AutoPromote, &t.Config.AutoBanOverdue,
		&t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

func (s *Tenants) ByID(ctx context.Context, id int64) (models.Tenant, bool, error) {
	t, err := scanTenant(s.DB.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return models.Tenant{}, false, nil
	}
	if err != nil {
		return models.Tenant{}, false, fmt.Errorf("tenant by id: %w", err)
	}
	return t, true, nil
}

func (s *Tenants) ByEmail(ctx context.Context, email string) (models.Tenant, bool, error) {
	t, err := scanTenant(s.DB.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE email = ?`, email))
	if err == sql.ErrNoRows {
		return models.Tenant{}, false, nil
	}
	if err != nil {
		return models.Tenant{}, false, fmt.Errorf("tenant by email: %w", err)
	}
	return t, true, nil
}

// ByToken resolves a public kiosk/display URL token. Unknown tokens are
// (t, false, nil) — callers must 404, never fall back to a default tenant.
func (s *Tenants) ByToken(ctx context.Context, token string) (models.Tenant, bool, error) {
	t, err := scanTenant(s.DB.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE kiosk_token = ?`, token))
	if err == sql.ErrNoRows {
		return models.Tenant{}, false, nil
	}
	if err != nil {
		return models.Tenant{}, false, fmt.Errorf("tenant by token: %w", err)
	}
	return t, true, nil
}

func (s *Tenants) UpdateConfig(ctx context.Context, tenantID int64, cfg models.TenantConfig) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE tenants
		SET capacity = ?, overdue_minutes = ?, auto_end_minutes = ?,
		    suspended = ?, queue_enabled = ?, auto_promote = ?, auto_ban_overdue = ?,
		    updated_at = NOW()
		WHERE id = ?
	`, cfg.Capacity, cfg.OverdueMinutes, cfg.AutoEndMinutes,
		cfg.Suspended, cfg.QueueEnabled, cfg.AutoPromote, cfg.AutoBanOverdue,
		tenantID)
	if err != nil {
		return fmt.Errorf("update config: %w", err)
	}
	return nil
}

// NewKioskToken generates an opaque URL-safe token.
func NewKioskToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RegenerateToken rotates the kiosk token, invalidating old kiosk and
// display URLs immediately.
func (s *Tenants) RegenerateToken(ctx context.Context, tenantID int64) (string, error) {
	token, err := NewKioskToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	_, err = s.DB.ExecContext(ctx,
		`UPDATE tenants SET kiosk_token = ?, updated_at = NOW() WHERE id = ?`,
		token, tenantID)
	if err != nil {
		return "", fmt.Errorf("rotate token: %w", err)
	}
	return token, nil
}
