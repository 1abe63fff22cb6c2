package models

import "time"

/*
|--------------------------------------------------------------------------
| DATABASE MODEL (INTERNAL)
|--------------------------------------------------------------------------
| A tenant is one room/teacher account. All passes, waitlists, rosters and
| bans are scoped by TenantID; nothing crosses tenants.
*/
type Tenant struct {
	ID         int64
	RoomName   string
	Email      string
	Password   string // bcrypt hash
	Role       string // teacher, admin
	KioskToken string // opaque token embedded in kiosk/display URLs
	Config     TenantConfig
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TenantConfig is read-only inside a single admission decision. Admin
// updates replace it as a whole under the tenant lock.
type TenantConfig struct {
	Capacity       int  `json:"capacity"`         // >= 1
	OverdueMinutes int  `json:"overdue_minutes"`  // 0 disables overdue marking
	AutoEndMinutes int  `json:"auto_end_minutes"` // 0 disables the auto-end failsafe
	Suspended      bool `json:"suspended"`
	QueueEnabled   bool `json:"queue_enabled"`
	AutoPromote    bool `json:"auto_promote"`
	AutoBanOverdue bool `json:"auto_ban_overdue"`
}

/*
|--------------------------------------------------------------------------
| REQUEST
|--------------------------------------------------------------------------
| Pointer fields so a PUT can change one flag without resending the rest.
*/
type UpdateConfigRequest struct {
	Capacity       *int  `json:"capacity" validate:"omitempty,min=1"`
	OverdueMinutes *int  `json:"overdue_minutes" validate:"omitempty,min=0"`
	AutoEndMinutes *int  `json:"auto_end_minutes" validate:"omitempty,min=0"`
	Suspended      *bool `json:"suspended"`
	QueueEnabled   *bool `json:"queue_enabled"`
	AutoPromote    *bool `json:"auto_promote"`
	AutoBanOverdue *bool `json:"auto_ban_overdue"`
}

// Apply merges the request into a copy of cfg and returns it.
func (r UpdateConfigRequest) Apply(cfg TenantConfig) TenantConfig {
	if r.Capacity != nil {
		cfg.Capacity = *r.Capacity
	}
	if r.OverdueMinutes != nil {
		cfg.OverdueMinutes = *r.OverdueMinutes
	}
	if r.AutoEndMinutes != nil {
		cfg.AutoEndMinutes = *r.AutoEndMinutes
	}
	if r.Suspended != nil {
		cfg.Suspended = *r.Suspended
	}
	if r.QueueEnabled != nil {
		cfg.QueueEnabled = *r.QueueEnabled
	}
	if r.AutoPromote != nil {
		cfg.AutoPromote = *r.AutoPromote
	}
	if r.AutoBanOverdue != nil {
		cfg.AutoBanOverdue = *r.AutoBanOverdue
	}
	return cfg
}

/*
|--------------------------------------------------------------------------
| RESPONSE DTO
|--------------------------------------------------------------------------
*/
type TenantResponse struct {
	ID         int64        `json:"id"`
	RoomName   string       `json:"room_name"`
	Email      string       `json:"email"`
	Role       string       `json:"role"`
	KioskToken string       `json:"kiosk_token"`
	Config     TenantConfig `json:"config"`
}

/*
|--------------------------------------------------------------------------
| MAPPER
|--------------------------------------------------------------------------
| Convert Tenant (DB) -> TenantResponse (API). Never expose the hash.
*/
func ToTenantResponse(t Tenant) TenantResponse {
	return TenantResponse{
		ID:         t.ID,
		RoomName:   t.RoomName,
		Email:      t.Email,
		Role:       t.Role,
		KioskToken: t.KioskToken,
		Config:     t.Config,
	}
}
