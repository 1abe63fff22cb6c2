package store

import (
	"context"
	"fmt"

	"backend-hallpass/internal/pass"
)

// Loader hydrates a tenant's in-memory state from MySQL: config from the
// tenants row, open sessions from the pass log. The waitlist is not
// durable — after a restart waiters rejoin by scanning again.
type Loader struct {
	Tenants  *Tenants
	Sessions *Sessions
}

func NewLoader(tenants *Tenants, sessions *Sessions) *Loader {
	return &Loader{Tenants: tenants, Sessions: sessions}
}

func (l *Loader) LoadState(ctx context.Context, tenantID int64) (*pass.TenantState, error) {
	t, ok, err := l.Tenants.ByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("tenant %d not found", tenantID)
	}

	open, err := l.Sessions.OpenByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	return &pass.TenantState{
		TenantID: t.ID,
		RoomName: t.RoomName,
		Config:   t.Config,
		Open:     open,
	}, nil
}
