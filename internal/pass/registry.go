package pass

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// StateLoader hydrates a tenant's state (config + open sessions) the first
// time the registry sees it, typically after a restart.
type StateLoader interface {
	LoadState(ctx context.Context, tenantID int64) (*TenantState, error)
}

type tenantEntry struct {
	mu     sync.Mutex
	st     *TenantState
	loaded atomic.Bool
}

// Registry owns the per-tenant locks. Every state transition for a tenant
// goes through With, which serializes against all other transitions for
// that tenant while leaving other tenants untouched.
type Registry struct {
	mu     sync.RWMutex
	loader StateLoader
	states map[int64]*tenantEntry
}

func NewRegistry(loader StateLoader) *Registry {
	return &Registry{
		loader: loader,
		states: make(map[int64]*tenantEntry),
	}
}

func (r *Registry) entry(tenantID int64) *tenantEntry {
	r.mu.RLock()
	e, ok := r.states[tenantID]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.states[tenantID]; ok {
		return e
	}
	e = &tenantEntry{}
	r.states[tenantID] = e
	return e
}

// With runs fn with exclusive access to the tenant's state, loading it on
// first use. Lock acquisition order is arrival order, which is the
// "first lock acquired, first served" fairness contract.
func (r *Registry) With(ctx context.Context, tenantID int64, fn func(st *TenantState) error) error {
	e := r.entry(tenantID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st == nil {
		st, err := r.loader.LoadState(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("load tenant %d: %w", tenantID, err)
		}
		e.st = st
		e.loaded.Store(true)
	}
	return fn(e.st)
}

// Snapshot returns a deep copy of the tenant's state for readers (status
// endpoint, display broadcaster) that must not hold the lock while
// serializing.
func (r *Registry) Snapshot(ctx context.Context, tenantID int64) (TenantState, error) {
	var snap TenantState
	err := r.With(ctx, tenantID, func(st *TenantState) error {
		snap = st.clone()
		return nil
	})
	return snap, err
}

// Evict drops a tenant's in-memory state so the next access reloads it.
// Used when an admin change (roster clear, token reset) invalidates what
// was hydrated.
func (r *Registry) Evict(tenantID int64) {
	r.mu.Lock()
	delete(r.states, tenantID)
	r.mu.Unlock()
}

// LoadedTenants lists tenants with hydrated state; the sweep only visits
// these, since an unloaded tenant has no in-memory sessions to expire
// beyond what hydration itself will fix up.
func (r *Registry) LoadedTenants() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.states))
	for id, e := range r.states {
		if e.loaded.Load() {
			ids = append(ids, id)
		}
	}
	return ids
}
