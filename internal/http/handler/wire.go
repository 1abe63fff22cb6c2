package handler

import (
	"backend-hallpass/internal/pass"
	"backend-hallpass/internal/realtime"
	"backend-hallpass/internal/roster"
	"backend-hallpass/internal/store"
)

// Package-level collaborators, set once from main before routes are
// registered.
var (
	Registry *pass.Registry
	Ctrl     *pass.Controller
	Hubs     *realtime.Hubs
	Tenants  *store.Tenants
	Sessions *store.Sessions
	Bans     *store.Bans
	Roster   *roster.Resolver
)

func Wire(
	registry *pass.Registry,
	ctrl *pass.Controller,
	hubs *realtime.Hubs,
	tenants *store.Tenants,
	sessions *store.Sessions,
	bans *store.Bans,
	resolver *roster.Resolver,
) {
	Registry = registry
	Ctrl = ctrl
	Hubs = hubs
	Tenants = tenants
	Sessions = sessions
	Bans = bans
	Roster = resolver
}
