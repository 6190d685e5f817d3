// Package admin is a minimal administrative surface: get_grace, start_grace,
// shutdown, purge_gids, purge_netgroups. It is grounded on
// nfs_admin_thread.c's DBus method table in original_source/src/MainNFSD:
// the same five operations, the same shutdown-is-one-shot semantics, and the
// same "grace period keyed by a recovering client's network address" shape,
// translated from a DBus method table into plain Go methods since transport
// (DBus, HTTP, or otherwise) is out of scope for this package — a host
// process wires these methods to whatever admin channel it exposes.
package admin

import (
	"context"
	"sync"
	"time"

	"github.com/nimbusnfs/nimbusnfs/internal/logger"
)

// IDMapper is the subset of idmapping's surface the admin surface needs to
// purge. Idmapping itself is out of scope for this module; a host process
// supplies its own cache here.
type IDMapper interface {
	PurgeGIDs()
	PurgeNetgroups()
}

// Shutdowner is satisfied by *cache.Cache; kept as an interface so admin can
// be unit tested against a fake without standing up a real Cache.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Admin exposes the host process's administrative operations over the
// entries the cache and idmapper track. It holds no network listener itself;
// a DBus or HTTP front end (out of scope here) calls these methods directly.
type Admin struct {
	cache    Shutdowner
	idmapper IDMapper

	mu           sync.Mutex
	inGrace      bool
	graceStarted time.Time
	graceFor     string // the recovering client's address, empty if none
	shutdownOnce sync.Once
	shutdownErr  error
}

// New returns an Admin wired to cache for shutdown and idmapper for the
// purge operations. idmapper may be nil, in which case PurgeGIDs and
// PurgeNetgroups are no-ops — matching a deployment with no idmapping
// front end configured.
func New(c Shutdowner, idmapper IDMapper) *Admin {
	return &Admin{cache: c, idmapper: idmapper}
}

// GetGrace reports whether the server is currently in an NFSv4 reclaim
// grace period, mirroring admin_dbus_get_grace's boolean reply.
func (a *Admin) GetGrace() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inGrace
}

// StartGrace begins a grace period for a client recovering at event, an
// address-like string the host process's lock-reclaim path identifies the
// client by (original_source takes this as nfs_grace_start_t; this package,
// having no reclaim state of its own to track, only records who triggered
// the period and when).
func (a *Admin) StartGrace(event string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inGrace = true
	a.graceStarted = time.Now()
	a.graceFor = event
	logger.Info("admin: grace period started for %q", event)
}

// EndGrace ends the current grace period, if any. Not part of the spec's
// named admin surface but needed so StartGrace isn't a one-way switch; the
// host process's reclaim-complete path calls it.
func (a *Admin) EndGrace() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.inGrace {
		return
	}
	logger.Info("admin: grace period for %q ended after %s", a.graceFor, time.Since(a.graceStarted))
	a.inGrace = false
	a.graceFor = ""
}

// Shutdown initiates an orderly shutdown of the wrapped cache, matching
// admin_dbus_shutdown's "idempotent, first caller wins" semantics: repeated
// calls return the first call's result without re-running teardown.
func (a *Admin) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		logger.Info("admin: shutdown requested via admin surface")
		a.shutdownErr = a.cache.Shutdown(ctx)
	})
	return a.shutdownErr
}

// PurgeGIDs drops the configured idmapper's cached group-membership
// entries, matching admin_dbus_purge_gids.
func (a *Admin) PurgeGIDs() {
	if a.idmapper == nil {
		return
	}
	logger.Info("admin: purging cached gids")
	a.idmapper.PurgeGIDs()
}

// PurgeNetgroups drops the configured idmapper's cached netgroup
// memberships, matching admin_dbus_purge_netgroups.
func (a *Admin) PurgeNetgroups() {
	if a.idmapper == nil {
		return
	}
	logger.Info("admin: purging cached netgroups")
	a.idmapper.PurgeNetgroups()
}
