package cache

import (
	"context"

	"github.com/nimbusnfs/nimbusnfs/internal/logger"
)

// Shutdown runs the staged teardown sequence described in SPEC_FULL.md §4.7.
// Each stage is gated on the previous one completing or timing out; a stage
// timeout flips the sequence into the disorderly path for everything after
// it. Shutdown is idempotent-safe to call once; calling it twice on the same
// Cache is a programming error (mirrors this project's DittoServer.Serve
// single-call contract).
func (c *Cache) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.shuttingDown {
		c.mu.Unlock()
		return nil
	}
	c.shuttingDown = true
	c.mu.Unlock()

	disorderly := false

	// Stage 1: stop accepting new requests. isShuttingDown() is already
	// checked at the top of every Backend method above; nothing further
	// to do here beyond having flipped the flag.
	logger.Info("mdcache: shutdown stage 1/7 - no longer accepting new requests")

	// Stage 2: stop the delayed executor.
	logger.Info("mdcache: shutdown stage 2/7 - stopping delayed executor")
	if err := c.stageWithTimeout(ctx, c.delayed.stop); err != nil {
		disorderly = true
		logger.Warn("mdcache: delayed executor shutdown timed out: %v", err)
	}

	// Stage 3: drain asynchronous state requests. The cache has no
	// separate async-state queue beyond the delayed executor already
	// drained above; this stage is a documented no-op here and exists so
	// a host process composing multiple subsystems can still point at it
	// as a sequencing anchor.
	logger.Info("mdcache: shutdown stage 3/7 - draining asynchronous state requests")

	// Stage 4: stop request listeners/decoders. Out of scope for this
	// package (§1); a host process's protocol engine owns this stage.
	logger.Info("mdcache: shutdown stage 4/7 - stop request listeners (host process responsibility)")

	// Stage 5: stop worker pool. The reaper is this package's only
	// background worker pool.
	logger.Info("mdcache: shutdown stage 5/7 - stopping reaper")
	if err := c.stageWithTimeout(ctx, c.reaper.stop); err != nil {
		disorderly = true
		logger.Warn("mdcache: reaper shutdown timed out: %v", err)
	}

	// Stage 6: remove all exports, triggering §4.5 cleanup en masse.
	logger.Info("mdcache: shutdown stage 6/7 - removing all exports")
	for _, name := range c.exports.names() {
		if err := c.Unexport(ctx, name); err != nil {
			disorderly = true
			logger.Warn("mdcache: unexport %q during shutdown failed: %v", name, err)
		}
	}

	// Stage 7: destroy sub-backends if orderly, else emergency cleanup.
	if disorderly {
		logger.Warn("mdcache: shutdown stage 7/7 - disorderly path, running emergency cleanup")
		c.emergencyCleanup()
		return ErrShutdown
	}

	logger.Info("mdcache: shutdown stage 7/7 - orderly, releasing remaining entries")
	c.releaseAllEntries(ctx)
	return nil
}

func (c *Cache) stageWithTimeout(parent context.Context, stage func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, c.cfg.ShutdownStageTimeout)
	defer cancel()
	return stage(ctx)
}

// releaseAllEntries walks every remaining entry (orphaned export teardown
// notwithstanding, some may still be refcounted by in-flight work that
// finished between unexport and here) and releases it against the backend,
// without further locking discipline: by this point the reaper is stopped
// and no new requests can arrive.
func (c *Cache) releaseAllEntries(ctx context.Context) {
	for _, e := range c.store.snapshot() {
		if err := c.backend.Release(ctx, e.handle); err != nil {
			logger.Warn("mdcache: release failed for %q during shutdown: %v", e.key, err)
		}
	}
}

// emergencyCleanup releases backend resources for every known entry without
// acquiring any entry-level lock, per §4.7's "emergency cleanup" path: by
// this point one or more stages have already timed out, so waiting on a
// potentially-stuck lock would only make the disorderly shutdown worse.
func (c *Cache) emergencyCleanup() {
	for _, e := range c.store.snapshot() {
		func() {
			defer func() { recover() }()
			_ = c.backend.Release(context.Background(), e.handle)
		}()
	}
}

// names returns a snapshot of every export name currently registered.
func (m *exportMap) names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.exports))
	for name := range m.exports {
		out = append(out, name)
	}
	return out
}

// snapshot returns every entry currently known to the store. Used only by
// shutdown paths, which accept the O(n) copy as a one-time cost.
func (s *entryStore) snapshot() []*entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entry, 0, len(s.byKey))
	for _, e := range s.byKey {
		out = append(out, e)
	}
	return out
}
