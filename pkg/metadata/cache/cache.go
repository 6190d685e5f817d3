package cache

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nimbusnfs/nimbusnfs/internal/logger"
)

// Cache is the stacking facade described in SPEC_FULL.md §4.4: it wraps a
// Backend and presents the same Backend surface upward, answering from
// cached state where possible and delegating to the wrapped backend
// otherwise. It is the single "cache context" value SPEC_FULL.md §9 calls
// for — no package-level mutable state exists, so tests can instantiate as
// many isolated Caches as they like.
type Cache struct {
	cfg     Config
	backend Backend

	store   *entryStore
	engine  *lruEngine
	exports *exportMap
	reaper  *reaper
	delayed *delayedExecutor

	rngMu sync.Mutex
	rng   *rand.Rand

	mu           sync.Mutex
	shuttingDown bool
}

// New builds a Cache stacked in front of backend. It does not start the
// reaper or delayed executor; call Start for that once the Cache is fully
// wired (e.g. after registering exports).
func New(cfg Config, backend Backend) *Cache {
	ApplyDefaults(&cfg)

	engine := newLruEngine(cfg.Lanes, cfg.HotCounterLimit)
	c := &Cache{
		cfg:     cfg,
		backend: backend,
		store:   newEntryStore(engine),
		engine:  engine,
		exports: newExportMap(),
		rng:     rand.New(rand.NewPCG(1, 2)),
	}
	c.delayed = newDelayedExecutor(4)
	c.reaper = newReaper(c)

	if reg, ok := backend.(UpcallRegistrar); ok {
		reg.SetUpcalls(&upcallSink{c: c})
	}

	return c
}

// Start launches the reaper and delayed executor background goroutines.
func (c *Cache) Start() {
	c.reaper.start()
	c.delayed.start()
	logger.Info("mdcache: started (lanes=%d probe_bound=%d attr_ttl=%s)",
		c.cfg.Lanes, c.cfg.ProbeBound, c.cfg.AttrTTL)
}

// AddExport registers a new export name and returns a token that Lookup and
// friends use to resolve which export a request arrived through.
func (c *Cache) AddExport(name string) {
	c.exports.getOrCreate(name)
}

// jitteredTTL returns cfg.AttrTTL plus a uniform random offset in
// [-frac*TTL, +frac*TTL], satisfying SPEC_FULL.md §9's bounded,
// nonzero-variance jitter requirement.
func (c *Cache) jitteredTTL() (ttl, jitter time.Duration) {
	if c.cfg.AttrJitterFraction <= 0 {
		return c.cfg.AttrTTL, 0
	}
	half := float64(c.cfg.AttrTTL) * c.cfg.AttrJitterFraction

	c.rngMu.Lock()
	offset := (c.rng.Float64()*2 - 1) * half
	c.rngMu.Unlock()

	return c.cfg.AttrTTL, time.Duration(offset)
}

func (c *Cache) isShuttingDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shuttingDown
}

// Stats is a snapshot of cache occupancy, useful for tests and admin
// surfacing.
type Stats struct {
	Entries int
}

func (c *Cache) Stats() Stats {
	return Stats{Entries: c.store.count()}
}
