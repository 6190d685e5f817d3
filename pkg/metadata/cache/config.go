package cache

import "time"

// Config configures a Cache instance. It is designed to compose into the
// host process's layered configuration (flags > env > file > defaults) the
// same way the rest of this project's stores do: plain fields tagged for
// mapstructure decoding and go-playground/validator validation.
type Config struct {
	// Lanes is the number of LRU shard lanes. Should be a small prime or
	// power of two; fixed for the lifetime of the Cache.
	Lanes int `mapstructure:"lanes" validate:"required,gt=0"`

	// ProbeBound is the maximum quadratic-probe distance the dirent index
	// will walk before returning TOO_MANY_COLLISIONS.
	ProbeBound int `mapstructure:"probe_bound" validate:"required,gt=0"`

	// AttrTTL is the base attribute cache lifetime before a refresh from
	// the backend is required.
	AttrTTL time.Duration `mapstructure:"attr_ttl" validate:"required,gt=0"`

	// AttrJitterFraction is the fraction of AttrTTL used as the half-width
	// of the uniform jitter applied to each entry's expiry, to avoid
	// thundering herds after a mass create. 0 disables jitter.
	AttrJitterFraction float64 `mapstructure:"attr_jitter_fraction" validate:"gte=0,lt=1"`

	// ReaperInterval is how often the reaper wakes on its own, independent
	// of memory-pressure signals.
	ReaperInterval time.Duration `mapstructure:"reaper_interval" validate:"required,gt=0"`

	// HotCounterLimit is the number of L1 touches a lane tolerates before
	// demoting its coldest L1 members back to L2.
	HotCounterLimit int `mapstructure:"hot_counter_limit" validate:"required,gt=0"`

	// ShutdownStageTimeout bounds each stage of the teardown sequence
	// described in §4.7; a stage that exceeds it flips the cache into the
	// disorderly shutdown path.
	ShutdownStageTimeout time.Duration `mapstructure:"shutdown_stage_timeout" validate:"required,gt=0"`
}

// DefaultProbeBound is the reference implementation's recommended, and this
// package's fixed, quadratic-probe bound (see SPEC_FULL.md §9).
const DefaultProbeBound = 64

// DefaultConfig returns production-ready defaults, following the same
// zero-value-replacement convention as this project's pkg/config.
func DefaultConfig() Config {
	return Config{
		Lanes:                7,
		ProbeBound:           DefaultProbeBound,
		AttrTTL:              5 * time.Second,
		AttrJitterFraction:   0.1,
		ReaperInterval:       30 * time.Second,
		HotCounterLimit:      64,
		ShutdownStageTimeout: 10 * time.Second,
	}
}

// ApplyDefaults fills zero-valued fields of cfg with DefaultConfig's values,
// in the same style as this project's pkg/config.ApplyDefaults.
func ApplyDefaults(cfg *Config) {
	d := DefaultConfig()
	if cfg.Lanes == 0 {
		cfg.Lanes = d.Lanes
	}
	if cfg.ProbeBound == 0 {
		cfg.ProbeBound = d.ProbeBound
	}
	if cfg.AttrTTL == 0 {
		cfg.AttrTTL = d.AttrTTL
	}
	if cfg.AttrJitterFraction == 0 {
		cfg.AttrJitterFraction = d.AttrJitterFraction
	}
	if cfg.ReaperInterval == 0 {
		cfg.ReaperInterval = d.ReaperInterval
	}
	if cfg.HotCounterLimit == 0 {
		cfg.HotCounterLimit = d.HotCounterLimit
	}
	if cfg.ShutdownStageTimeout == 0 {
		cfg.ShutdownStageTimeout = d.ShutdownStageTimeout
	}
}
