package scheduler

import (
	"time"

	appconfig "github.com/visalane/visalane/internal/config"
)

// Config controls sweep intervals and batch sizes.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	// GraceDays is the business-day deadline applied to stale bookings and
	// unanswered disputes.
	GraceDays int
	// EnabledJobs limits RunOnce to the named jobs; empty runs everything.
	EnabledJobs []string
	// ForcePayout runs the weekly payout job regardless of weekday, for
	// manual re-runs.
	ForcePayout bool
	LockTTL     time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 30 * time.Minute,
		BatchSize:   50,
		GraceDays:   3,
		LockTTL:     10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.GraceDays <= 0 {
		c.GraceDays = defaults.GraceDays
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}

func ProvideConfig(cfg appconfig.Config) Config {
	return Config{
		RunInterval: cfg.SweepInterval,
		BatchSize:   cfg.SweepBatchSize,
		GraceDays:   cfg.GraceDays,
		ForcePayout: cfg.PayoutForce,
	}.withDefaults()
}
