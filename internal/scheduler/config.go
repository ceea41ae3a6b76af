package scheduler

import (
	"time"

	"github.com/smallbiznis/planbilling/internal/config"
)

// Config controls scheduler cadence and per-job budgets.
type Config struct {
	RunInterval     time.Duration
	CronSpec        string
	BatchSize       int
	BillingTimeout  time.Duration
	CleanupInterval time.Duration
	CleanupTimeout  time.Duration
	Retention       time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:     time.Minute,
		BatchSize:       50,
		BillingTimeout:  5 * time.Minute,
		CleanupInterval: time.Hour,
		CleanupTimeout:  time.Minute,
		Retention:       90 * 24 * time.Hour,
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
	if c.BillingTimeout <= 0 {
		c.BillingTimeout = defaults.BillingTimeout
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = defaults.CleanupInterval
	}
	if c.CleanupTimeout <= 0 {
		c.CleanupTimeout = defaults.CleanupTimeout
	}
	if c.Retention <= 0 {
		c.Retention = defaults.Retention
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.Scheduler.RunInterval,
		CronSpec:    cfg.Scheduler.CronSpec,
		BatchSize:   cfg.Scheduler.BatchSize,
		Retention:   cfg.Notification.Retention,
	}.withDefaults()
}
