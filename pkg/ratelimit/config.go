package ratelimit

import (
	"fmt"
	"time"
)

// Config contains the configuration for the escalating rate limiter.
type Config struct {
	// Window is the rolling time window for counting checks.
	// Default: 60 seconds.
	Window time.Duration

	// MaxChecks is the maximum number of checks allowed inside one window
	// before the client is escalated into a block.
	// Default: 10.
	MaxChecks int

	// BlockDuration is how long an escalated block lasts.
	// Default: 300 seconds.
	BlockDuration time.Duration

	// MaxKeys is the maximum number of client identities kept in memory.
	// When the cap is reached, the stalest records are evicted.
	// Default: 10000.
	MaxKeys int

	// CompactionInterval is how often stale records are removed in the
	// background. Default: 5 minutes.
	CompactionInterval time.Duration

	// Enabled is a feature flag; when false every check is allowed.
	// Default: true.
	Enabled bool
}

// Validate checks if the Config is valid.
//
// Returns an error if any configuration values are invalid.
func (c *Config) Validate() error {
	if c.Window < 0 {
		return fmt.Errorf("Window must be non-negative, got %s", c.Window)
	}
	if c.MaxChecks < 0 {
		return fmt.Errorf("MaxChecks must be non-negative, got %d", c.MaxChecks)
	}
	if c.BlockDuration < 0 {
		return fmt.Errorf("BlockDuration must be non-negative, got %s", c.BlockDuration)
	}
	if c.BlockDuration > 0 && c.BlockDuration < c.Window {
		return fmt.Errorf("BlockDuration (%s) must not be shorter than Window (%s)", c.BlockDuration, c.Window)
	}
	if c.MaxKeys < 0 {
		return fmt.Errorf("MaxKeys must be non-negative, got %d", c.MaxKeys)
	}
	if c.CompactionInterval < 0 {
		return fmt.Errorf("CompactionInterval must be non-negative, got %s", c.CompactionInterval)
	}
	return nil
}

// ApplyDefaults sets safe default values for any missing or zero configuration values.
//
// This ensures the limiter can function even if the configuration is incomplete.
func (c *Config) ApplyDefaults() {
	if c.Window == 0 {
		c.Window = 60 * time.Second
	}
	if c.MaxChecks == 0 {
		c.MaxChecks = 10
	}
	if c.BlockDuration == 0 {
		c.BlockDuration = 300 * time.Second
	}
	if c.MaxKeys == 0 {
		c.MaxKeys = 10000
	}
	if c.CompactionInterval == 0 {
		c.CompactionInterval = 5 * time.Minute
	}
}

// DefaultConfig returns a Config with safe default values.
func DefaultConfig() Config {
	config := Config{Enabled: true}
	config.ApplyDefaults()
	return config
}
