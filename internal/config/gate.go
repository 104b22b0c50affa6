// Package config loads the gate's configuration from a YAML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	pkgconfig "contentgate/pkg/config"
)

// Duration wraps time.Duration so YAML values can be written as "60s",
// "5m", "1h" instead of nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RateLimitSettings tunes the per-client rate limiter.
type RateLimitSettings struct {
	Window        Duration `yaml:"window"`
	MaxChecks     int      `yaml:"max_checks"`
	BlockDuration Duration `yaml:"block_duration"`
	MaxKeys       int      `yaml:"max_keys"`
	Compaction    Duration `yaml:"compaction_interval"`
	Enabled       *bool    `yaml:"enabled"`
}

// CSRFSettings tunes the CSRF token lifecycle.
type CSRFSettings struct {
	TokenTTL      Duration `yaml:"token_ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// SessionProviderSettings selects and tunes the session provider.
type SessionProviderSettings struct {
	// Mode is "http" (call the identity provider) or "static" (verify a
	// signed local cookie; development only).
	Mode string `yaml:"mode"`

	BaseURL           string   `yaml:"base_url"`
	SessionPath       string   `yaml:"session_path"`
	Timeout           Duration `yaml:"timeout"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Burst             int      `yaml:"burst"`

	// CookieName is the session cookie for static mode.
	CookieName string `yaml:"cookie_name"`
}

// GateConfig is the full configuration surface of the gate.
type GateConfig struct {
	Listen            string   `yaml:"listen"`
	DownstreamURL     string   `yaml:"downstream_url"`
	ProtectedPrefixes []string `yaml:"protected_prefixes"`
	AuthOnlyPrefixes  []string `yaml:"auth_only_prefixes"`
	AuthEntryPath     string   `yaml:"auth_entry_path"`
	AppHomePath       string   `yaml:"app_home_path"`

	// FailOpenOnTimeout treats session lookup timeouts as degraded
	// pass-through instead of unauthenticated routing.
	FailOpenOnTimeout bool `yaml:"fail_open_on_timeout"`

	RateLimit RateLimitSettings       `yaml:"rate_limit"`
	CSRF      CSRFSettings            `yaml:"csrf"`
	Sessions  SessionProviderSettings `yaml:"sessions"`
}

// ApplyDefaults fills zero-valued fields with defaults.
func (c *GateConfig) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.AuthEntryPath == "" {
		c.AuthEntryPath = "/auth/signin"
	}
	if c.AppHomePath == "" {
		c.AppHomePath = "/app"
	}
	if len(c.ProtectedPrefixes) == 0 {
		c.ProtectedPrefixes = []string{"/app", "/api/v1"}
	}
	if len(c.AuthOnlyPrefixes) == 0 {
		c.AuthOnlyPrefixes = []string{"/auth"}
	}
	if c.Sessions.Mode == "" {
		c.Sessions.Mode = "http"
	}
}

// Validate checks the configuration for required fields and consistency.
func (c *GateConfig) Validate() error {
	if c.DownstreamURL == "" {
		return errors.New("downstream_url is required")
	}
	switch c.Sessions.Mode {
	case "http":
		if c.Sessions.BaseURL == "" {
			return errors.New("sessions.base_url is required in http mode")
		}
	case "static":
		// Signing key arrives via GATE_SESSION_SIGNING_KEY, checked at wiring time.
	default:
		return fmt.Errorf("sessions.mode %q must be \"http\" or \"static\"", c.Sessions.Mode)
	}
	if d := c.Sessions.Timeout.Std(); d != 0 {
		if err := pkgconfig.ValidatePositiveDuration(d); err != nil {
			return fmt.Errorf("sessions.timeout: %w", err)
		}
	}
	if d := c.CSRF.TokenTTL.Std(); d != 0 {
		if err := pkgconfig.ValidatePositiveDuration(d); err != nil {
			return fmt.Errorf("csrf.token_ttl: %w", err)
		}
	}
	return nil
}

// Load reads, parses, and validates the gate configuration.
//
// The path argument may be empty, in which case GATE_CONFIG_PATH is
// consulted and finally "gate.yaml" in the working directory. A missing
// file is not an error; the built-in defaults apply.
func Load(path string) (*GateConfig, error) {
	if path == "" {
		path = pkgconfig.GetEnvString("GATE_CONFIG_PATH", "gate.yaml")
	}

	cfg := &GateConfig{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Run on defaults; deployment values can still come via env.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override file values
// without editing the YAML.
func applyEnvOverrides(cfg *GateConfig) {
	cfg.Listen = pkgconfig.GetEnvString("GATE_LISTEN", cfg.Listen)
	cfg.DownstreamURL = pkgconfig.GetEnvString("GATE_DOWNSTREAM_URL", cfg.DownstreamURL)
	cfg.Sessions.BaseURL = pkgconfig.GetEnvString("GATE_SESSION_PROVIDER_URL", cfg.Sessions.BaseURL)
	cfg.Sessions.Mode = pkgconfig.GetEnvString("GATE_SESSION_PROVIDER_MODE", cfg.Sessions.Mode)
	cfg.FailOpenOnTimeout = pkgconfig.GetEnvBool("GATE_FAIL_OPEN_ON_TIMEOUT", cfg.FailOpenOnTimeout)
	cfg.ProtectedPrefixes = pkgconfig.GetEnvStringList("GATE_PROTECTED_PREFIXES", cfg.ProtectedPrefixes)
	cfg.AuthOnlyPrefixes = pkgconfig.GetEnvStringList("GATE_AUTH_ONLY_PREFIXES", cfg.AuthOnlyPrefixes)
}
