package csrf

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// record holds the CSRF state for a single session identity.
type record struct {
	token     string
	issuedAt  time.Time
	expiresAt time.Time
	used      bool
}

// Config contains the configuration for the CSRF token manager.
type Config struct {
	// TokenTTL is how long an issued token stays valid.
	// Default: 1 hour.
	TokenTTL time.Duration

	// SweepInterval is how often the background sweep removes expired
	// records. Default: 15 minutes.
	SweepInterval time.Duration
}

// Validate checks if the Config is valid.
func (c *Config) Validate() error {
	if c.TokenTTL < 0 {
		return fmt.Errorf("TokenTTL must be non-negative, got %s", c.TokenTTL)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("SweepInterval must be non-negative, got %s", c.SweepInterval)
	}
	return nil
}

// ApplyDefaults sets safe default values for any missing or zero
// configuration values.
func (c *Config) ApplyDefaults() {
	if c.TokenTTL == 0 {
		c.TokenTTL = 1 * time.Hour
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 15 * time.Minute
	}
}

// DefaultConfig returns a Config with safe default values.
func DefaultConfig() Config {
	config := Config{}
	config.ApplyDefaults()
	return config
}

// Manager issues and validates single-use, time-boxed CSRF tokens.
//
// The session-to-record table is guarded by one mutex; Issue, Validate, and
// Sweep all take the same lock, so a sweep can run concurrently with request
// handling without corrupting the used/overwrite semantics.
type Manager struct {
	mu      sync.Mutex
	tokens  map[string]*record
	config  Config
	clock   Clock
	metrics Metrics
}

// NewManager creates a new CSRF token manager.
//
// A nil clock falls back to the system clock; nil metrics are discarded.
func NewManager(config Config, clock Clock, metrics Metrics) *Manager {
	config.ApplyDefaults()

	if clock == nil {
		clock = &SystemClock{}
	}
	if metrics == nil {
		metrics = &NoOpMetrics{}
	}

	return &Manager{
		tokens:  make(map[string]*record),
		config:  config,
		clock:   clock,
		metrics: metrics,
	}
}

// Config returns the manager's effective configuration (defaults applied).
func (m *Manager) Config() Config {
	return m.config
}

// Issue generates a fresh token for the session and returns it together with
// its absolute expiry time.
//
// Any existing record for the session is overwritten, which invalidates the
// previous token even if it was never used. Only the most recently issued
// token can ever validate.
func (m *Manager) Issue(sessionID string) (string, time.Time) {
	now := m.clock.Now()
	token := uuid.NewString()
	expiresAt := now.Add(m.config.TokenTTL)

	m.mu.Lock()
	m.tokens[sessionID] = &record{
		token:     token,
		issuedAt:  now,
		expiresAt: expiresAt,
	}
	m.mu.Unlock()

	m.metrics.RecordIssued()

	return token, expiresAt
}

// Validate checks a presented token against the session's stored record.
//
// Verdict order: Missing (empty token), NotFound (no record), Expired
// (record evicted as a side effect), AlreadyUsed, Mismatch, Valid. On Valid
// the record is marked used before returning, so a concurrent second
// validation of the same token observes AlreadyUsed.
func (m *Manager) Validate(sessionID, providedToken string) Result {
	result := m.validate(sessionID, providedToken)
	m.metrics.RecordValidation(result.String())
	return result
}

func (m *Manager) validate(sessionID, providedToken string) Result {
	if providedToken == "" {
		return Missing
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, exists := m.tokens[sessionID]
	if !exists {
		return NotFound
	}

	if m.clock.Now().After(rec.expiresAt) {
		delete(m.tokens, sessionID)
		return Expired
	}

	if rec.used {
		return AlreadyUsed
	}

	if rec.token != providedToken {
		return Mismatch
	}

	rec.used = true
	return Valid
}

// Sweep removes all expired records regardless of their used state and
// returns the number removed.
//
// It runs on a fixed schedule in the background (see StartSweep) and is also
// safe to call on demand.
func (m *Manager) Sweep() int {
	now := m.clock.Now()

	m.mu.Lock()
	removed := 0
	for sessionID, rec := range m.tokens {
		if now.After(rec.expiresAt) {
			delete(m.tokens, sessionID)
			removed++
		}
	}
	remaining := len(m.tokens)
	m.mu.Unlock()

	m.metrics.RecordSwept(removed)
	m.metrics.SetActiveTokens(remaining)

	if removed > 0 {
		slog.Debug("csrf sweep completed",
			slog.Int("removed", removed),
			slog.Int("remaining", remaining),
		)
	}

	return removed
}

// TokenCount returns the number of live records, expired or not.
func (m *Manager) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}
