package csrf

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClock implements Clock for testing.
type mockClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newMockClock(t time.Time) *mockClock {
	return &mockClock{now: t}
}

func (m *mockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *mockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func newTestManager(clock Clock) *Manager {
	return NewManager(Config{
		TokenTTL:      time.Hour,
		SweepInterval: 15 * time.Minute,
	}, clock, nil)
}

func TestManager_TokenValidatesExactlyOnce(t *testing.T) {
	clock := newMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	manager := newTestManager(clock)

	token, expiresAt := manager.Issue("session-A")
	require.NotEmpty(t, token)
	assert.Equal(t, clock.Now().Add(time.Hour), expiresAt)

	assert.Equal(t, Valid, manager.Validate("session-A", token))
	assert.Equal(t, AlreadyUsed, manager.Validate("session-A", token))
}

func TestManager_ValidateResultTaxonomy(t *testing.T) {
	clock := newMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	manager := newTestManager(clock)

	token, _ := manager.Issue("session-A")

	tests := []struct {
		name      string
		sessionID string
		token     string
		want      Result
	}{
		{
			name:      "empty token",
			sessionID: "session-A",
			token:     "",
			want:      Missing,
		},
		{
			name:      "unknown session",
			sessionID: "session-B",
			token:     token,
			want:      NotFound,
		},
		{
			name:      "wrong token",
			sessionID: "session-A",
			token:     "not-the-token",
			want:      Mismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, manager.Validate(tt.sessionID, tt.token))
		})
	}
}

func TestManager_TokenExpiresAfterTTL(t *testing.T) {
	clock := newMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	manager := newTestManager(clock)

	token, _ := manager.Issue("session-A")

	clock.Advance(time.Hour + time.Second)

	assert.Equal(t, Expired, manager.Validate("session-A", token))

	// The expired record is evicted, so a retry sees no record at all.
	assert.Equal(t, NotFound, manager.Validate("session-A", token))
}

func TestManager_ReissueInvalidatesPreviousToken(t *testing.T) {
	clock := newMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	manager := newTestManager(clock)

	first, _ := manager.Issue("session-A")
	second, _ := manager.Issue("session-A")
	require.NotEqual(t, first, second)

	assert.Equal(t, Mismatch, manager.Validate("session-A", first))
	assert.Equal(t, Valid, manager.Validate("session-A", second))
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	clock := newMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	manager := newTestManager(clock)

	tokenA, _ := manager.Issue("session-A")
	tokenB, _ := manager.Issue("session-B")

	assert.Equal(t, Valid, manager.Validate("session-A", tokenA))
	assert.Equal(t, Valid, manager.Validate("session-B", tokenB))
}

func TestManager_SweepRemovesExpiredRecordsOnly(t *testing.T) {
	clock := newMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	manager := newTestManager(clock)

	manager.Issue("expired-unused")
	expiredUsed, _ := manager.Issue("expired-used")
	require.Equal(t, Valid, manager.Validate("expired-used", expiredUsed))

	clock.Advance(30 * time.Minute)
	manager.Issue("fresh")

	clock.Advance(45 * time.Minute)

	// Both hour-old records are gone regardless of used state; the fresh
	// one (45 minutes old) survives.
	removed := manager.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, manager.TokenCount())
}

func TestManager_ConcurrentValidationConsumesOnce(t *testing.T) {
	clock := newMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	manager := newTestManager(clock)

	token, _ := manager.Issue("session-A")

	const goroutines = 50

	var wg sync.WaitGroup
	results := make(chan Result, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- manager.Validate("session-A", token)
		}()
	}
	wg.Wait()
	close(results)

	validCount := 0
	for result := range results {
		if result == Valid {
			validCount++
		}
	}

	assert.Equal(t, 1, validCount, "exactly one concurrent validation may succeed")
}

func TestManager_ConcurrentSweepIsSafe(t *testing.T) {
	clock := newMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	manager := newTestManager(clock)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sessionID := string(rune('a' + n%10))
			token, _ := manager.Issue(sessionID)
			manager.Validate(sessionID, token)
			manager.Sweep()
		}(i)
	}
	wg.Wait()
}
