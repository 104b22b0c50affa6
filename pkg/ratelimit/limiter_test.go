package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// MockClock implements Clock for testing.
type MockClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func newTestLimiter(clock Clock) *Limiter {
	return NewLimiter(Config{
		Window:        60 * time.Second,
		MaxChecks:     10,
		BlockDuration: 300 * time.Second,
		Enabled:       true,
	}, nil, clock, nil)
}

func TestLimiter_AllowsUpToMaxChecksInWindow(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(clock)

	for i := 1; i <= 10; i++ {
		decision, err := limiter.Check(ctx, "203.0.113.5", "/app")
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if !decision.Allowed {
			t.Errorf("check %d: Allowed = false, want true", i)
		}
		if decision.Remaining != 10-i {
			t.Errorf("check %d: Remaining = %d, want %d", i, decision.Remaining, 10-i)
		}
		clock.Advance(1 * time.Second)
	}
}

func TestLimiter_EleventhCheckEscalatesIntoBlock(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(clock)

	for i := 0; i < 10; i++ {
		if _, err := limiter.Check(ctx, "client-a", "/app"); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}

	decision, err := limiter.Check(ctx, "client-a", "/app")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if decision.Allowed {
		t.Fatal("11th check: Allowed = true, want false")
	}
	if !decision.Blocked {
		t.Error("11th check: Blocked = false, want true")
	}
	if decision.Remaining != 0 {
		t.Errorf("11th check: Remaining = %d, want 0", decision.Remaining)
	}
}

func TestLimiter_BlockOutlivesWindow(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(clock)

	for i := 0; i < 11; i++ {
		if _, err := limiter.Check(ctx, "client-a", "/app"); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}

	// Well past the 60s window but inside the 300s block.
	clock.Advance(120 * time.Second)

	decision, err := limiter.Check(ctx, "client-a", "/app")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if decision.Allowed {
		t.Error("check inside block duration: Allowed = true, want false")
	}
}

func TestLimiter_DeniedChecksDoNotExtendBlock(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(clock)

	for i := 0; i < 11; i++ {
		if _, err := limiter.Check(ctx, "client-a", "/app"); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}
	blockedAt := clock.Now()

	// Keep hammering every 60 seconds while blocked. The block timestamp
	// must not move, so the 301st second still clears it.
	for i := 0; i < 4; i++ {
		clock.Advance(60 * time.Second)
		decision, err := limiter.Check(ctx, "client-a", "/app")
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if decision.Allowed {
			t.Fatalf("check at +%s: Allowed = true, want false", clock.Now().Sub(blockedAt))
		}
	}

	clock.Advance(61 * time.Second) // 301s since the block was set

	decision, err := limiter.Check(ctx, "client-a", "/app")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !decision.Allowed {
		t.Error("check after block expiry: Allowed = false, want true")
	}
	if decision.Remaining != 9 {
		t.Errorf("check after block expiry: Remaining = %d, want 9 (fresh window)", decision.Remaining)
	}
}

func TestLimiter_WindowExpiryResetsCount(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(clock)

	for i := 0; i < 9; i++ {
		if _, err := limiter.Check(ctx, "client-a", "/app"); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}

	clock.Advance(61 * time.Second)

	decision, err := limiter.Check(ctx, "client-a", "/app")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !decision.Allowed {
		t.Fatal("check in new window: Allowed = false, want true")
	}
	if decision.Remaining != 9 {
		t.Errorf("Remaining = %d, want 9 (count reset to 1)", decision.Remaining)
	}
}

func TestLimiter_IdentitiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(clock)

	for i := 0; i < 11; i++ {
		if _, err := limiter.Check(ctx, "client-a", "/app"); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}

	decision, err := limiter.Check(ctx, "client-b", "/app")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !decision.Allowed {
		t.Error("different identity: Allowed = false, want true")
	}
}

func TestLimiter_ConcurrentChecksNeverExceedLimit(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	limiter := newTestLimiter(clock)

	const goroutines = 100

	var wg sync.WaitGroup
	allowed := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decision, err := limiter.Check(ctx, "client-a", "/app")
			if err != nil {
				t.Errorf("Check() error = %v", err)
				return
			}
			allowed <- decision.Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	allowedCount := 0
	for a := range allowed {
		if a {
			allowedCount++
		}
	}

	if allowedCount > 10 {
		t.Errorf("allowed %d concurrent checks, want at most 10", allowedCount)
	}
}

func TestLimiter_DisabledAllowsEverything(t *testing.T) {
	ctx := context.Background()
	limiter := NewLimiter(Config{Enabled: false}, nil, nil, nil)

	for i := 0; i < 50; i++ {
		decision, err := limiter.Check(ctx, "client-a", "/app")
		if err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if !decision.Allowed {
			t.Fatal("disabled limiter denied a check")
		}
	}
}

func TestLimiter_CompactRemovesStaleRecords(t *testing.T) {
	ctx := context.Background()
	clock := NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := NewInMemoryStore(InMemoryStoreConfig{MaxKeys: 100})
	limiter := NewLimiter(Config{
		Window:        60 * time.Second,
		MaxChecks:     10,
		BlockDuration: 300 * time.Second,
		Enabled:       true,
	}, store, clock, nil)

	// One active client, one blocked client, one idle client.
	if _, err := limiter.Check(ctx, "idle", "/app"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 11; i++ {
		if _, err := limiter.Check(ctx, "blocked", "/app"); err != nil {
			t.Fatal(err)
		}
	}

	clock.Advance(90 * time.Second)
	if _, err := limiter.Check(ctx, "active", "/app"); err != nil {
		t.Fatal(err)
	}

	// At +90s: "idle" window has elapsed, "blocked" is still serving its
	// block, "active" was just seen.
	removed, err := limiter.Compact(ctx)
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Compact() removed = %d, want 1", removed)
	}

	count, err := store.KeyCount(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("KeyCount() = %d, want 2", count)
	}

	// Blocked record becomes removable once its block has expired.
	clock.Advance(300 * time.Second)
	removed, err = limiter.Compact(ctx)
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Compact() removed = %d, want 2", removed)
	}
}
