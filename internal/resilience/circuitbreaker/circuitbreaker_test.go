package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StartsClosed(t *testing.T) {
	cb := New(DefaultConfig("test"))

	assert.Equal(t, "test", cb.Name())
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.False(t, cb.IsOpen())
}

func TestExecute_PassesThroughResult(t *testing.T) {
	cb := New(DefaultConfig("test"))

	result, err := cb.Execute(func() (interface{}, error) {
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestExecute_PassesThroughError(t *testing.T) {
	cb := New(DefaultConfig("test"))
	wantErr := errors.New("upstream failed")

	_, err := cb.Execute(func() (interface{}, error) {
		return nil, wantErr
	})

	assert.ErrorIs(t, err, wantErr)
}

func TestExecute_TripsAfterFailureRatio(t *testing.T) {
	cfg := Config{
		Name:             "trip-test",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      4,
	}
	cb := New(cfg)

	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, errors.New("boom")
		})
	}

	assert.True(t, cb.IsOpen(), "breaker should open after sustained failures")

	_, err := cb.Execute(func() (interface{}, error) {
		return "unreachable", nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestExecute_StaysClosedBelowMinRequests(t *testing.T) {
	cfg := Config{
		Name:             "min-requests",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 0.5,
		MinRequests:      10,
	}
	cb := New(cfg)

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (interface{}, error) {
			return nil, errors.New("boom")
		})
	}

	assert.False(t, cb.IsOpen(), "breaker must not trip before MinRequests observations")
}

func TestSessionProviderConfig(t *testing.T) {
	cfg := SessionProviderConfig()

	assert.Equal(t, "session-provider", cfg.Name)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.NotZero(t, cfg.MinRequests)
}
