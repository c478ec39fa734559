package valueio

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func newTestBreaker(maxFailures uint32, cooldown time.Duration) (*CircuitBreaker, *time.Time) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: maxFailures, Cooldown: cooldown, MaxProbes: 1})
	cb.now = func() time.Time { return clock }
	cb.changedAt = clock
	return cb, &clock
}

func TestCircuitBreaker_DefaultConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig()
	assert.Equal(t, uint32(5), cfg.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.Cooldown)
	assert.Equal(t, uint32(1), cfg.MaxProbes)
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	}
	assert.Equal(t, StateClosed, cb.State())

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	_ = cb.Call(func() error { return errBoom })
	_ = cb.Call(func() error { return errBoom })
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, uint32(0), cb.Failures())

	_ = cb.Call(func() error { return errBoom })
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)

	_ = cb.Call(func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())

	*clock = clock.Add(2 * time.Minute)
	assert.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1, time.Minute)

	_ = cb.Call(func() error { return errBoom })
	*clock = clock.Add(2 * time.Minute)

	assert.ErrorIs(t, cb.Call(func() error { return errBoom }), errBoom)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Call(func() error { return nil }), ErrCircuitOpen)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Hour)
	_ = cb.Call(func() error { return errBoom })
	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}
