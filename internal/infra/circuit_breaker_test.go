package infra

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failN(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		_ = b.Do(func() error { return errBoom })
	}
}

func TestBreaker_TripsAfterFailureThreshold(t *testing.T) {
	b := NewBreaker("products", BreakerConfig{FailureThreshold: 3, OpenTimeout: time.Minute})

	failN(b, 2)
	assert.Equal(t, BreakerClosed, b.State())

	failN(b, 1)
	assert.Equal(t, BreakerOpen, b.State())

	err := b.Do(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker("products", BreakerConfig{FailureThreshold: 3, OpenTimeout: time.Minute})

	failN(b, 2)
	require.NoError(t, b.Do(func() error { return nil }))
	failN(b, 2)

	// Two failures after a success: still under the threshold.
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_HalfOpenProbeRecovers(t *testing.T) {
	b := NewBreaker("products", BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Millisecond,
	})

	failN(b, 1)
	require.Equal(t, BreakerOpen, b.State())

	time.Sleep(15 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, b.State())

	// Two successful probes close the breaker again.
	require.NoError(t, b.Do(func() error { return nil }))
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b := NewBreaker("products", BreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		OpenTimeout:      10 * time.Millisecond,
	})

	failN(b, 1)
	time.Sleep(15 * time.Millisecond)
	require.Equal(t, BreakerHalfOpen, b.State())

	failN(b, 1)
	assert.Equal(t, BreakerOpen, b.State())
}

func TestBreaker_PassesErrorThrough(t *testing.T) {
	b := NewBreaker("products", DefaultBreakerConfig())
	err := b.Do(func() error { return errBoom })
	assert.ErrorIs(t, err, errBoom)
}
