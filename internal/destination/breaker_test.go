package destination

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	b := newBreaker("test", quietLogger(), 3, 2, time.Minute)

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		err := b.Execute(func() error { return boom })
		assert.Equal(t, boom, err)
	}

	err := b.Execute(func() error { return nil })
	require.Error(t, err, "breaker should refuse calls once open")
	assert.Equal(t, breakerOpen, b.state)
}

func TestBreakerHalfOpensAfterRetryWindow(t *testing.T) {
	b := newBreaker("test", quietLogger(), 1, 1, 10*time.Millisecond)

	err := b.Execute(func() error { return errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, breakerOpen, b.state)

	time.Sleep(20 * time.Millisecond)

	called := false
	err = b.Execute(func() error { called = true; return nil })
	require.NoError(t, err)
	assert.True(t, called, "half-open breaker must let a trial call through")
	assert.Equal(t, breakerClosed, b.state)
}

func TestBreakerRequiresSuccessThresholdToClose(t *testing.T) {
	b := newBreaker("test", quietLogger(), 1, 2, 10*time.Millisecond)

	require.Error(t, b.Execute(func() error { return errors.New("boom") }))
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, breakerHalfOpen, b.state, "one success is below the threshold of two")

	require.NoError(t, b.Execute(func() error { return nil }))
	assert.Equal(t, breakerClosed, b.state)
}

func TestBreakerStaysClosedOnIsolatedFailures(t *testing.T) {
	b := newBreaker("test", quietLogger(), 3, 2, time.Minute)

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Execute(func() error { return nil }))
		err := b.Execute(func() error { return errors.New("transient") })
		require.Error(t, err)
	}

	assert.Equal(t, breakerClosed, b.state, "a success between every failure should reset the failure count")
}
