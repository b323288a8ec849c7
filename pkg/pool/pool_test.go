package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nico26-sw/legato-Service-DataHub/pkg/result"
)

func TestFixedAcquireReleaseRoundTrip(t *testing.T) {
	f := NewFixed(2, 16)

	b1, err := f.Acquire()
	require.NoError(t, err)
	assert.Len(t, b1, 16)

	b2, err := f.Acquire()
	require.NoError(t, err)

	_, err = f.Acquire()
	require.Error(t, err)
	assert.True(t, result.Is(err, result.NoMemory))

	f.Release(b1)
	b3, err := f.Acquire()
	require.NoError(t, err)
	assert.Len(t, b3, 16)

	f.Release(b2)
	f.Release(b3)

	stats := f.Stats()
	assert.Equal(t, int64(2), stats.Capacity)
	assert.Equal(t, int64(0), stats.InUse)
	assert.Equal(t, int64(1), stats.Denied)
}

func TestCounterAcquireReleaseRoundTrip(t *testing.T) {
	c := NewCounter(1)

	require.NoError(t, c.Acquire())
	err := c.Acquire()
	require.Error(t, err)
	assert.True(t, result.Is(err, result.NoMemory))

	c.Release()
	require.NoError(t, c.Acquire())

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Capacity)
	assert.Equal(t, int64(1), stats.InUse)
}

func TestTieredStringPoolClassDerivation(t *testing.T) {
	p := NewTieredStringPool(2)

	_, mediumStats, largeStats := p.Stats()
	assert.Equal(t, int64(8), mediumStats.Capacity)
	assert.Equal(t, int64(2), largeStats.Capacity)

	smallStats, _, _ := p.Stats()
	assert.Equal(t, int64(32), smallStats.Capacity)
}

func TestTieredStringPoolPicksSmallestFittingClass(t *testing.T) {
	p := NewTieredStringPool(1)

	buf, err := p.Acquire([]byte("short"))
	require.NoError(t, err)
	assert.Equal(t, "short", string(buf))
	assert.LessOrEqual(t, cap(buf), SmallBlockSize)
	p.Release(buf)

	mediumPayload := make([]byte, SmallBlockSize+1)
	buf, err = p.Acquire(mediumPayload)
	require.NoError(t, err)
	assert.Greater(t, cap(buf), SmallBlockSize)
	assert.LessOrEqual(t, cap(buf), MediumBlockSize)
	p.Release(buf)
}

func TestTieredStringPoolRejectsOversizedPayload(t *testing.T) {
	p := NewTieredStringPool(1)

	_, err := p.Acquire(make([]byte, LargeBlockSize+1))
	require.Error(t, err)
	assert.True(t, result.Is(err, result.NoMemory))
}
