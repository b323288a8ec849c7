package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/destination"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/sample"
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/clock"
)

type recordingDestination struct {
	name string
	recs []destination.Record
}

func (d *recordingDestination) Name() string                      { return d.name }
func (d *recordingDestination) Start(ctx context.Context) error    { return nil }
func (d *recordingDestination) Stop() error                        { return nil }
func (d *recordingDestination) Send(r destination.Record) error {
	d.recs = append(d.recs, r)
	return nil
}

func newTestSampleStore() *sample.Store {
	return sample.NewStore(clock.System{}, 64, 4)
}

func TestIOHasAdminSettings(t *testing.T) {
	io := NewIO(DirectionOutput)
	assert.False(t, io.HasAdminSettings())

	io.Configure("dest1", nil, "")
	assert.True(t, io.HasAdminSettings())
}

func TestIOPushRetainsLastAndReleasesPrevious(t *testing.T) {
	st := newTestSampleStore()
	io := NewIO(DirectionInput)

	s1, err := st.CreateNumber(1.0, 1)
	require.NoError(t, err)
	require.NoError(t, io.Push("/p", s1))
	s1.Release() // caller's own ref

	last := io.Last()
	require.NotNil(t, last)
	assert.Equal(t, 1.0, last.GetNumber())
	last.Release()

	s2, err := st.CreateNumber(2.0, 2)
	require.NoError(t, err)
	require.NoError(t, io.Push("/p", s2))
	s2.Release()

	last = io.Last()
	require.NotNil(t, last)
	assert.Equal(t, 2.0, last.GetNumber())
	last.Release()

	io.Close()
	assert.Nil(t, io.Last())
}

func TestIOPushForwardsToConfiguredOutputDestination(t *testing.T) {
	st := newTestSampleStore()
	dest := &recordingDestination{name: "d1"}
	io := NewIO(DirectionOutput)
	io.Configure("d1", dest, "")

	s, err := st.CreateNumber(3.0, 42)
	require.NoError(t, err)
	require.NoError(t, io.Push("/out/path", s))
	s.Release()

	require.Len(t, dest.recs, 1)
	assert.Equal(t, "/out/path", dest.recs[0].Path)
	assert.Equal(t, "42", string(dest.recs[0].JSON))
}

func TestIOPushInputDirectionDoesNotForward(t *testing.T) {
	st := newTestSampleStore()
	dest := &recordingDestination{name: "d1"}
	io := NewIO(DirectionInput)
	io.Configure("d1", dest, "")

	s, err := st.CreateNumber(1.0, 1)
	require.NoError(t, err)
	require.NoError(t, io.Push("/in/path", s))
	s.Release()

	assert.Empty(t, dest.recs, "an input resource must not forward to a destination")
}
