package snapshot

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/destination"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/hub"
)

type staticClock struct{}

func (staticClock) Seconds() float64 { return 42 }

func newTestHub(t *testing.T) (*hub.Hub, func()) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	dests := destination.NewRegistry(log)
	h := hub.New(hub.Config{NonStringCapacity: 64, LargeStringBlocks: 4, CommandQueueDepth: 32}, staticClock{}, dests, log)

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	return h, func() {
		cancel()
		h.Wait()
	}
}

func TestSnapshotRunProducesRecordsForPushedEntries(t *testing.T) {
	h, stop := newTestHub(t)
	defer stop()

	require.NoError(t, h.PushNumber("/sensors/temp", 1.0, 21.5))

	var buf bytes.Buffer
	driver := NewDriver(h)
	require.NoError(t, driver.Run(&buf))

	records, err := Decode(buf.Bytes())
	require.NoError(t, err)

	var found bool
	for _, r := range records {
		if r.Path == "/sensors/temp" {
			found = true
			assert.Equal(t, "input", r.Type)
			assert.Equal(t, "21.5", r.Value, "snapshot record should carry the entry's current value")
			assert.True(t, r.New, "an entry's first snapshot should still report it as new")
		}
	}
	assert.True(t, found, "expected a record for the pushed entry")
}

func TestSnapshotSecondRunNoLongerReportsNew(t *testing.T) {
	h, stop := newTestHub(t)
	defer stop()

	require.NoError(t, h.PushNumber("/sensors/temp", 1.0, 21.5))

	driver := NewDriver(h)
	var buf1 bytes.Buffer
	require.NoError(t, driver.Run(&buf1))

	var buf2 bytes.Buffer
	require.NoError(t, driver.Run(&buf2))

	records, err := Decode(buf2.Bytes())
	require.NoError(t, err)

	for _, r := range records {
		if r.Path == "/sensors/temp" {
			assert.False(t, r.New, "a second snapshot of an unchanged entry should not report it as new")
		}
	}
}

func TestSnapshotOmitsDeletedEntryAfterFlush(t *testing.T) {
	h, stop := newTestHub(t)
	defer stop()

	require.NoError(t, h.PushNumber("/sensors/temp", 1.0, 21.5))

	driver := NewDriver(h)
	var buf bytes.Buffer
	require.NoError(t, driver.Run(&buf))

	require.NoError(t, h.DeleteIO("/sensors/temp"))

	var buf2 bytes.Buffer
	require.NoError(t, driver.Run(&buf2))

	records, err := Decode(buf2.Bytes())
	require.NoError(t, err)
	for _, r := range records {
		assert.NotEqual(t, "/sensors/temp", r.Path, "a deleted entry should not appear in a later snapshot's live scan")
	}
}
