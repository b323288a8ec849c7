package hub

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/destination"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/tree"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingDestination struct {
	name string
	recs []destination.Record
}

func (d *recordingDestination) Name() string                   { return d.name }
func (d *recordingDestination) Start(ctx context.Context) error { return nil }
func (d *recordingDestination) Stop() error                     { return nil }
func (d *recordingDestination) Send(r destination.Record) error {
	d.recs = append(d.recs, r)
	return nil
}

func newTestHub(t *testing.T) (*Hub, *destination.Registry, func()) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	dests := destination.NewRegistry(log)
	h := New(Config{NonStringCapacity: 64, LargeStringBlocks: 4, CommandQueueDepth: 32}, clockStub{}, dests, log)

	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	return h, dests, func() {
		cancel()
		h.Wait()
	}
}

type clockStub struct{}

func (clockStub) Seconds() float64 { return 100.0 }

func TestPushNumberCreatesInputAndRecordsLast(t *testing.T) {
	h, _, stop := newTestHub(t)
	defer stop()

	require.NoError(t, h.PushNumber("/sensors/temp", 1.0, 21.5))

	v, ok, err := h.tree.Find(h.tree.Root(), "/sensors/temp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tree.TypeInput, v.Type())
}

func TestPushOutputForwardsToDestination(t *testing.T) {
	h, dests, stop := newTestHub(t)
	defer stop()

	dest := &recordingDestination{name: "sink1"}
	require.NoError(t, dests.Register(context.Background(), "sink1", dest))

	require.NoError(t, h.CreateOutput("/out/a", "sink1", ""))
	require.NoError(t, h.PushNumber("/out/a", 1.0, 7))

	require.Len(t, dest.recs, 1)
	assert.Equal(t, "/out/a", dest.recs[0].Path)
	assert.Equal(t, "7", string(dest.recs[0].JSON))
}

func TestCreateOutputUnknownDestinationIsNotFound(t *testing.T) {
	h, _, stop := newTestHub(t)
	defer stop()

	err := h.CreateOutput("/out/a", "missing", "")
	require.Error(t, err)
}

func TestDeleteIORemovesUnconfiguredInput(t *testing.T) {
	h, _, stop := newTestHub(t)
	defer stop()

	require.NoError(t, h.PushTrigger("/io/t1", 1.0))
	require.NoError(t, h.DeleteIO("/io/t1"))

	_, ok, err := h.tree.Find(h.tree.Root(), "/io/t1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtractAndPushRoutesSubscriptValue(t *testing.T) {
	h, _, stop := newTestHub(t)
	defer stop()

	require.NoError(t, h.PushJSON("/src", 1.0, []byte(`{"reading":12.5}`)))
	require.NoError(t, h.ExtractAndPush("/src", "reading", "/dst"))

	v, ok, err := h.tree.Find(h.tree.Root(), "/dst")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tree.TypeInput, v.Type())
}

func TestObservationPushAndQuery(t *testing.T) {
	h, _, stop := newTestHub(t)
	defer stop()

	for _, v := range []float64{1, 2, 3} {
		require.NoError(t, h.Observe("/obs/temp", 1.0, v))
	}

	stats, found, err := h.QueryObservation("/obs/temp")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 3.0, stats.Max)
	assert.Equal(t, 2.0, stats.Mean)
}

func TestObservationPathRoutesWithoutLeadingSlash(t *testing.T) {
	h, _, stop := newTestHub(t)
	defer stop()

	require.NoError(t, h.Observe("obs/pressure", 1.0, 5))
	v, ok, err := h.tree.Find(h.tree.Root(), "obs/pressure")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tree.TypeObservation, v.Type())
}

func TestOnResourceTreeChangeNotifiesOnPush(t *testing.T) {
	h, _, stop := newTestHub(t)
	defer stop()

	type event struct {
		path string
		kind tree.Type
	}
	events := make(chan event, 8)
	unregister := h.OnResourceTreeChange(func(path string, kind tree.Type) {
		events <- event{path, kind}
	})
	defer unregister()

	require.NoError(t, h.PushTrigger("/watched", 1.0))

	select {
	case ev := <-events:
		assert.Equal(t, "/watched", ev.path)
		assert.Equal(t, tree.TypeInput, ev.kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestUnitsRoundTrip(t *testing.T) {
	h, _, stop := newTestHub(t)
	defer stop()

	require.NoError(t, h.PushNumber("/sensors/temp", 1.0, 21.5))
	require.NoError(t, h.SetUnits("/sensors/temp", "degC"))
	assert.Equal(t, "degC", h.GetUnits("/sensors/temp"))
}

func TestGetUnitsOnMissingPathIsEmptySentinel(t *testing.T) {
	h, _, stop := newTestHub(t)
	defer stop()

	assert.Equal(t, "", h.GetUnits("/never/pushed"))
}

func TestChangeByFiltersSmallDeltas(t *testing.T) {
	h, dests, stop := newTestHub(t)
	defer stop()

	dest := &recordingDestination{name: "sink"}
	require.NoError(t, dests.Register(context.Background(), "sink", dest))
	require.NoError(t, h.CreateOutput("/s", "sink", ""))

	require.NoError(t, h.PushNumber("/s", 1.0, 10.0))
	require.NoError(t, h.SetChangeBy("/s", 1.0))

	require.NoError(t, h.PushNumber("/s", 2.0, 10.4)) // delta 0.4 < 1.0: dropped
	require.NoError(t, h.PushNumber("/s", 3.0, 12.0)) // delta 2.0 >= 1.0: accepted

	require.Len(t, dest.recs, 2, "only the initial push and the large-delta push should reach the destination")
	assert.Equal(t, "12", string(dest.recs[1].JSON))
}

func TestHighLowLimitDropsOutOfRangePush(t *testing.T) {
	h, dests, stop := newTestHub(t)
	defer stop()

	dest := &recordingDestination{name: "sink"}
	require.NoError(t, dests.Register(context.Background(), "sink", dest))
	require.NoError(t, h.CreateOutput("/bounded", "sink", ""))

	hi, lo := 100.0, 0.0
	require.NoError(t, h.SetHighLimit("/bounded", &hi))
	require.NoError(t, h.SetLowLimit("/bounded", &lo))

	require.NoError(t, h.PushNumber("/bounded", 1.0, 500)) // above high limit: dropped
	require.NoError(t, h.PushNumber("/bounded", 2.0, 50))  // within range: accepted

	require.Len(t, dest.recs, 1)
	assert.Equal(t, "50", string(dest.recs[0].JSON))
}

func TestSetSourceForwardsPushesToDependent(t *testing.T) {
	h, dests, stop := newTestHub(t)
	defer stop()

	dest := &recordingDestination{name: "sink"}
	require.NoError(t, dests.Register(context.Background(), "sink", dest))
	require.NoError(t, h.CreateOutput("/derived", "sink", ""))
	require.NoError(t, h.PushNumber("/raw", 1.0, 1))

	require.NoError(t, h.SetSource("/derived", "/raw"))
	assert.Equal(t, "/raw", h.GetSource("/derived"))

	require.NoError(t, h.PushNumber("/raw", 2.0, 42))

	require.Len(t, dest.recs, 1, "the raw push should have been forwarded to its dependent")
	assert.Equal(t, "42", string(dest.recs[0].JSON))
}

func TestDefaultAndOverrideRoundTrip(t *testing.T) {
	h, _, stop := newTestHub(t)
	defer stop()

	require.NoError(t, h.PushNumber("/d", 1.0, 1))
	require.NoError(t, h.SetDefaultNumber("/d", 0.0, 99))
	ts, v, ok := h.GetDefault("/d")
	require.True(t, ok)
	assert.Equal(t, 0.0, ts)
	assert.Equal(t, 99.0, v)

	require.NoError(t, h.SetOverrideNumber("/d", 5.0, 7))
	ts, v, ok = h.GetOverride("/d")
	require.True(t, ok)
	assert.Equal(t, 5.0, ts)
	assert.Equal(t, 7.0, v)

	require.NoError(t, h.ClearOverride("/d"))
	_, _, ok = h.GetOverride("/d")
	assert.False(t, ok)
}

func TestUnregisterStopsFurtherNotifications(t *testing.T) {
	h, _, stop := newTestHub(t)
	defer stop()

	calls := 0
	unregister := h.OnResourceTreeChange(func(path string, kind tree.Type) {
		calls++
	})
	unregister()

	require.NoError(t, h.PushTrigger("/x", 1.0))
	assert.Equal(t, 0, calls)
}
