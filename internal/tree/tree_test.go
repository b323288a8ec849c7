package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nico26-sw/legato-Service-DataHub/pkg/result"
)

// fakeResource is a minimal tree.Resource double used to exercise the
// tree package without depending on internal/resource.
type fakeResource struct {
	admin  bool
	closed bool
}

func (f *fakeResource) HasAdminSettings() bool { return f.admin }
func (f *fakeResource) Close()                 { f.closed = true }

func newTestTree() *Tree {
	return New(func(kind PlaceholderKind) (Resource, error) {
		return &fakeResource{}, nil
	}, "obs", 0)
}

func TestCreateBuildsIntermediateNamespaces(t *testing.T) {
	tr := newTestTree()

	v, err := tr.Create(tr.Root(), "/a/b/c")
	require.NoError(t, err)
	assert.Equal(t, "c", v.Name())
	assert.Equal(t, TypeNamespace, v.Type())

	found, ok, err := tr.Find(tr.Root(), "/a/b/c")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, found.Equal(v))
}

func TestFindMissingSegmentNotOk(t *testing.T) {
	tr := newTestTree()
	_, err := tr.Create(tr.Root(), "/a/b")
	require.NoError(t, err)

	_, ok, err := tr.Find(tr.Root(), "/a/missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetResourcePromotesPlaceholder(t *testing.T) {
	tr := newTestTree()

	v, err := tr.GetResource(tr.Root(), "/io/sensor1")
	require.NoError(t, err)
	assert.Equal(t, TypePlaceholder, v.Type())
	assert.NotNil(t, v.Resource())
}

func TestGetResourceRoutesObservationPrefixToObservationKind(t *testing.T) {
	var gotKind PlaceholderKind
	tr := New(func(kind PlaceholderKind) (Resource, error) {
		gotKind = kind
		return &fakeResource{}, nil
	}, "obs", 0)

	_, err := tr.GetResource(tr.Root(), "/obs/temp")
	require.NoError(t, err)
	assert.Equal(t, PlaceholderObservation, gotKind)

	_, err = tr.GetResource(tr.Root(), "/io/temp")
	require.NoError(t, err)
	assert.Equal(t, PlaceholderIO, gotKind)
}

func TestGetResourceFactoryFailureRollsBackWholeChain(t *testing.T) {
	tr := New(func(kind PlaceholderKind) (Resource, error) {
		return nil, result.New(result.Fault, "test", "factory", "boom")
	}, "obs", 0)

	_, err := tr.GetResource(tr.Root(), "/a/b/c")
	require.Error(t, err)

	// None of a, b, or c should remain in the tree.
	_, ok, err := tr.Find(tr.Root(), "/a")
	require.NoError(t, err)
	assert.False(t, ok, "entire chain created during the failed GetResource call must be rolled back")
}

func TestConvertPlaceholderToInputOutput(t *testing.T) {
	tr := newTestTree()

	v, err := tr.GetResource(tr.Root(), "/io/in1")
	require.NoError(t, err)
	res := &fakeResource{}
	tr.CreateInput(v, res)
	assert.Equal(t, TypeInput, v.Type())
}

func TestCreateInputOnNonPlaceholderPanics(t *testing.T) {
	tr := newTestTree()
	v, err := tr.Create(tr.Root(), "/a")
	require.NoError(t, err)

	assert.Panics(t, func() {
		tr.CreateInput(v, &fakeResource{})
	})
}

func TestGetObservationPromotesAndIsIdempotent(t *testing.T) {
	tr := newTestTree()
	v, err := tr.GetResource(tr.Root(), "/obs/temp")
	require.NoError(t, err)

	v, err = tr.GetObservation(v)
	require.NoError(t, err)
	assert.Equal(t, TypeObservation, v.Type())

	v2, err := tr.GetObservation(v)
	require.NoError(t, err)
	assert.True(t, v.Equal(v2))
}

func TestGetObservationRejectsInput(t *testing.T) {
	tr := newTestTree()
	v, err := tr.GetResource(tr.Root(), "/io/in1")
	require.NoError(t, err)
	tr.CreateInput(v, &fakeResource{})

	_, err = tr.GetObservation(v)
	require.Error(t, err)
	assert.True(t, result.Is(err, result.BadParameter))
}

func TestDeleteIOWithAdminSettingsDemotesToPlaceholder(t *testing.T) {
	tr := newTestTree()
	v, err := tr.GetResource(tr.Root(), "/io/in1")
	require.NoError(t, err)
	res := &fakeResource{admin: true}
	tr.CreateInput(v, res)

	require.NoError(t, tr.DeleteIO(v))
	assert.Equal(t, TypePlaceholder, v.Type())
	assert.False(t, res.closed, "a resource with admin settings is retained, not closed")
}

func TestDeleteIOWithoutAdminSettingsReleasesEntirely(t *testing.T) {
	tr := newTestTree()
	v, err := tr.GetResource(tr.Root(), "/io/in1")
	require.NoError(t, err)
	res := &fakeResource{admin: false}
	tr.CreateInput(v, res)

	require.NoError(t, tr.DeleteIO(v))
	assert.True(t, res.closed)

	_, ok, err := tr.Find(tr.Root(), "/io/in1")
	require.NoError(t, err)
	assert.False(t, ok, "a never-observed entry is dropped outright, not left as a zombie")
}

func TestDeletedZombieIsResurrectedByCreate(t *testing.T) {
	tr := newTestTree()
	v, err := tr.GetResource(tr.Root(), "/io/in1")
	require.NoError(t, err)
	res := &fakeResource{}
	tr.CreateInput(v, res)

	// Observe it via a snapshot cycle so deletion produces a zombie
	// instead of dropping the entry outright.
	tr.BeginScan()
	tr.MarkRelevantChain(v, tr.Root())
	tr.Commit()
	tr.Flush()

	require.NoError(t, tr.DeleteIO(v))

	// Still absent from a live Find...
	_, ok, err := tr.Find(tr.Root(), "/io/in1")
	require.NoError(t, err)
	assert.False(t, ok)

	// ...but Create resurrects the same name in place rather than
	// erroring or double-allocating.
	v2, err := tr.Create(tr.Root(), "/io/in1")
	require.NoError(t, err)
	assert.Equal(t, TypeNamespace, v2.Type())
}

func TestSnapshotFlushPhysicallyFreesObservedZombie(t *testing.T) {
	tr := newTestTree()
	v, err := tr.GetResource(tr.Root(), "/io/in1")
	require.NoError(t, err)
	tr.CreateInput(v, &fakeResource{})

	tr.BeginScan()
	tr.MarkRelevantChain(v, tr.Root())
	tr.Commit()
	tr.Flush()

	require.NoError(t, tr.DeleteIO(v))

	// A second full cycle observes the zombie as deleted and frees it.
	tr.BeginScan()
	tr.MarkRelevant(v)
	tr.Commit()
	tr.Flush()

	// A fresh GetResource at the same path must not trip over stale
	// arena state left by the freed zombie.
	v2, err := tr.GetResource(tr.Root(), "/io/in1")
	require.NoError(t, err)
	assert.Equal(t, TypePlaceholder, v2.Type())
}

func TestPathOfRendersFromBase(t *testing.T) {
	tr := newTestTree()
	v, err := tr.Create(tr.Root(), "/a/b/c")
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := tr.PathOf(v, tr.Root(), buf)
	require.NoError(t, err)
	assert.Equal(t, "/a/b/c", string(buf[:n]))
}

func TestPathOfOverflow(t *testing.T) {
	tr := newTestTree()
	v, err := tr.Create(tr.Root(), "/a/b/c")
	require.NoError(t, err)

	tiny := make([]byte, 2)
	_, err = tr.PathOf(v, tr.Root(), tiny)
	require.Error(t, err)
	assert.True(t, result.Is(err, result.Overflow))
}

func TestForEachResourceSkipsNamespacesAndZombies(t *testing.T) {
	tr := newTestTree()
	v, err := tr.GetResource(tr.Root(), "/io/in1")
	require.NoError(t, err)
	tr.CreateInput(v, &fakeResource{})

	_, err = tr.Create(tr.Root(), "/a/b") // pure namespace, should not appear
	require.NoError(t, err)

	var seen []string
	tr.ForEachResource(func(rv View) {
		seen = append(seen, rv.Name())
	})
	assert.Equal(t, []string{"in1"}, seen)
}

func TestChildrenReturnsLiveChildrenOnly(t *testing.T) {
	tr := newTestTree()
	_, err := tr.Create(tr.Root(), "/a")
	require.NoError(t, err)
	_, err = tr.Create(tr.Root(), "/b")
	require.NoError(t, err)

	children := tr.Children(tr.Root())
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}
