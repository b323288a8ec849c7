package pathtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserWalksSegments(t *testing.T) {
	p := NewParser("/a/b/c")

	seg, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", seg.Name)
	assert.False(t, seg.IsLast)

	seg, ok, err = p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", seg.Name)
	assert.False(t, seg.IsLast)

	seg, ok, err = p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c", seg.Name)
	assert.True(t, seg.IsLast)

	_, ok, err = p.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParserRelativeAndAbsoluteIdentical(t *testing.T) {
	abs, err := Split("/x/y")
	require.NoError(t, err)
	rel, err := Split("x/y")
	require.NoError(t, err)
	assert.Equal(t, abs, rel)
}

func TestParserRejectsEmptyComponent(t *testing.T) {
	p := NewParser("a//b")

	seg, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", seg.Name)

	_, _, err = p.Next()
	assert.Error(t, err)
}

func TestParserRejectsOverlongComponent(t *testing.T) {
	long := make([]byte, MaxNameLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, _, err := NewParser(string(long)).Next()
	assert.Error(t, err)
}

func TestSplitRejectsEmptyPath(t *testing.T) {
	_, err := Split("")
	assert.Error(t, err)
	_, err = Split("/")
	assert.Error(t, err)
}

func TestParserRejectsTrailingSlash(t *testing.T) {
	p := NewParser("a/b/")

	seg, ok, err := p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", seg.Name)

	seg, ok, err = p.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", seg.Name)

	_, ok, err = p.Next()
	assert.False(t, ok)
	assert.Error(t, err, "a trailing slash leaves an empty final component, which must be rejected")
}
