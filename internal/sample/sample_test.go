package sample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nico26-sw/legato-Service-DataHub/pkg/clock"
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/result"
)

func newTestStore() *Store {
	return NewStore(clock.System{}, 8, 1)
}

func TestCreateTriggerBoolNumber(t *testing.T) {
	st := newTestStore()

	trig, err := st.CreateTrigger(1.0)
	require.NoError(t, err)
	assert.Equal(t, Trigger, trig.Kind())
	trig.Release()

	b, err := st.CreateBool(1.0, true)
	require.NoError(t, err)
	assert.Equal(t, Bool, b.Kind())
	assert.True(t, b.GetBool())
	b.Release()

	n, err := st.CreateNumber(1.0, 3.5)
	require.NoError(t, err)
	assert.Equal(t, Number, n.Kind())
	assert.Equal(t, 3.5, n.GetNumber())
	n.Release()
}

func TestCreateStringCopiesPayload(t *testing.T) {
	st := newTestStore()

	payload := []byte("hello")
	s, err := st.CreateString(1.0, payload)
	require.NoError(t, err)
	assert.Equal(t, Bytes, s.Kind())
	assert.Equal(t, "hello", string(s.GetString()))

	payload[0] = 'X'
	assert.Equal(t, "hello", string(s.GetString()), "sample must own a copy of the payload, not alias the caller's slice")
	s.Release()
}

func TestRetainReleaseRefcounting(t *testing.T) {
	st := newTestStore()

	s, err := st.CreateTrigger(1.0)
	require.NoError(t, err)

	s.Retain()
	s.Release()
	// still held by the original +1 ref; a second Release should be the
	// final one and must not panic or double-free.
	s.Release()
}

func TestNonStringPoolExhaustion(t *testing.T) {
	st := NewStore(clock.System{}, 1, 1)

	s1, err := st.CreateTrigger(1.0)
	require.NoError(t, err)

	_, err = st.CreateBool(1.0, true)
	require.Error(t, err)
	assert.True(t, result.Is(err, result.NoMemory))

	s1.Release()
	s2, err := st.CreateBool(1.0, true)
	require.NoError(t, err)
	s2.Release()
}

func TestConvertToJSONScalars(t *testing.T) {
	st := newTestStore()
	buf := make([]byte, 64)

	trig, _ := st.CreateTrigger(1.0)
	n, err := trig.ConvertToJSON(DeclaredTrigger, buf)
	require.NoError(t, err)
	assert.Equal(t, "null", string(buf[:n]))
	trig.Release()

	b, _ := st.CreateBool(1.0, true)
	n, err = b.ConvertToJSON(DeclaredBool, buf)
	require.NoError(t, err)
	assert.Equal(t, "true", string(buf[:n]))
	b.Release()

	num, _ := st.CreateNumber(1.0, 2.25)
	n, err = num.ConvertToJSON(DeclaredNumber, buf)
	require.NoError(t, err)
	assert.Equal(t, "2.25", string(buf[:n]))
	num.Release()
}

func TestConvertToJSONEscapesStringPayload(t *testing.T) {
	st := newTestStore()
	buf := make([]byte, 64)

	s, err := st.CreateString(1.0, []byte("line\nbreak\"quote"))
	require.NoError(t, err)
	n, err := s.ConvertToJSON(DeclaredString, buf)
	require.NoError(t, err)
	assert.Equal(t, `"line\nbreak\"quote"`, string(buf[:n]))
	s.Release()
}

func TestConvertToJSONPassesThroughWellFormedJSON(t *testing.T) {
	st := newTestStore()
	buf := make([]byte, 64)

	s, err := st.CreateJSON(1.0, []byte(`{"a":1}`))
	require.NoError(t, err)
	n, err := s.ConvertToJSON(DeclaredJSON, buf)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(buf[:n]))
	s.Release()
}

func TestConvertToJSONQuotesNumericLookingString(t *testing.T) {
	st := newTestStore()
	buf := make([]byte, 64)

	// A string sample whose payload happens to look like a JSON number
	// must still be quoted: DeclaredType, not payload sniffing, decides
	// this, per spec.md §4.1's "semantic type is supplied by the caller".
	s, err := st.CreateString(1.0, []byte("123"))
	require.NoError(t, err)
	defer s.Release()

	n, err := s.ConvertToJSON(DeclaredString, buf)
	require.NoError(t, err)
	assert.Equal(t, `"123"`, string(buf[:n]))
}

func TestConvertToJSONOverflow(t *testing.T) {
	st := newTestStore()
	s, err := st.CreateString(1.0, []byte("a string longer than the buffer"))
	require.NoError(t, err)
	defer s.Release()

	tiny := make([]byte, 2)
	_, err = s.ConvertToJSON(DeclaredString, tiny)
	require.Error(t, err)
	assert.True(t, result.Is(err, result.Overflow))
}

func TestExtractJSONTypesEachVariant(t *testing.T) {
	st := newTestStore()
	src, err := st.CreateJSON(5.0, []byte(`{"n":null,"b":true,"x":1.5,"s":"hi","o":{"k":"v"}}`))
	require.NoError(t, err)
	defer src.Release()

	sm, typ, ok := st.ExtractJSON(src, "n")
	require.True(t, ok)
	assert.Equal(t, ExtractTrigger, typ)
	assert.Equal(t, 5.0, sm.GetTimestamp())
	sm.Release()

	sm, typ, ok = st.ExtractJSON(src, "b")
	require.True(t, ok)
	assert.Equal(t, ExtractBool, typ)
	assert.True(t, sm.GetBool())
	sm.Release()

	sm, typ, ok = st.ExtractJSON(src, "x")
	require.True(t, ok)
	assert.Equal(t, ExtractNumber, typ)
	assert.Equal(t, 1.5, sm.GetNumber())
	sm.Release()

	sm, typ, ok = st.ExtractJSON(src, "s")
	require.True(t, ok)
	assert.Equal(t, ExtractString, typ)
	assert.Equal(t, "hi", string(sm.GetString()))
	sm.Release()

	sm, typ, ok = st.ExtractJSON(src, "o")
	require.True(t, ok)
	assert.Equal(t, ExtractJSON, typ)
	assert.JSONEq(t, `{"k":"v"}`, string(sm.GetJSON()))
	sm.Release()
}

func TestExtractJSONMissingPathIsNotAnError(t *testing.T) {
	st := newTestStore()
	src, err := st.CreateJSON(5.0, []byte(`{"a":1}`))
	require.NoError(t, err)
	defer src.Release()

	sm, _, ok := st.ExtractJSON(src, "missing")
	assert.False(t, ok)
	assert.Nil(t, sm)
}
