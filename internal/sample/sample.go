// Package sample implements the hub's polymorphic, reference-counted,
// timestamped value (spec.md §4.1): trigger, boolean, numeric, string,
// or JSON. String and JSON share the same owned-payload representation
// — the semantic type is supplied by whatever Resource the sample
// flows through, not recorded on the sample itself.
package sample

import (
	"strconv"

	"github.com/Nico26-sw/legato-Service-DataHub/pkg/clock"
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/pool"
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/result"
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/utf8util"
)

// Kind tags which variant of the union a Sample currently holds.
type Kind int

const (
	Trigger Kind = iota
	Bool
	Number
	// Bytes covers both the string and json variants; the caller (the
	// attached Resource) knows which semantic type it pushed.
	Bytes
)

// Sample is an immutable timestamped tagged value, shared by reference
// count. Only the timestamp may be mutated after construction.
type Sample struct {
	store     *Store
	refs      int32
	timestamp float64
	kind      Kind
	boolVal   bool
	numberVal float64
	payload   []byte // owned, released via store.strings on last Release
}

// Store owns the two allocation pools backing samples (spec.md §4.1,
// "Allocation policy") and the clock used to stamp the NOW sentinel.
type Store struct {
	clk       clock.Clock
	nonString *pool.Counter
	strings   *pool.TieredStringPool
}

// NewStore builds a Store with the given pool capacities. nonStringCap
// bounds the number of concurrently live trigger/bool/number samples;
// largeStringBlocks seeds the tiered string pool (spec.md §4.1 derives
// the smaller classes from it).
func NewStore(clk clock.Clock, nonStringCap, largeStringBlocks int) *Store {
	return &Store{
		clk:       clk,
		nonString: pool.NewCounter(nonStringCap),
		strings:   pool.NewTieredStringPool(largeStringBlocks),
	}
}

func (s *Store) stamp(ts float64) float64 {
	return clock.Stamp(s.clk, ts)
}

// PoolStats reports point-in-time utilization of the store's pools,
// for internal/metrics to poll onto PoolInUse/PoolDeniedTotal gauges.
func (s *Store) PoolStats() (nonString, small, medium, large pool.Stats) {
	small, medium, large = s.strings.Stats()
	return s.nonString.Stats(), small, medium, large
}

func (s *Store) newNonString(ts float64, kind Kind) (*Sample, error) {
	if err := s.nonString.Acquire(); err != nil {
		return nil, err
	}
	return &Sample{store: s, refs: 1, timestamp: s.stamp(ts), kind: kind}, nil
}

// CreateTrigger returns a new trigger sample.
func (s *Store) CreateTrigger(ts float64) (*Sample, error) {
	return s.newNonString(ts, Trigger)
}

// CreateBool returns a new boolean sample.
func (s *Store) CreateBool(ts float64, v bool) (*Sample, error) {
	sm, err := s.newNonString(ts, Bool)
	if err != nil {
		return nil, err
	}
	sm.boolVal = v
	return sm, nil
}

// CreateNumber returns a new numeric sample.
func (s *Store) CreateNumber(ts float64, v float64) (*Sample, error) {
	sm, err := s.newNonString(ts, Number)
	if err != nil {
		return nil, err
	}
	sm.numberVal = v
	return sm, nil
}

func (s *Store) newBytes(ts float64, payload []byte) (*Sample, error) {
	buf, err := s.strings.Acquire(payload)
	if err != nil {
		return nil, err
	}
	return &Sample{store: s, refs: 1, timestamp: s.stamp(ts), kind: Bytes, payload: buf}, nil
}

// CreateString returns a new string sample; the payload is copied into
// pool-owned storage. str must be valid UTF-8 (spec.md §4.1's
// invariant (a)); a malformed payload is rejected with BadParameter
// rather than stored.
func (s *Store) CreateString(ts float64, str []byte) (*Sample, error) {
	if !utf8util.Valid(str) {
		return nil, result.New(result.BadParameter, "sample", "CreateString", "payload is not valid UTF-8")
	}
	return s.newBytes(ts, str)
}

// CreateJSON returns a new JSON sample; the payload is copied into
// pool-owned storage, sharing representation with CreateString. The
// semantic distinction ("this is JSON, not a plain string") is carried
// by the caller, per spec.md §4.1. js must be valid UTF-8.
func (s *Store) CreateJSON(ts float64, js []byte) (*Sample, error) {
	if !utf8util.Valid(js) {
		return nil, result.New(result.BadParameter, "sample", "CreateJSON", "payload is not valid UTF-8")
	}
	return s.newBytes(ts, js)
}

// Retain increments the sample's reference count, returning it for
// convenient chaining at call sites that hand the same sample to
// multiple destinations.
func (s *Sample) Retain() *Sample {
	s.refs++
	return s
}

// Release decrements the sample's reference count. On the last
// release, any owned string payload is returned to the store's pool.
func (s *Sample) Release() {
	s.refs--
	if s.refs > 0 {
		return
	}
	if s.kind == Bytes && s.payload != nil {
		s.store.strings.Release(s.payload)
	} else if s.kind != Bytes {
		s.store.nonString.Release()
	}
}

// Kind reports which variant of the union s currently holds.
func (s *Sample) Kind() Kind { return s.kind }

// GetTimestamp returns the sample's timestamp in seconds since epoch.
func (s *Sample) GetTimestamp() float64 { return s.timestamp }

// SetTimestamp is the only permitted mutator on a constructed sample.
func (s *Sample) SetTimestamp(ts float64) { s.timestamp = s.store.stamp(ts) }

// GetBool returns the sample's boolean value. The caller must know the
// sample holds a bool; behavior is undefined otherwise (spec.md §4.1).
func (s *Sample) GetBool() bool { return s.boolVal }

// GetNumber returns the sample's numeric value. Undefined unless the
// caller knows the sample holds a number.
func (s *Sample) GetNumber() float64 { return s.numberVal }

// GetString returns the sample's raw payload bytes. Undefined unless
// the caller knows the sample holds a string or json value.
func (s *Sample) GetString() []byte { return s.payload }

// GetJSON is an alias for GetString: string and json samples share
// storage, differing only in caller-supplied semantic type.
func (s *Sample) GetJSON() []byte { return s.payload }

// DeclaredType is the semantic type a Resource assigns a sample it
// holds, supplied by the caller at conversion time rather than
// recorded on the Sample itself (spec.md §4.1: "string and JSON share
// storage representation; their semantic type is supplied by the
// caller"). It is strictly finer-grained than Kind for the Bytes
// variant, which is exactly the distinction Kind cannot make on its
// own: String and JSON both report Kind() == Bytes.
type DeclaredType int

const (
	DeclaredTrigger DeclaredType = iota
	DeclaredBool
	DeclaredNumber
	DeclaredString
	DeclaredJSON
)

// ConvertToString renders the sample's printable form into buf,
// following declaredType (the semantic type the attached Resource
// assigned this sample). For a declared string type this is the raw
// payload; otherwise it is identical to ConvertToJSON.
func (s *Sample) ConvertToString(declaredType DeclaredType, buf []byte) (int, error) {
	if declaredType == DeclaredString && s.kind == Bytes {
		return copyOrOverflow(buf, s.payload)
	}
	return s.ConvertToJSON(declaredType, buf)
}

// ConvertToJSON renders the sample as a JSON value into buf, per the
// mapping in spec.md §4.1. String payloads are escaped per RFC 8259 —
// this module resolves the spec's open question in favor of always
// producing valid JSON, since the hub's own Kafka and Elasticsearch
// destinations require it.
func (s *Sample) ConvertToJSON(declaredType DeclaredType, buf []byte) (int, error) {
	switch s.kind {
	case Trigger:
		return copyOrOverflow(buf, []byte("null"))
	case Bool:
		if s.boolVal {
			return copyOrOverflow(buf, []byte("true"))
		}
		return copyOrOverflow(buf, []byte("false"))
	case Number:
		return copyOrOverflow(buf, []byte(strconv.FormatFloat(s.numberVal, 'f', -1, 64)))
	case Bytes:
		if declaredType == DeclaredJSON {
			return copyOrOverflow(buf, s.payload)
		}
		return copyOrOverflow(buf, quoteJSON(s.payload))
	}
	return 0, result.New(result.Fault, "sample", "ConvertToJSON", "unreachable sample kind")
}

func copyOrOverflow(dst, src []byte) (int, error) {
	if len(dst) < len(src) {
		return 0, result.New(result.Overflow, "sample", "convert", "destination buffer too small")
	}
	return copy(dst, src), nil
}

// quoteJSON wraps payload in ASCII double quotes, escaping characters
// RFC 8259 requires escaping: quote, backslash, and control characters.
func quoteJSON(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+2)
	out = append(out, '"')
	for _, c := range payload {
		switch c {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		default:
			if c < 0x20 {
				out = append(out, '\\', 'u', '0', '0', hexDigit(c>>4), hexDigit(c&0xf))
			} else {
				out = append(out, c)
			}
		}
	}
	out = append(out, '"')
	return out
}

func hexDigit(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'a' + (n - 10)
}
