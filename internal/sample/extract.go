package sample

import (
	"github.com/Nico26-sw/legato-Service-DataHub/pkg/jsonutil"
)

// ExtractType is the semantic type JSON extraction assigned the
// resulting sample, per the null/bool/number/string/object-array
// mapping in spec.md §4.1.
type ExtractType int

const (
	ExtractTrigger ExtractType = iota
	ExtractBool
	ExtractNumber
	ExtractString
	ExtractJSON
)

// ExtractJSON parses subscript spec against src's JSON payload and
// returns a freshly constructed sample carrying the extracted value,
// typed according to the extracted node. The new sample inherits src's
// timestamp. Extraction failure returns (nil, 0, false) — it is not
// an error condition per spec.md §4.1.
func (s *Store) ExtractJSON(src *Sample, spec string) (*Sample, ExtractType, bool) {
	raw, jt, err := jsonutil.Extract(src.GetJSON(), spec)
	if err != nil {
		return nil, 0, false
	}

	ts := src.GetTimestamp()
	switch jt {
	case jsonutil.Null:
		sm, err := s.CreateTrigger(ts)
		return okOrNil(sm, err, ExtractTrigger)
	case jsonutil.Bool:
		v, err := jsonutil.ConvertToBool(raw)
		if err != nil {
			return nil, 0, false
		}
		sm, err := s.CreateBool(ts, v)
		return okOrNil(sm, err, ExtractBool)
	case jsonutil.Number:
		v, err := jsonutil.ConvertToNumber(raw)
		if err != nil {
			return nil, 0, false
		}
		sm, err := s.CreateNumber(ts, v)
		return okOrNil(sm, err, ExtractNumber)
	case jsonutil.String:
		var str string
		if unquoteErr := unquoteJSONString(raw, &str); unquoteErr != nil {
			return nil, 0, false
		}
		sm, err := s.CreateString(ts, []byte(str))
		return okOrNil(sm, err, ExtractString)
	default: // Object, Array
		sm, err := s.CreateJSON(ts, raw)
		return okOrNil(sm, err, ExtractJSON)
	}
}

func okOrNil(sm *Sample, err error, t ExtractType) (*Sample, ExtractType, bool) {
	if err != nil {
		return nil, 0, false
	}
	return sm, t, true
}

func unquoteJSONString(raw []byte, out *string) error {
	return jsonUnmarshalString(raw, out)
}
