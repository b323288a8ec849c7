// Package jsonutil implements the JSON helper spec.md §6 names as an
// external interface: subscript extraction, and loose bool/number
// coercion of a raw JSON value's text. The decode is a generic
// interface{} walk rather than a fixed schema, the same "parse into a
// typed Go value, then pull specific fields out" shape the teacher's
// internal/monitors/docker_json_parser.go uses for Docker's json-file
// log format, but generalized to an arbitrary subscript spec instead
// of a fixed set of struct fields.
package jsonutil

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Nico26-sw/legato-Service-DataHub/pkg/result"
)

// Type enumerates the JSON node kinds a subscript can resolve to.
type Type int

const (
	Null Type = iota
	Bool
	Number
	String
	Object
	Array
)

// Extract walks jsonBytes following spec, a path of the form
// "key", "key.key", "[index]", or "key[i].key", and returns the raw
// JSON bytes of the resolved node along with its Type. It returns
// result.NotFound if any segment of spec cannot be resolved.
func Extract(jsonBytes []byte, spec string) ([]byte, Type, error) {
	var root interface{}
	if err := json.Unmarshal(jsonBytes, &root); err != nil {
		return nil, Null, result.New(result.BadParameter, "jsonutil", "Extract", "invalid json").Wrap(err)
	}

	node := root
	for _, seg := range splitSpec(spec) {
		switch {
		case seg.isIndex:
			arr, ok := node.([]interface{})
			if !ok || seg.index < 0 || seg.index >= len(arr) {
				return nil, Null, result.New(result.NotFound, "jsonutil", "Extract", "index out of range: "+spec)
			}
			node = arr[seg.index]
		default:
			obj, ok := node.(map[string]interface{})
			if !ok {
				return nil, Null, result.New(result.NotFound, "jsonutil", "Extract", "not an object: "+spec)
			}
			v, present := obj[seg.key]
			if !present {
				return nil, Null, result.New(result.NotFound, "jsonutil", "Extract", "missing key: "+seg.key)
			}
			node = v
		}
	}

	out, err := json.Marshal(node)
	if err != nil {
		return nil, Null, result.New(result.Fault, "jsonutil", "Extract", "re-encode failed").Wrap(err)
	}
	return out, typeOf(node), nil
}

func typeOf(v interface{}) Type {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case float64:
		return Number
	case string:
		return String
	case []interface{}:
		return Array
	case map[string]interface{}:
		return Object
	default:
		return Null
	}
}

type segment struct {
	key     string
	isIndex bool
	index   int
}

// splitSpec parses "a.b[1]" style subscripts into an ordered list of
// key/index segments.
func splitSpec(spec string) []segment {
	var segs []segment
	for _, part := range strings.Split(spec, ".") {
		for part != "" {
			if part[0] == '[' {
				end := strings.IndexByte(part, ']')
				if end < 0 {
					return segs
				}
				idx, err := strconv.Atoi(part[1:end])
				if err == nil {
					segs = append(segs, segment{isIndex: true, index: idx})
				}
				part = part[end+1:]
				continue
			}
			end := strings.IndexByte(part, '[')
			if end < 0 {
				segs = append(segs, segment{key: part})
				part = ""
				continue
			}
			segs = append(segs, segment{key: part[:end]})
			part = part[end:]
		}
	}
	return segs
}

// ConvertToBool coerces a raw JSON scalar's text into a bool, following
// JSON's literal true/false tokens.
func ConvertToBool(buf []byte) (bool, error) {
	switch strings.TrimSpace(string(buf)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, result.New(result.BadParameter, "jsonutil", "ConvertToBool", "not a JSON bool")
	}
}

// ConvertToNumber parses a raw JSON number's text into a float64.
func ConvertToNumber(buf []byte) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(buf)), 64)
	if err != nil {
		return 0, result.New(result.BadParameter, "jsonutil", "ConvertToNumber", "not a JSON number").Wrap(err)
	}
	return v, nil
}
