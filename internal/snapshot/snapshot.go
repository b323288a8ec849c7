// Package snapshot drives the Scan/Commit/Flush protocol (spec.md
// §4.4) over a Hub, serializing the relevant subtree as newline
// delimited JSON and compressing it with snappy — the same
// "small, fast, in-memory" compression tradeoff the teacher's sinks
// reach for when shipping bulk payloads, applied here to the
// snapshot's own output stream rather than to forwarded samples.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/golang/snappy"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/hub"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/metrics"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/tree"
)

// Record is one serialized line of a snapshot: a resource entry's
// path, its current type, its current value (as JSON text; empty if
// it has never been pushed to), and whether it has not yet been
// observed by a prior snapshot.
type Record struct {
	Path  string `json:"path"`
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
	New   bool   `json:"new"`
}

// Driver runs snapshot passes against a Hub.
type Driver struct {
	hub *hub.Hub
}

// NewDriver builds a Driver over h.
func NewDriver(h *hub.Hub) *Driver {
	return &Driver{hub: h}
}

// Run executes one full Scan/Commit/Flush cycle and writes the
// snappy-compressed, newline-delimited JSON snapshot to w. Commit and
// Flush only run once the write to w has succeeded, so a failed
// snapshot leaves the tree's NEW/DELETED bookkeeping untouched for the
// next attempt.
func (d *Driver) Run(w io.Writer) error {
	start := time.Now()
	d.hub.BeginScan()

	var buf bytes.Buffer
	var count int
	var marshalErr error
	err := d.hub.Scan(func(path string, v tree.View, isNew bool) {
		if marshalErr != nil {
			return
		}
		value, _ := hub.CurrentValueJSON(v)
		rec := Record{Path: path, Type: typeName(v.Type()), Value: value, New: isNew}
		b, mErr := json.Marshal(rec)
		if mErr != nil {
			marshalErr = mErr
			return
		}
		buf.Write(b)
		buf.WriteByte('\n')
		count++
	})
	if err != nil {
		return fmt.Errorf("snapshot: scan: %w", err)
	}
	if marshalErr != nil {
		return fmt.Errorf("snapshot: marshal record: %w", marshalErr)
	}

	compressed := snappy.Encode(nil, buf.Bytes())
	if _, err := w.Write(compressed); err != nil {
		return fmt.Errorf("snapshot: write: %w", err)
	}

	d.hub.Commit()
	d.hub.Flush()

	metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
	metrics.SnapshotEntriesTotal.Set(float64(count))
	return nil
}

// Decode reverses the snappy framing Run applies, returning the
// newline-delimited JSON records for inspection or testing.
func Decode(compressed []byte) ([]Record, error) {
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	var records []Record
	for _, line := range bytes.Split(bytes.TrimRight(raw, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("snapshot: unmarshal record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func typeName(t tree.Type) string {
	switch t {
	case tree.TypeNamespace:
		return "namespace"
	case tree.TypePlaceholder:
		return "placeholder"
	case tree.TypeInput:
		return "input"
	case tree.TypeOutput:
		return "output"
	case tree.TypeObservation:
		return "observation"
	default:
		return "unknown"
	}
}
