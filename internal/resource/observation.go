package resource

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/Nico26-sw/legato-Service-DataHub/internal/destination"
	"github.com/Nico26-sw/legato-Service-DataHub/internal/metrics"
)

// point is one sample recorded into an observation's buffer.
type point struct {
	Timestamp float64 `json:"ts"`
	Value     float64 `json:"v"`
}

// chunk is a zstd-compressed run of older points, evicted from the hot
// buffer once it grows past maxHot. Grounded on the teacher's
// pkg/buffer disk-rotation pattern (accumulate, compact, evict),
// adapted from gzip-on-disk to zstd-in-memory since on-disk
// persistence is out of scope here.
type chunk struct {
	data         []byte
	count        int
	minTS, maxTS float64
}

// Observation is the Resource attached to an observation Entry: a
// bounded numeric history with min/max/mean/stddev queries, backed by
// a small hot buffer plus zstd-compacted older chunks, and an
// archive-on-overflow path that ships the oldest chunk to a
// Destination (typically Elastic) before dropping it, rather than
// losing history silently.
type Observation struct {
	Attrs

	mu sync.Mutex

	path    string
	maxHot  int
	hardCap int

	hot    []point
	chunks []chunk

	archive    destination.Destination
	configured bool

	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewObservation creates an Observation with default buffer sizing.
// Configure must be called to attach archiving and admin settings.
func NewObservation(path string) *Observation {
	enc, _ := zstd.NewWriter(nil)
	dec, _ := zstd.NewReader(nil)
	return &Observation{
		path:    path,
		maxHot:  256,
		hardCap: 4096,
		enc:     enc,
		dec:     dec,
	}
}

// Configure attaches admin settings: buffer sizing and an optional
// archive destination for overflowed chunks.
func (o *Observation) Configure(maxHot, hardCap int, archive destination.Destination) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if maxHot > 0 {
		o.maxHot = maxHot
	}
	if hardCap > 0 {
		o.hardCap = hardCap
	}
	o.archive = archive
	o.configured = true
}

// HasAdminSettings reports whether Configure has been called, per
// spec.md §4.3's delete_observation/delete_io retention rule.
func (o *Observation) HasAdminSettings() bool {
	o.mu.Lock()
	configured := o.configured
	o.mu.Unlock()
	if configured {
		return true
	}
	return o.Units() != "" || o.MinPeriod() != 0 || o.HighLimit() != nil ||
		o.LowLimit() != nil || o.ChangeBy() != 0 || o.Mandatory() || o.Source() != ""
}

// Close releases the encoder/decoder; buffered history is discarded.
func (o *Observation) Close() {
	o.mu.Lock()
	if o.enc != nil {
		o.enc.Close()
	}
	if o.dec != nil {
		o.dec.Close()
	}
	o.hot = nil
	o.chunks = nil
	o.mu.Unlock()
	o.closeAttrs()
}

// Current returns the most recently pushed point (timestamp, value),
// or ok == false if nothing has been pushed yet. The hot buffer always
// holds the newest points (compaction evicts from the front, see
// compactLocked), so the current value is simply its tail.
func (o *Observation) Current() (ts, value float64, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.hot) == 0 {
		return 0, 0, false
	}
	p := o.hot[len(o.hot)-1]
	return p.Timestamp, p.Value, true
}

// Push records a numeric sample into the buffer, compacting the
// oldest half of the hot buffer once it exceeds maxHot, and archiving
// the oldest chunk once total retained points exceed hardCap. A value
// outside the configured high/low limit, or arriving before MinPeriod
// or ChangeBy clears against the most recently buffered point, is
// dropped silently — filtering, not an error, per spec.md §4.5. While
// an override is set, every push is dropped.
func (o *Observation) Push(ts, value float64) error {
	if ov := o.Override(); ov != nil {
		ov.Release()
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if n := len(o.hot); n > 0 {
		last := o.hot[n-1]
		if !o.passesFilter(ts, value, true, last.Timestamp, last.Value) {
			return nil
		}
	} else if !o.passesFilter(ts, value, false, 0, 0) {
		return nil
	}

	o.hot = append(o.hot, point{Timestamp: ts, Value: value})
	if len(o.hot) > o.maxHot {
		if err := o.compactLocked(); err != nil {
			return err
		}
	}
	if o.total() > o.hardCap && len(o.chunks) > 0 {
		return o.archiveOldestLocked()
	}
	return nil
}

func (o *Observation) total() int {
	n := len(o.hot)
	for _, c := range o.chunks {
		n += c.count
	}
	return n
}

func (o *Observation) compactLocked() error {
	keep := o.maxHot / 2
	old := o.hot[:len(o.hot)-keep]
	o.hot = append([]point{}, o.hot[len(o.hot)-keep:]...)

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	for _, p := range old {
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("observation %s: marshal point: %w", o.path, err)
		}
		w.Write(b)
		w.WriteByte('\n')
	}
	w.Flush()

	compressed := o.enc.EncodeAll(buf.Bytes(), nil)
	o.chunks = append(o.chunks, chunk{
		data:  compressed,
		count: len(old),
		minTS: old[0].Timestamp,
		maxTS: old[len(old)-1].Timestamp,
	})
	return nil
}

// archiveOldestLocked ships the oldest chunk's points to the archive
// destination, one record per point, then drops it. If no archive
// destination is configured the chunk is simply dropped — overflow
// with no archive is a deliberate data-loss policy, not a fault.
func (o *Observation) archiveOldestLocked() error {
	oldest := o.chunks[0]
	o.chunks = o.chunks[1:]

	if o.archive == nil {
		return nil
	}

	raw, err := o.dec.DecodeAll(oldest.data, nil)
	if err != nil {
		return fmt.Errorf("observation %s: decompress archived chunk: %w", o.path, err)
	}
	for _, line := range bytes.Split(bytes.TrimRight(raw, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var p point
		if err := json.Unmarshal(line, &p); err != nil {
			continue
		}
		if err := o.archive.Send(destination.Record{Path: o.path, Timestamp: p.Timestamp, JSON: line}); err != nil {
			return fmt.Errorf("observation %s: archive send: %w", o.path, err)
		}
		metrics.ObservationArchivedTotal.WithLabelValues(o.path).Inc()
	}
	return nil
}

// forEachPoint decodes every chunk and visits it together with the hot
// buffer, oldest first, for the aggregate queries below.
func (o *Observation) forEachPoint(f func(point)) error {
	for _, c := range o.chunks {
		raw, err := o.dec.DecodeAll(c.data, nil)
		if err != nil {
			return fmt.Errorf("observation %s: decompress chunk: %w", o.path, err)
		}
		for _, line := range bytes.Split(bytes.TrimRight(raw, "\n"), []byte("\n")) {
			if len(line) == 0 {
				continue
			}
			var p point
			if err := json.Unmarshal(line, &p); err != nil {
				return err
			}
			f(p)
		}
	}
	for _, p := range o.hot {
		f(p)
	}
	return nil
}

// Min returns the smallest value currently buffered.
func (o *Observation) Min() (float64, bool, error) {
	return o.reduce(math.Inf(1), func(acc, v float64) float64 {
		if v < acc {
			return v
		}
		return acc
	})
}

// Max returns the largest value currently buffered.
func (o *Observation) Max() (float64, bool, error) {
	return o.reduce(math.Inf(-1), func(acc, v float64) float64 {
		if v > acc {
			return v
		}
		return acc
	})
}

func (o *Observation) reduce(seed float64, f func(acc, v float64) float64) (float64, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	acc := seed
	found := false
	err := o.forEachPoint(func(p point) {
		acc = f(acc, p.Value)
		found = true
	})
	return acc, found, err
}

// Mean returns the arithmetic mean of buffered values.
func (o *Observation) Mean() (float64, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var sum float64
	var n int
	err := o.forEachPoint(func(p point) {
		sum += p.Value
		n++
	})
	if err != nil || n == 0 {
		return 0, false, err
	}
	return sum / float64(n), true, nil
}

// StdDev returns the population standard deviation of buffered values.
func (o *Observation) StdDev() (float64, bool, error) {
	mean, found, err := o.Mean()
	if err != nil || !found {
		return 0, found, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	var sumSq float64
	var n int
	err = o.forEachPoint(func(p point) {
		d := p.Value - mean
		sumSq += d * d
		n++
	})
	if err != nil || n == 0 {
		return 0, false, err
	}
	return math.Sqrt(sumSq / float64(n)), true, nil
}

// FindAfter returns the earliest buffered point with a timestamp
// strictly greater than ts.
func (o *Observation) FindAfter(ts float64) (result float64, found bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	best := math.Inf(1)
	err = o.forEachPoint(func(p point) {
		if p.Timestamp > ts && p.Timestamp < best {
			best = p.Timestamp
			result = p.Value
			found = true
		}
	})
	return result, found, err
}

// DumpJSON renders every buffered point, oldest first, as a JSON
// array, for the admin facade's buffer-inspection operation.
func (o *Observation) DumpJSON() ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var points []point
	err := o.forEachPoint(func(p point) { points = append(points, p) })
	if err != nil {
		return nil, err
	}
	return json.Marshal(points)
}
