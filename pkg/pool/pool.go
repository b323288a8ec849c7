// Package pool implements the hub's two memory allocation strategies
// (spec.md §4.1, "Allocation policy"): a fixed-size pool for
// non-string samples, and a tiered string pool with three size classes
// where each class's block count is derived from the next larger
// class's, bounding worst-case consumption on resource-constrained
// devices while tolerating highly variable string sizes.
//
// This mirrors the reusable-slot pool shape the teacher codebase uses
// for its worker pool (acquire/release with bounded capacity and
// running stats), adapted here from a pool of goroutines to a pool of
// byte blocks.
package pool

import (
	"sync"
	"sync/atomic"

	"github.com/Nico26-sw/legato-Service-DataHub/pkg/result"
)

// Stats reports point-in-time pool utilization, exposed to
// internal/metrics as gauges.
type Stats struct {
	Capacity  int64
	InUse     int64
	Allocated int64 // lifetime allocation count
	Denied    int64 // lifetime NoMemory count
}

// Fixed is a capacity-bounded pool of equal-size slots. It never grows
// past its static reservation: once Capacity slots are in use, Acquire
// returns result.NoMemory rather than allocating further.
type Fixed struct {
	slots     chan struct{}
	blockSize int
	allocated int64
	denied    int64
	free      sync.Pool
}

// NewFixed creates a Fixed pool with room for capacity concurrently
// live blocks of blockSize bytes each.
func NewFixed(capacity, blockSize int) *Fixed {
	f := &Fixed{
		slots:     make(chan struct{}, capacity),
		blockSize: blockSize,
	}
	f.free.New = func() interface{} {
		b := make([]byte, blockSize)
		return &b
	}
	return f
}

// Acquire reserves one slot and returns a block of the pool's fixed
// size. It returns result.NoMemory if the pool's static reservation is
// exhausted.
func (f *Fixed) Acquire() ([]byte, error) {
	select {
	case f.slots <- struct{}{}:
		atomic.AddInt64(&f.allocated, 1)
		b := f.free.Get().(*[]byte)
		return (*b)[:f.blockSize], nil
	default:
		atomic.AddInt64(&f.denied, 1)
		return nil, result.New(result.NoMemory, "pool", "Acquire", "fixed pool exhausted")
	}
}

// Release returns a block to the pool, freeing its slot.
func (f *Fixed) Release(b []byte) {
	b = b[:cap(b)]
	f.free.Put(&b)
	select {
	case <-f.slots:
	default:
	}
}

// Stats returns a snapshot of pool utilization.
func (f *Fixed) Stats() Stats {
	return Stats{
		Capacity:  int64(cap(f.slots)),
		InUse:     int64(len(f.slots)),
		Allocated: atomic.LoadInt64(&f.allocated),
		Denied:    atomic.LoadInt64(&f.denied),
	}
}

// Counter is a capacity-bounded allocation gate with no backing
// buffer: it is used for the non-string sample pool, where the struct
// itself is an ordinary Go allocation but the *count* of concurrently
// live samples must still respect a static reservation.
type Counter struct {
	slots     chan struct{}
	allocated int64
	denied    int64
}

// NewCounter creates a Counter with room for capacity concurrently
// live allocations.
func NewCounter(capacity int) *Counter {
	return &Counter{slots: make(chan struct{}, capacity)}
}

// Acquire reserves one slot, or returns result.NoMemory if the pool's
// static reservation is exhausted.
func (c *Counter) Acquire() error {
	select {
	case c.slots <- struct{}{}:
		atomic.AddInt64(&c.allocated, 1)
		return nil
	default:
		atomic.AddInt64(&c.denied, 1)
		return result.New(result.NoMemory, "pool", "Acquire", "counter pool exhausted")
	}
}

// Release frees one slot.
func (c *Counter) Release() {
	select {
	case <-c.slots:
	default:
	}
}

// Stats returns a snapshot of counter utilization.
func (c *Counter) Stats() Stats {
	return Stats{
		Capacity:  int64(cap(c.slots)),
		InUse:     int64(len(c.slots)),
		Allocated: atomic.LoadInt64(&c.allocated),
		Denied:    atomic.LoadInt64(&c.denied),
	}
}

// TieredStringPool is the string-payload allocator backing Sample's
// string and json variants. It holds three size classes; the block
// count of each class is derived from the block count of the next
// larger class, so a deployment only tunes the large-class reservation
// and the derivation keeps the smaller classes' worst-case footprint
// bounded in proportion.
type TieredStringPool struct {
	small, medium, large *Fixed
}

// TierSizes are the byte capacities of the three size classes.
const (
	SmallBlockSize  = 32
	MediumBlockSize = 128
	LargeBlockSize  = 512
)

// DerivationFactor is how many blocks of a smaller class are reserved
// for every block of the next larger class.
const DerivationFactor = 4

// NewTieredStringPool builds the tiered pool from a single
// configuration knob: the number of large blocks. Medium and small
// class sizes are derived.
func NewTieredStringPool(largeBlocks int) *TieredStringPool {
	mediumBlocks := largeBlocks * DerivationFactor
	smallBlocks := mediumBlocks * DerivationFactor
	return &TieredStringPool{
		small:  NewFixed(smallBlocks, SmallBlockSize),
		medium: NewFixed(mediumBlocks, MediumBlockSize),
		large:  NewFixed(largeBlocks, LargeBlockSize),
	}
}

// classFor picks the smallest size class that can hold n bytes, or
// reports result.NoMemory if n exceeds the largest class.
func (p *TieredStringPool) classFor(n int) (*Fixed, error) {
	switch {
	case n <= SmallBlockSize:
		return p.small, nil
	case n <= MediumBlockSize:
		return p.medium, nil
	case n <= LargeBlockSize:
		return p.large, nil
	default:
		return nil, result.New(result.NoMemory, "pool", "classFor", "payload exceeds largest string size class")
	}
}

// Acquire copies payload into a pool-owned buffer sized to the
// smallest class that fits it.
func (p *TieredStringPool) Acquire(payload []byte) ([]byte, error) {
	class, err := p.classFor(len(payload))
	if err != nil {
		return nil, err
	}
	buf, err := class.Acquire()
	if err != nil {
		return nil, err
	}
	n := copy(buf, payload)
	return buf[:n], nil
}

// Release returns a payload buffer to its owning size class.
func (p *TieredStringPool) Release(payload []byte) {
	class, err := p.classFor(cap(payload))
	if err != nil {
		return
	}
	class.Release(payload)
}

// Stats returns per-class utilization snapshots.
func (p *TieredStringPool) Stats() (small, medium, large Stats) {
	return p.small.Stats(), p.medium.Stats(), p.large.Stats()
}
