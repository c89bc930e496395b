// atomic_float provides a float64 that many goroutines can update without
// a lock, stored as its IEEE-754 bits in an atomic.Uint64.
package atomic_float

import (
	"math"
	"sync/atomic"
)

// AtomicFloat64 is a float64 for lock-free reads and updates. The zero value
// holds 0.
type AtomicFloat64 struct {
	bits atomic.Uint64
}

func NewAtomicFloat64(val float64) *AtomicFloat64 {
	af := &AtomicFloat64{}
	af.bits.Store(math.Float64bits(val))
	return af
}

// AtomicRead returns the current value.
func (af *AtomicFloat64) AtomicRead() float64 {
	return math.Float64frombits(af.bits.Load())
}

// AtomicSet replaces the value unconditionally.
func (af *AtomicFloat64) AtomicSet(val float64) {
	af.bits.Store(math.Float64bits(val))
}

// TryAdd adds addend once. It fails, leaving the value alone, if another
// writer changed the value between the read and the swap; the caller decides
// whether to retry.
func (af *AtomicFloat64) TryAdd(addend float64) (newVal float64, succeeded bool) {
	old := af.bits.Load()
	newVal = math.Float64frombits(old) + addend
	succeeded = af.bits.CompareAndSwap(old, math.Float64bits(newVal))
	return
}

// AtomicAdd adds addend, retrying until no other writer intervenes.
func (af *AtomicFloat64) AtomicAdd(addend float64) float64 {
	for {
		if newVal, ok := af.TryAdd(addend); ok {
			return newVal
		}
	}
}
