// File: sched/mpmc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded MPMC ring for chunk hand-off between loop workers, using
// per-cell sequence numbers (Vyukov's scheme). Full means the caller
// spills to the unbounded overflow queue; the ring itself never blocks.

package sched

import "sync/atomic"

const cacheLinePad = 64

type ringCell[T any] struct {
	sequence atomic.Uint64
	data     T
}

type mpmcRing[T any] struct {
	head  uint64
	_     [cacheLinePad]byte
	tail  uint64
	_     [cacheLinePad]byte
	mask  uint64
	cells []ringCell[T]
}

// newMPMCRing creates a ring with capacity rounded up to a power of two.
func newMPMCRing[T any](capacity int) *mpmcRing[T] {
	size := 2
	for size < capacity {
		size <<= 1
	}
	r := &mpmcRing[T]{
		mask:  uint64(size - 1),
		cells: make([]ringCell[T], size),
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

// enqueue adds val; returns false if the ring is full.
func (r *mpmcRing[T]) enqueue(val T) bool {
	for {
		tail := atomic.LoadUint64(&r.tail)
		c := &r.cells[tail&r.mask]
		dif := int64(c.sequence.Load()) - int64(tail)
		switch {
		case dif == 0:
			if atomic.CompareAndSwapUint64(&r.tail, tail, tail+1) {
				c.data = val
				c.sequence.Store(tail + 1)
				return true
			}
		case dif < 0:
			return false // full
		}
		// tail moved, retry
	}
}

// dequeue removes and returns an item; ok is false if the ring is empty.
func (r *mpmcRing[T]) dequeue() (item T, ok bool) {
	for {
		head := atomic.LoadUint64(&r.head)
		c := &r.cells[head&r.mask]
		dif := int64(c.sequence.Load()) - int64(head+1)
		switch {
		case dif == 0:
			if atomic.CompareAndSwapUint64(&r.head, head, head+1) {
				item = c.data
				var zero T
				c.data = zero
				c.sequence.Store(head + r.mask + 1)
				return item, true
			}
		case dif < 0:
			var zero T
			return zero, false // empty
		}
		// head moved, retry
	}
}
