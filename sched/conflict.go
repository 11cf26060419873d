// File: sched/conflict.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-item ownership for conflict-aware worklist execution. Ownership is a
// striped CAS table keyed by an item hash: acquisition failure means some
// worker currently owns an item on the same stripe, and the scheduler
// re-queues the item instead of invoking the operator. Stripe collisions
// between distinct items cause spurious retries, never lost updates.

package sched

import (
	"fmt"
	"hash/fnv"
	"math"
	"sync/atomic"
)

const conflictSlots = 1 << 12

type conflictSlot struct {
	owner atomic.Int32
	_     [cacheLinePad - 4]byte
}

type conflictTable struct {
	slots []conflictSlot
}

func newConflictTable() *conflictTable {
	return &conflictTable{slots: make([]conflictSlot, conflictSlots)}
}

// tryAcquire claims the item's stripe for worker w. Returns false when the
// stripe is owned elsewhere; the caller must retry the item later.
func (t *conflictTable) tryAcquire(w int, item any) bool {
	s := &t.slots[hashItem(item)&(conflictSlots-1)]
	return s.owner.CompareAndSwap(0, int32(w)+1)
}

// release returns the item's stripe. Must only be called by the worker
// that acquired it.
func (t *conflictTable) release(item any) {
	s := &t.slots[hashItem(item)&(conflictSlots-1)]
	s.owner.Store(0)
}

// hashItem maps an item to a stripe. Integer and string items take the
// fast path; everything else hashes its printed form.
func hashItem(item any) uint64 {
	switch v := item.(type) {
	case int:
		return mix64(uint64(v))
	case int32:
		return mix64(uint64(v))
	case int64:
		return mix64(uint64(v))
	case uint32:
		return mix64(uint64(v))
	case uint64:
		return mix64(v)
	case uintptr:
		return mix64(uint64(v))
	case float64:
		return mix64(math.Float64bits(v))
	case string:
		h := fnv.New64a()
		h.Write([]byte(v))
		return h.Sum64()
	default:
		h := fnv.New64a()
		fmt.Fprintf(h, "%v", v)
		return h.Sum64()
	}
}

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
