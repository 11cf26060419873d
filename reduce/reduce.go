// File: reduce/reduce.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reduction accumulators: per-shard partial state folded on demand. Update
// is safe to call concurrently from any worker; Reduce and Reset are
// synchronization points that must only run after all workers have
// quiesced (a scheduler barrier). Concurrent Update and Reduce on the same
// accumulator is a contract violation.

package reduce

import (
	"math"
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
)

// Number constrains the numeric element types accepted by Sum, Max and Min.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

type shard[T any] struct {
	mu    sync.Mutex
	value T
	_     [64]byte // keep shards on separate cache lines
}

// Accumulator folds values into sharded partials with an associative,
// commutative combine function.
type Accumulator[T any] struct {
	identity T
	combine  func(T, T) T
	shards   []shard[T]
	hint     atomic.Uint32
}

// New creates an accumulator from an identity value and a combine function.
// The combine function must be associative and commutative.
func New[T any](identity T, combine func(T, T) T) *Accumulator[T] {
	n := 1
	for n < runtime.NumCPU() {
		n <<= 1
	}
	a := &Accumulator[T]{
		identity: identity,
		combine:  combine,
		shards:   make([]shard[T], n),
	}
	for i := range a.shards {
		a.shards[i].value = identity
	}
	return a
}

// Update folds v into one of the partials. The shard is picked by a cheap
// rotating hint; contended shards are skipped via TryLock so concurrent
// updaters spread out instead of queueing.
func (a *Accumulator[T]) Update(v T) {
	n := len(a.shards)
	start := int(a.hint.Add(1))
	for k := 0; k < n; k++ {
		s := &a.shards[(start+k)&(n-1)]
		if s.mu.TryLock() {
			s.value = a.combine(s.value, v)
			s.mu.Unlock()
			return
		}
	}
	s := &a.shards[start&(n-1)]
	s.mu.Lock()
	s.value = a.combine(s.value, v)
	s.mu.Unlock()
}

// Reduce merges all partials into a single value. It does not modify the
// partials, so calling it again with no intervening updates yields the same
// result. Callers must ensure no Update is in flight.
func (a *Accumulator[T]) Reduce() T {
	out := a.identity
	for i := range a.shards {
		out = a.combine(out, a.shards[i].value)
	}
	return out
}

// Reset restores every partial to the identity value.
func (a *Accumulator[T]) Reset() {
	for i := range a.shards {
		a.shards[i].value = a.identity
	}
}

// Sum returns an accumulator with identity 0 and combine +.
func Sum[T Number]() *Accumulator[T] {
	return New(T(0), func(x, y T) T { return x + y })
}

// Max returns an accumulator combining with max. The identity is the type
// minimum unless a caller-supplied seed is given.
func Max[T Number](seed ...T) *Accumulator[T] {
	id := minOf[T]()
	if len(seed) > 0 {
		id = seed[0]
	}
	return New(id, func(x, y T) T {
		if x > y {
			return x
		}
		return y
	})
}

// Min returns an accumulator combining with min. The identity is the type
// maximum unless a caller-supplied seed is given.
func Min[T Number](seed ...T) *Accumulator[T] {
	id := maxOf[T]()
	if len(seed) > 0 {
		id = seed[0]
	}
	return New(id, func(x, y T) T {
		if x < y {
			return x
		}
		return y
	})
}

// Or returns a logical-or accumulator with identity false.
func Or() *Accumulator[bool] {
	return New(false, func(x, y bool) bool { return x || y })
}

// And returns a logical-and accumulator with identity true.
func And() *Accumulator[bool] {
	return New(true, func(x, y bool) bool { return x && y })
}

// minOf returns the smallest representable value of T.
func minOf[T Number]() T {
	var zero T
	rt := reflect.TypeOf(zero)
	v := reflect.New(rt).Elem()
	switch rt.Kind() {
	case reflect.Float32, reflect.Float64:
		v.SetFloat(math.Inf(-1))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		// zero already
	default:
		v.SetInt(int64(-1) << (rt.Bits() - 1))
	}
	return v.Interface().(T)
}

// maxOf returns the largest representable value of T.
func maxOf[T Number]() T {
	var zero T
	rt := reflect.TypeOf(zero)
	v := reflect.New(rt).Elem()
	switch rt.Kind() {
	case reflect.Float32, reflect.Float64:
		v.SetFloat(math.Inf(1))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v.SetUint(^uint64(0) >> (64 - rt.Bits()))
	default:
		v.SetInt(int64(1)<<(rt.Bits()-1) - 1)
	}
	return v.Interface().(T)
}
