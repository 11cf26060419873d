// File: atomicx/atomic.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Indivisible read-modify-write primitives on shared slice elements. Every
// operation is atomic with respect to all other atomic operations on the
// same element from any worker and returns the value present immediately
// before the update. Only the single element access is atomic; there is no
// ordering guarantee relative to other elements.

package atomicx

import (
	"sync/atomic"

	"github.com/momentics/parfor/api"
)

func boundsCheck(n, i int) error {
	if i < 0 || i >= n {
		return api.Errorf(api.ErrCodeBounds, "atomicx: index %d out of range [0,%d)", i, n)
	}
	return nil
}

// AddInt64 atomically adds v to s[i] and returns the previous value.
func AddInt64(s []int64, i int, v int64) (int64, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	return atomic.AddInt64(&s[i], v) - v, nil
}

// SubInt64 atomically subtracts v from s[i] and returns the previous value.
func SubInt64(s []int64, i int, v int64) (int64, error) {
	return AddInt64(s, i, -v)
}

// AddUint64 atomically adds v to s[i] and returns the previous value.
func AddUint64(s []uint64, i int, v uint64) (uint64, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	return atomic.AddUint64(&s[i], v) - v, nil
}

// SubUint64 atomically subtracts v from s[i] and returns the previous value.
func SubUint64(s []uint64, i int, v uint64) (uint64, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	return atomic.AddUint64(&s[i], ^(v - 1)) + v, nil
}

// AddInt32 atomically adds v to s[i] and returns the previous value.
func AddInt32(s []int32, i int, v int32) (int32, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	return atomic.AddInt32(&s[i], v) - v, nil
}

// SubInt32 atomically subtracts v from s[i] and returns the previous value.
func SubInt32(s []int32, i int, v int32) (int32, error) {
	return AddInt32(s, i, -v)
}

// AddUint32 atomically adds v to s[i] and returns the previous value.
func AddUint32(s []uint32, i int, v uint32) (uint32, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	return atomic.AddUint32(&s[i], v) - v, nil
}

// SubUint32 atomically subtracts v from s[i] and returns the previous value.
func SubUint32(s []uint32, i int, v uint32) (uint32, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	return atomic.AddUint32(&s[i], ^(v - 1)) + v, nil
}

// MaxInt64 atomically raises s[i] to v if v is greater and returns the
// previous value.
func MaxInt64(s []int64, i int, v int64) (int64, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt64(&s[i])
		if old >= v || atomic.CompareAndSwapInt64(&s[i], old, v) {
			return old, nil
		}
	}
}

// MinInt64 atomically lowers s[i] to v if v is smaller and returns the
// previous value.
func MinInt64(s []int64, i int, v int64) (int64, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt64(&s[i])
		if old <= v || atomic.CompareAndSwapInt64(&s[i], old, v) {
			return old, nil
		}
	}
}

// MaxUint64 atomically raises s[i] to v if v is greater and returns the
// previous value.
func MaxUint64(s []uint64, i int, v uint64) (uint64, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadUint64(&s[i])
		if old >= v || atomic.CompareAndSwapUint64(&s[i], old, v) {
			return old, nil
		}
	}
}

// MinUint64 atomically lowers s[i] to v if v is smaller and returns the
// previous value.
func MinUint64(s []uint64, i int, v uint64) (uint64, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadUint64(&s[i])
		if old <= v || atomic.CompareAndSwapUint64(&s[i], old, v) {
			return old, nil
		}
	}
}

// MaxInt32 atomically raises s[i] to v if v is greater and returns the
// previous value.
func MaxInt32(s []int32, i int, v int32) (int32, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt32(&s[i])
		if old >= v || atomic.CompareAndSwapInt32(&s[i], old, v) {
			return old, nil
		}
	}
}

// MinInt32 atomically lowers s[i] to v if v is smaller and returns the
// previous value.
func MinInt32(s []int32, i int, v int32) (int32, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadInt32(&s[i])
		if old <= v || atomic.CompareAndSwapInt32(&s[i], old, v) {
			return old, nil
		}
	}
}

// MaxUint32 atomically raises s[i] to v if v is greater and returns the
// previous value.
func MaxUint32(s []uint32, i int, v uint32) (uint32, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadUint32(&s[i])
		if old >= v || atomic.CompareAndSwapUint32(&s[i], old, v) {
			return old, nil
		}
	}
}

// MinUint32 atomically lowers s[i] to v if v is smaller and returns the
// previous value.
func MinUint32(s []uint32, i int, v uint32) (uint32, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	for {
		old := atomic.LoadUint32(&s[i])
		if old <= v || atomic.CompareAndSwapUint32(&s[i], old, v) {
			return old, nil
		}
	}
}
