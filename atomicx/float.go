// File: atomicx/float.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Floating-point atomic add/sub via compare-and-swap on the bit pattern.
// Atomic max/min are deliberately absent for floats: NaN and signed-zero
// ordering make a hardware-style atomic max/min ill-specified, so the
// dynamic dispatcher rejects them with a NotSupported error.

package atomicx

import (
	"math"
	"sync/atomic"
	"unsafe"
)

// AddFloat64 atomically adds v to s[i] and returns the previous value.
func AddFloat64(s []float64, i int, v float64) (float64, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	addr := (*uint64)(unsafe.Pointer(&s[i]))
	for {
		oldBits := atomic.LoadUint64(addr)
		old := math.Float64frombits(oldBits)
		if atomic.CompareAndSwapUint64(addr, oldBits, math.Float64bits(old+v)) {
			return old, nil
		}
	}
}

// SubFloat64 atomically subtracts v from s[i] and returns the previous value.
func SubFloat64(s []float64, i int, v float64) (float64, error) {
	return AddFloat64(s, i, -v)
}

// AddFloat32 atomically adds v to s[i] and returns the previous value.
func AddFloat32(s []float32, i int, v float32) (float32, error) {
	if err := boundsCheck(len(s), i); err != nil {
		return 0, err
	}
	addr := (*uint32)(unsafe.Pointer(&s[i]))
	for {
		oldBits := atomic.LoadUint32(addr)
		old := math.Float32frombits(oldBits)
		if atomic.CompareAndSwapUint32(addr, oldBits, math.Float32bits(old+v)) {
			return old, nil
		}
	}
}

// SubFloat32 atomically subtracts v from s[i] and returns the previous value.
func SubFloat32(s []float32, i int, v float32) (float32, error) {
	return AddFloat32(s, i, -v)
}
