// File: atomicx/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dynamic dispatch over element types. Reflectively bound operators carry
// slices as plain any values; these entry points route to the typed fast
// paths. Unknown element types and float max/min surface NotSupported.

package atomicx

import (
	"reflect"

	"github.com/momentics/parfor/api"
)

type opKind int

const (
	opAdd opKind = iota
	opSub
	opMax
	opMin
)

var opNames = map[opKind]string{
	opAdd: "add",
	opSub: "sub",
	opMax: "max",
	opMin: "min",
}

// Add atomically adds v to arr[i] and returns the previous value.
func Add(arr any, i int, v any) (any, error) { return dispatch(opAdd, arr, i, v) }

// Sub atomically subtracts v from arr[i] and returns the previous value.
func Sub(arr any, i int, v any) (any, error) { return dispatch(opSub, arr, i, v) }

// Max atomically raises arr[i] to v if greater and returns the previous
// value. Defined for integer element types only.
func Max(arr any, i int, v any) (any, error) { return dispatch(opMax, arr, i, v) }

// Min atomically lowers arr[i] to v if smaller and returns the previous
// value. Defined for integer element types only.
func Min(arr any, i int, v any) (any, error) { return dispatch(opMin, arr, i, v) }

func dispatch(op opKind, arr any, i int, v any) (any, error) {
	switch s := arr.(type) {
	case []int64:
		x, err := coerce[int64](v)
		if err != nil {
			return nil, err
		}
		switch op {
		case opAdd:
			return AddInt64(s, i, x)
		case opSub:
			return SubInt64(s, i, x)
		case opMax:
			return MaxInt64(s, i, x)
		default:
			return MinInt64(s, i, x)
		}
	case []uint64:
		x, err := coerce[uint64](v)
		if err != nil {
			return nil, err
		}
		switch op {
		case opAdd:
			return AddUint64(s, i, x)
		case opSub:
			return SubUint64(s, i, x)
		case opMax:
			return MaxUint64(s, i, x)
		default:
			return MinUint64(s, i, x)
		}
	case []int32:
		x, err := coerce[int32](v)
		if err != nil {
			return nil, err
		}
		switch op {
		case opAdd:
			return AddInt32(s, i, x)
		case opSub:
			return SubInt32(s, i, x)
		case opMax:
			return MaxInt32(s, i, x)
		default:
			return MinInt32(s, i, x)
		}
	case []uint32:
		x, err := coerce[uint32](v)
		if err != nil {
			return nil, err
		}
		switch op {
		case opAdd:
			return AddUint32(s, i, x)
		case opSub:
			return SubUint32(s, i, x)
		case opMax:
			return MaxUint32(s, i, x)
		default:
			return MinUint32(s, i, x)
		}
	case []float64:
		if op == opMax || op == opMin {
			return nil, api.Errorf(api.ErrCodeNotSupported,
				"atomicx: atomic %s not defined for floating-point elements", opNames[op])
		}
		x, err := coerce[float64](v)
		if err != nil {
			return nil, err
		}
		if op == opAdd {
			return AddFloat64(s, i, x)
		}
		return SubFloat64(s, i, x)
	case []float32:
		if op == opMax || op == opMin {
			return nil, api.Errorf(api.ErrCodeNotSupported,
				"atomicx: atomic %s not defined for floating-point elements", opNames[op])
		}
		x, err := coerce[float32](v)
		if err != nil {
			return nil, err
		}
		if op == opAdd {
			return AddFloat32(s, i, x)
		}
		return SubFloat32(s, i, x)
	default:
		return nil, api.Errorf(api.ErrCodeNotSupported,
			"atomicx: atomic %s not defined for %T", opNames[op], arr)
	}
}

// coerce converts v to the element type T. Numeric widening/narrowing is
// accepted; incompatible kinds fail with TypeMismatch.
func coerce[T any](v any) (T, error) {
	if x, ok := v.(T); ok {
		return x, nil
	}
	var zero T
	dst := reflect.TypeOf(zero)
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || !rv.Type().ConvertibleTo(dst) {
		return zero, api.Errorf(api.ErrCodeTypeMismatch,
			"atomicx: cannot convert %T to %v", v, dst)
	}
	return rv.Convert(dst).Interface().(T), nil
}
