// File: closure/specializations.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pre-registered invokers for the loop signatures that dominate array and
// graph kernels. Anything not listed here goes through the reflection
// fallback; callers with other hot signatures can add their own via
// RegisterInvoker.

package closure

import (
	"reflect"

	"github.com/momentics/parfor/api"
)

func init() {
	RegisterInvoker(reflect.TypeOf(func([]int64, int) {}), func(fn any) Invoker {
		return &invokerSliceInt64Int{fn: fn.(func([]int64, int))}
	})
	RegisterInvoker(reflect.TypeOf(func([]int64, int64) {}), func(fn any) Invoker {
		return &invokerSliceInt64Int64{fn: fn.(func([]int64, int64))}
	})
	RegisterInvoker(reflect.TypeOf(func([]int64, int, api.Context) {}), func(fn any) Invoker {
		return &invokerSliceInt64IntCtx{fn: fn.(func([]int64, int, api.Context))}
	})
	RegisterInvoker(reflect.TypeOf(func([]float64, int) {}), func(fn any) Invoker {
		return &invokerSliceFloat64Int{fn: fn.(func([]float64, int))}
	})
}

type invokerSliceInt64Int struct {
	fn func([]int64, int)
}

func (inv *invokerSliceInt64Int) Type() reflect.Type { return reflect.TypeOf(inv.fn) }

func (inv *invokerSliceInt64Int) Call(args []any) []any {
	inv.fn(args[0].([]int64), args[1].(int))
	return nil
}

type invokerSliceInt64Int64 struct {
	fn func([]int64, int64)
}

func (inv *invokerSliceInt64Int64) Type() reflect.Type { return reflect.TypeOf(inv.fn) }

func (inv *invokerSliceInt64Int64) Call(args []any) []any {
	inv.fn(args[0].([]int64), args[1].(int64))
	return nil
}

type invokerSliceInt64IntCtx struct {
	fn func([]int64, int, api.Context)
}

func (inv *invokerSliceInt64IntCtx) Type() reflect.Type { return reflect.TypeOf(inv.fn) }

func (inv *invokerSliceInt64IntCtx) Call(args []any) []any {
	inv.fn(args[0].([]int64), args[1].(int), args[2].(api.Context))
	return nil
}

type invokerSliceFloat64Int struct {
	fn func([]float64, int)
}

func (inv *invokerSliceFloat64Int) Type() reflect.Type { return reflect.TypeOf(inv.fn) }

func (inv *invokerSliceFloat64Int) Call(args []any) []any {
	inv.fn(args[0].([]float64), args[1].(int))
	return nil
}
