// File: closure/invoker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Untyped operator call interface with a registry of type-specialized
// implementations. The indirection lets hot loop signatures bypass
// reflection call overhead; unregistered operator types fall back to the
// reflection-based invoker.

package closure

import (
	"log"
	"reflect"
	"sync"
)

// Invoker is the compiled entry point of one operator specialization. Call
// receives the captured bound values followed by the unbound loop arguments
// and returns the operator's results (empty for loop operators, a single
// int for ordering metrics).
type Invoker interface {
	// Type returns the operator function type.
	Type() reflect.Type

	// Call invokes the operator with bound plus unbound arguments.
	Call(args []any) []any
}

var (
	invokers   = make(map[string]func(fn any) Invoker)
	invokersMu sync.Mutex
)

// RegisterInvoker registers a specialized invoker factory for the given
// operator function type, such as "func([]int64, int)". If multiple
// factories are registered for the same type, the last registration wins.
func RegisterInvoker(t reflect.Type, maker func(fn any) Invoker) {
	invokersMu.Lock()
	defer invokersMu.Unlock()

	key := t.String()
	if _, exists := invokers[key]; exists {
		log.Printf("[closure] invoker for %v already registered, overwriting", key)
	}
	invokers[key] = maker
}

// makeInvoker returns an invoker for the given operator function.
func makeInvoker(fn any) Invoker {
	invokersMu.Lock()
	maker, exists := invokers[reflect.TypeOf(fn).String()]
	invokersMu.Unlock()

	if exists {
		return maker(fn)
	}

	// No specialized implementation available; use the standard
	// reflection-based call.
	return &reflectInvoker{fn: reflect.ValueOf(fn)}
}

type reflectInvoker struct {
	fn reflect.Value
}

func (inv *reflectInvoker) Type() reflect.Type {
	return inv.fn.Type()
}

func (inv *reflectInvoker) Call(args []any) []any {
	t := inv.fn.Type()
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.New(t.In(i)).Elem()
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	out := inv.fn.Call(in)
	ret := make([]any, len(out))
	for i, v := range out {
		ret[i] = v.Interface()
	}
	return ret
}
