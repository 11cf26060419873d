// File: api/closure.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Compiled-operator contracts. A closure is a compiled operator
// specialization paired with its captured bound state; schedulers invoke it
// with only the loop-varying arguments.

package api

// Closure1 is a bound operator taking a single unbound argument: the loop
// item. Produced for do_all-style loops.
type Closure1 interface {
	// Name returns the stable diagnostic identity of the bound operator.
	Name() string

	// Invoke runs the operator body for one item. A TypeMismatch error is
	// returned if the item's dynamic type does not match the operator's
	// declared unbound signature.
	Invoke(item any) error
}

// Closure2 is a bound operator taking two unbound arguments: the loop item
// and the scheduler mutation context. Produced for for_each-style loops.
type Closure2 interface {
	Name() string
	Invoke(item any, ctx Context) error
}

// Metric is a bound ordering metric mapping an item to a non-negative
// integer bucket. Must be pure: it may be evaluated many times per item.
type Metric interface {
	Name() string
	Bucket(item any) (int, error)
}

// Context is the mutation context handed to for_each operators.
type Context interface {
	// Push makes item visible to some worker, exactly once, for processing
	// within the surrounding for_each call.
	Push(item any)

	// Thread returns the executing worker index in [0, Parallelism).
	Thread() int
}
