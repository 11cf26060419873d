// File: closure/builder.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Closure builder: binds a user operator plus a tuple of bound argument
// values into a reusable callable handle. The first bind of a given
// (operator, bound-type tuple) compiles a specialization; repeat binds with
// the same bound types share it and only construct a fresh environment.
// The specialization cache is append-only and never evicted during the
// builder's lifetime.

package closure

import (
	"reflect"
	"runtime"
	"sync"

	"github.com/momentics/parfor/api"
)

// Unbound arities per operator kind.
const (
	doAllUnbound   = 1 // the loop item
	forEachUnbound = 2 // the loop item and the mutation context
	metricUnbound  = 1 // the loop item
)

var contextType = reflect.TypeOf((*api.Context)(nil)).Elem()

type cacheKey struct {
	entry uintptr // operator entry point
	types string  // bound-argument type tuple
	kind  string
}

type specialization struct {
	name     string
	itemType reflect.Type
	numBound int
	invoker  Invoker
}

// Builder compiles and caches operator specializations.
type Builder struct {
	mu    sync.Mutex
	cache map[cacheKey]*specialization
}

// NewBuilder creates an empty builder. The cache persists across loop
// invocations to amortize compilation cost.
func NewBuilder() *Builder {
	return &Builder{cache: make(map[cacheKey]*specialization)}
}

// CacheSize returns the number of compiled specializations.
func (b *Builder) CacheSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cache)
}

// BindDoAll binds fn and the bound arguments into a do_all operator. The
// operator must have the form func(bound..., item) with no results.
func (b *Builder) BindDoAll(fn any, bound ...any) (api.Closure1, error) {
	spec, err := b.compile(fn, bound, "do_all", doAllUnbound, func(t reflect.Type, nb int) error {
		if t.NumOut() != 0 {
			return api.Errorf(api.ErrCodeTypeMismatch,
				"closure: do_all operator %v must not return values", t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &closure1{spec: spec, env: newEnvironment(bound)}, nil
}

// BindForEach binds fn and the bound arguments into a for_each operator.
// The operator must have the form func(bound..., item, api.Context) with no
// results.
func (b *Builder) BindForEach(fn any, bound ...any) (api.Closure2, error) {
	spec, err := b.compile(fn, bound, "for_each", forEachUnbound, func(t reflect.Type, nb int) error {
		if t.NumOut() != 0 {
			return api.Errorf(api.ErrCodeTypeMismatch,
				"closure: for_each operator %v must not return values", t)
		}
		if t.In(t.NumIn()-1) != contextType {
			return api.Errorf(api.ErrCodeTypeMismatch,
				"closure: for_each operator %v must take api.Context as its final parameter", t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &closure2{spec: spec, env: newEnvironment(bound)}, nil
}

// BindMetric binds fn and the bound arguments into an ordering metric. The
// metric must have the form func(bound..., item) int and must be pure: it
// may be evaluated many times per item.
func (b *Builder) BindMetric(fn any, bound ...any) (api.Metric, error) {
	spec, err := b.compile(fn, bound, "metric", metricUnbound, func(t reflect.Type, nb int) error {
		if t.NumOut() != 1 || t.Out(0).Kind() != reflect.Int {
			return api.Errorf(api.ErrCodeTypeMismatch,
				"closure: ordering metric %v must return a single int", t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &metric{spec: spec, env: newEnvironment(bound)}, nil
}

// compile validates the operator signature against the bound arguments and
// returns the cached specialization, compiling one on first use.
func (b *Builder) compile(fn any, bound []any, kind string, unbound int,
	check func(t reflect.Type, numBound int) error) (*specialization, error) {

	val := reflect.ValueOf(fn)
	if !val.IsValid() || val.Kind() != reflect.Func {
		return nil, api.Errorf(api.ErrCodeTypeMismatch, "closure: %T is not a function", fn)
	}
	t := val.Type()
	if t.IsVariadic() {
		return nil, api.Errorf(api.ErrCodeTypeMismatch,
			"closure: variadic operator %v not supported", t)
	}
	if t.NumIn() != len(bound)+unbound {
		return nil, api.Errorf(api.ErrCodeTypeMismatch,
			"closure: %s operator %v takes %d arguments, %d bound + %d unbound given",
			kind, t, t.NumIn(), len(bound), unbound)
	}
	if err := check(t, len(bound)); err != nil {
		return nil, err
	}

	types := ""
	for i, arg := range bound {
		at := t.In(i)
		if arg != nil {
			dt := reflect.TypeOf(arg)
			if !dt.AssignableTo(at) {
				return nil, api.Errorf(api.ErrCodeTypeMismatch,
					"closure: bound argument %d has type %v, operator wants %v", i, dt, at).
					WithContext("operator", functionName(val))
			}
			at = dt
		}
		types += at.String() + ";"
	}

	key := cacheKey{entry: val.Pointer(), types: types, kind: kind}
	b.mu.Lock()
	defer b.mu.Unlock()
	if spec, ok := b.cache[key]; ok {
		return spec, nil
	}
	spec := &specialization{
		name:     functionName(val),
		itemType: t.In(len(bound)),
		numBound: len(bound),
		invoker:  makeInvoker(fn),
	}
	b.cache[key] = spec
	return spec, nil
}

// functionName returns the symbol name of an operator function.
func functionName(val reflect.Value) string {
	if f := runtime.FuncForPC(val.Pointer()); f != nil {
		return f.Name()
	}
	return val.Type().String()
}

// checkItem verifies the dynamic type of a loop item against the declared
// unbound item parameter. Mismatches surface at the call boundary and are
// never coerced.
func (s *specialization) checkItem(item any) error {
	if s.itemType.Kind() == reflect.Interface {
		if item == nil || reflect.TypeOf(item).Implements(s.itemType) {
			return nil
		}
	} else if item != nil && reflect.TypeOf(item).AssignableTo(s.itemType) {
		return nil
	}
	return api.Errorf(api.ErrCodeTypeMismatch,
		"closure: operator %s wants item type %v, got %T", s.name, s.itemType, item)
}

func (s *specialization) args(env *Environment, unbound ...any) []any {
	args := make([]any, 0, s.numBound+len(unbound))
	args = append(args, env.bound...)
	return append(args, unbound...)
}

type closure1 struct {
	spec *specialization
	env  *Environment
}

func (c *closure1) Name() string { return c.spec.name }

func (c *closure1) Invoke(item any) error {
	if err := c.spec.checkItem(item); err != nil {
		return err
	}
	c.spec.invoker.Call(c.spec.args(c.env, item))
	return nil
}

type closure2 struct {
	spec *specialization
	env  *Environment
}

func (c *closure2) Name() string { return c.spec.name }

func (c *closure2) Invoke(item any, ctx api.Context) error {
	if err := c.spec.checkItem(item); err != nil {
		return err
	}
	c.spec.invoker.Call(c.spec.args(c.env, item, ctx))
	return nil
}

type metric struct {
	spec *specialization
	env  *Environment
}

func (m *metric) Name() string { return m.spec.name }

func (m *metric) Bucket(item any) (int, error) {
	if err := m.spec.checkItem(item); err != nil {
		return 0, err
	}
	out := m.spec.invoker.Call(m.spec.args(m.env, item))
	bucket := out[0].(int)
	if bucket < 0 {
		return 0, api.Errorf(api.ErrCodeInternal,
			"closure: ordering metric %s returned negative bucket %d", m.spec.name, bucket)
	}
	return bucket, nil
}
