// File: closure/environment.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package closure

// Environment holds the captured bound-argument values of one binding. It
// is owned exclusively by the closure wrapping it; captured slices and
// objects stay reachable for as long as the closure exists.
type Environment struct {
	bound []any
}

func newEnvironment(bound []any) *Environment {
	captured := make([]any, len(bound))
	copy(captured, bound)
	return &Environment{bound: captured}
}

// Bound returns the captured values in declaration order.
func (e *Environment) Bound() []any {
	return e.bound
}
