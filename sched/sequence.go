// File: sched/sequence.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sequence adapters for the common loop inputs: index ranges and slices.

package sched

import "github.com/momentics/parfor/api"

type rangeSeq struct {
	lo, hi int
}

func (r rangeSeq) Len() int {
	if r.hi <= r.lo {
		return 0
	}
	return r.hi - r.lo
}

func (r rangeSeq) At(i int) any { return r.lo + i }

// Range returns the half-open index interval [lo, hi) as a Sequence of int
// items.
func Range(lo, hi int) api.Sequence { return rangeSeq{lo: lo, hi: hi} }

type sliceSeq[T any] struct {
	s []T
}

func (s sliceSeq[T]) Len() int     { return len(s.s) }
func (s sliceSeq[T]) At(i int) any { return s.s[i] }

// Items wraps a slice as a Sequence; each element is one work unit.
func Items[T any](s []T) api.Sequence { return sliceSeq[T]{s: s} }
