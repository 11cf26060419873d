// File: api/sequence.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Finite input sequences for scheduler loops.

package api

// Sequence is a finite, random-access collection of work units. Schedulers
// partition it by index; At must be safe for concurrent calls with distinct
// indices.
type Sequence interface {
	Len() int
	At(i int) any
}
