// File: api/executor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor contract for parallel loop dispatch. The worker pool behind this
// interface is a black box to the schedulers: they only require that fn runs
// once per worker and that RunOnAll blocks until every worker returns.

package api

// Executor abstracts the worker pool that drives compiled closures.
type Executor interface {
	// RunOnAll invokes fn concurrently on every worker, passing the worker
	// index in [0, Parallelism), and blocks until all invocations return.
	RunOnAll(fn func(thread int))

	// Parallelism returns the fixed number of workers.
	Parallelism() int
}
