// File: sched/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worker pools implementing the api.Executor contract. ThreadPool keeps a
// fixed set of long-lived workers, optionally pinned to CPUs, so loop
// state stays thread-resident across scheduler calls. GoExecutor spawns
// plain goroutines per call for lightweight embedding and tests.

package sched

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/momentics/parfor/api"
	"github.com/momentics/parfor/internal/affinity"
)

// ThreadPool is a fixed-size pool of persistent loop workers.
type ThreadPool struct {
	tasks   []chan func(thread int)
	wg      sync.WaitGroup
	closeCh chan struct{}
	closed  atomic.Bool
}

var _ api.Executor = (*ThreadPool)(nil)

// NewThreadPool starts workers goroutines. When pin is true each worker is
// bound to one logical CPU for the lifetime of the pool. workers <= 0
// defaults to the number of logical CPUs.
func NewThreadPool(workers int, pin bool) *ThreadPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &ThreadPool{
		tasks:   make([]chan func(int), workers),
		closeCh: make(chan struct{}),
	}
	for w := 0; w < workers; w++ {
		p.tasks[w] = make(chan func(int), 1)
		p.wg.Add(1)
		go p.run(w, pin)
	}
	return p
}

func (p *ThreadPool) run(w int, pin bool) {
	defer p.wg.Done()
	if pin {
		if affinity.Pin(w) {
			defer affinity.Unpin()
		}
	}
	for {
		select {
		case fn := <-p.tasks[w]:
			fn(w)
		case <-p.closeCh:
			return
		}
	}
}

// RunOnAll invokes fn once per worker and blocks until every invocation
// returns. Calling RunOnAll on a closed pool is a no-op.
func (p *ThreadPool) RunOnAll(fn func(thread int)) {
	if p.closed.Load() {
		return
	}
	var barrier sync.WaitGroup
	barrier.Add(len(p.tasks))
	wrapped := func(w int) {
		defer barrier.Done()
		fn(w)
	}
	for w := range p.tasks {
		select {
		case p.tasks[w] <- wrapped:
		case <-p.closeCh:
			barrier.Done()
		}
	}
	barrier.Wait()
}

// Parallelism returns the fixed worker count.
func (p *ThreadPool) Parallelism() int { return len(p.tasks) }

// Close stops all workers and waits for them to exit. Idempotent.
func (p *ThreadPool) Close() {
	if p.closed.CompareAndSwap(false, true) {
		close(p.closeCh)
		p.wg.Wait()
	}
}

// GoExecutor runs loop workers as transient goroutines, one batch per
// call. Zero value uses one worker per logical CPU.
type GoExecutor struct {
	Workers int
}

var _ api.Executor = GoExecutor{}

// Parallelism returns the configured worker count.
func (g GoExecutor) Parallelism() int {
	if g.Workers <= 0 {
		return runtime.NumCPU()
	}
	return g.Workers
}

// RunOnAll invokes fn concurrently on Parallelism goroutines and blocks
// until all return.
func (g GoExecutor) RunOnAll(fn func(thread int)) {
	var eg errgroup.Group
	for w := 0; w < g.Parallelism(); w++ {
		eg.Go(func() error {
			fn(w)
			return nil
		})
	}
	_ = eg.Wait()
}
