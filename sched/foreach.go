// File: sched/foreach.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Worklist scheduler with dynamic work creation. Operators receive a
// mutation context whose Push makes new items visible to any worker;
// termination is global quiescence, tracked by a single pending counter:
// every enqueue increments it, every completed item decrements it, and
// workers exit when it reaches zero. The conflict-detection mode acquires
// per-item ownership before invoking the operator and re-queues the item
// on contention; that retry is normal operation, invisible to the caller.

package sched

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/parfor/api"
	"github.com/momentics/parfor/control"
)

// ForEach drains a dynamic worklist seeded with seed. The conflict mode
// must be stated explicitly via WithConflictDetection; leaving it unset is
// a configuration error, since silently running trusted would invite racy
// corruption. The call blocks until the worklist is quiescent.
func (rt *Runtime) ForEach(seed api.Sequence, op api.Closure2, opts ...LoopOption) error {
	if err := rt.checkOpen(); err != nil {
		return err
	}
	cfg := newLoopConfig(opts)
	if cfg.setSteal {
		return api.NewError(api.ErrCodeConfig,
			"sched: WithSteal is not applicable to ForEach")
	}
	if cfg.conflict == conflictUnset {
		return api.NewError(api.ErrCodeConfig,
			"sched: ForEach requires WithConflictDetection(true) or WithConflictDetection(false)")
	}
	if seed == nil || op == nil {
		return api.NewError(api.ErrCodeConfig, "sched: ForEach requires seed items and an operator")
	}

	nthr := rt.exec.Parallelism()
	l := &forEachLoop{
		op:       op,
		nthr:     nthr,
		noPushes: cfg.noPushes,
		stats:    rt.loopStats(cfg.name),
	}
	if cfg.metric != nil {
		l.wl = newOBIM(cfg.metric)
	} else {
		l.wl = newChunkedFIFO(nthr, rt.cfg.ChunkSize)
	}
	if cfg.conflict == conflictDetect {
		l.conflicts = newConflictTable()
	}

	// Seed the worklist before any worker starts; metric evaluation may
	// reject an item here, in which case no work runs at all.
	for i := 0; i < seed.Len(); i++ {
		l.pending.Add(1)
		if err := l.wl.push(i%nthr, seed.At(i)); err != nil {
			logLoopError("for_each", cfg.name, err)
			return err
		}
	}

	rt.exec.RunOnAll(l.run)
	if err := l.err(); err != nil {
		logLoopError("for_each", cfg.name, err)
		return err
	}
	return nil
}

type forEachLoop struct {
	op        api.Closure2
	wl        worklist
	conflicts *conflictTable
	nthr      int
	noPushes  bool
	pending   atomic.Int64
	stats     *control.LoopStats

	abort   atomic.Bool
	errOnce sync.Once
	loopErr error
}

func (l *forEachLoop) fail(err error) {
	l.errOnce.Do(func() { l.loopErr = err })
	l.abort.Store(true)
}

func (l *forEachLoop) err() error {
	if l.abort.Load() {
		return l.loopErr
	}
	return nil
}

func (l *forEachLoop) run(w int) {
	ctx := &loopContext{l: l, w: w}
	for {
		if l.abort.Load() {
			return
		}
		item, ok := l.wl.pop(w)
		if !ok {
			if l.noPushes || l.pending.Load() == 0 {
				return
			}
			// Another worker may still publish pushed or retried items.
			runtime.Gosched()
			continue
		}
		l.processItem(w, ctx, item)
	}
}

func (l *forEachLoop) processItem(w int, ctx *loopContext, item any) {
	if l.conflicts != nil {
		if !l.conflicts.tryAcquire(w, item) {
			// Ownership miss: re-queue without touching the pending
			// counter, the item is still outstanding. The operator has
			// not run, so the retry starts from scratch.
			if l.stats != nil {
				l.stats.Conflicts.Add(1)
			}
			if err := l.wl.push(w, item); err != nil {
				l.fail(err)
			}
			return
		}
		defer l.conflicts.release(item)
	}
	if err := l.invoke(item, ctx); err != nil {
		l.fail(err)
		return
	}
	if l.stats != nil {
		l.stats.Items.Add(1)
	}
	l.pending.Add(-1)
}

func (l *forEachLoop) invoke(item any, ctx *loopContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = api.Errorf(api.ErrCodeInternal, "sched: operator %s panicked: %v", l.op.Name(), r)
		}
	}()
	return l.op.Invoke(item, ctx)
}

// loopContext is the api.Context handed to operators; one per worker, so
// Push lands in the worker's own chunk without synchronization.
type loopContext struct {
	l *forEachLoop
	w int
}

var _ api.Context = (*loopContext)(nil)

// Push makes item eligible for processing by any worker within the
// surrounding ForEach call.
func (c *loopContext) Push(item any) {
	l := c.l
	l.pending.Add(1)
	if l.stats != nil {
		l.stats.Pushes.Add(1)
	}
	if err := l.wl.push(c.w, item); err != nil {
		l.pending.Add(-1)
		l.fail(err)
	}
}

// Thread returns the executing worker index.
func (c *loopContext) Thread() int { return c.w }
