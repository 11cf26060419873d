// File: sched/doall.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unordered data-parallel scheduler. Each worker owns a packed [begin,end)
// position word; claiming an item is one atomic increment of the low half.
// Idle workers steal the upper half of a victim's remaining range with a
// single CAS, so load balancing costs nothing on the fast path. No
// ordering guarantee between items; the call blocks until every item has
// been processed exactly once or an operator error aborts the loop.

package sched

import (
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/parfor/api"
	"github.com/momentics/parfor/control"
)

// DoAll executes op once per item of items across all workers. Operators
// may mutate shared arrays, atomics and accumulators but must not create
// new work. The first operator error aborts remaining work and is
// returned.
func (rt *Runtime) DoAll(items api.Sequence, op api.Closure1, opts ...LoopOption) error {
	if err := rt.checkOpen(); err != nil {
		return err
	}
	cfg := newLoopConfig(opts)
	if cfg.conflict != conflictUnset || cfg.setMetric || cfg.setNoPushes {
		return api.NewError(api.ErrCodeConfig,
			"sched: worklist options are not applicable to DoAll")
	}
	if items == nil || op == nil {
		return api.NewError(api.ErrCodeConfig, "sched: DoAll requires items and an operator")
	}
	n := items.Len()
	if n == 0 {
		rt.loopStats(cfg.name)
		return nil
	}
	if uint64(n) >= math.MaxUint32 {
		return api.Errorf(api.ErrCodeConfig,
			"sched: sequence of %d items exceeds the position word capacity", n)
	}

	l := &doAllLoop{
		items: items,
		op:    op,
		stats: rt.loopStats(cfg.name),
	}
	nthr := rt.exec.Parallelism()
	if cfg.steal && nthr > 1 {
		l.pos = make([]workerPos, nthr)
		for w := 0; w < nthr; w++ {
			begin := uint32(w * n / nthr)
			end := uint32((w + 1) * n / nthr)
			l.pos[w].pos.Store(packPos(begin, end))
		}
		rt.exec.RunOnAll(l.runStealing)
	} else {
		rt.exec.RunOnAll(func(w int) {
			l.runStatic(uint32(w*n/nthr), uint32((w+1)*n/nthr))
		})
	}
	if err := l.err(); err != nil {
		logLoopError("do_all", cfg.name, err)
		return err
	}
	return nil
}

// workerPos holds one worker's iteration space packed as begin (low 32
// bits) and end (high 32 bits), padded to its own cache line.
type workerPos struct {
	pos atomic.Uint64
	_   [cacheLinePad - 8]byte
}

func packPos(begin, end uint32) uint64 {
	return uint64(begin) | uint64(end)<<32
}

type doAllLoop struct {
	items api.Sequence
	op    api.Closure1
	pos   []workerPos
	idle  atomic.Int32
	stats *control.LoopStats

	abort   atomic.Bool
	errOnce sync.Once
	loopErr error
}

func (l *doAllLoop) fail(err error) {
	l.errOnce.Do(func() { l.loopErr = err })
	l.abort.Store(true)
}

func (l *doAllLoop) err() error {
	if l.abort.Load() {
		return l.loopErr
	}
	return nil
}

// process invokes the operator for item index i; false aborts the loop.
func (l *doAllLoop) process(i uint32) bool {
	if err := l.invoke(int(i)); err != nil {
		l.fail(err)
		return false
	}
	if l.stats != nil {
		l.stats.Items.Add(1)
	}
	return true
}

func (l *doAllLoop) invoke(i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = api.Errorf(api.ErrCodeInternal, "sched: operator %s panicked: %v", l.op.Name(), r)
		}
	}()
	return l.op.Invoke(l.items.At(i))
}

func (l *doAllLoop) runStatic(begin, end uint32) {
	for i := begin; i < end; i++ {
		if l.abort.Load() || !l.process(i) {
			return
		}
	}
}

func (l *doAllLoop) runStealing(w int) {
	rng := rand.New(rand.NewPCG(uint64(w), uint64(len(l.pos))))
	me := &l.pos[w].pos
	for {
		// Drain the local range: bump the low half and run the claimed
		// iteration until begin catches up with end.
		for {
			if l.abort.Load() {
				return
			}
			pos := me.Add(1)
			begin := uint32(pos) - 1
			end := uint32(pos >> 32)
			if begin >= end {
				break
			}
			if !l.process(begin) {
				return
			}
		}
		if !l.steal(w, rng) {
			if l.waitOrFinish(w) {
				return
			}
		}
	}
}

// steal moves the upper half of some victim's remaining range into this
// worker's position word. A single leftover item is never stolen; its
// owner is about to claim it.
func (l *doAllLoop) steal(w int, rng *rand.Rand) bool {
	nthr := len(l.pos)
	for try := 0; try < 2*nthr; try++ {
		victim := rng.IntN(nthr - 1)
		if victim >= w {
			victim++
		}
		vp := &l.pos[victim].pos
		for {
			pos := vp.Load()
			begin := uint32(pos)
			end := uint32(pos >> 32)
			if begin+1 >= end {
				break
			}
			mid := begin + (end-begin)/2
			if vp.CompareAndSwap(pos, packPos(begin, mid)) {
				l.pos[w].pos.Store(packPos(mid, end))
				if l.stats != nil {
					l.stats.Steals.Add(1)
				}
				return true
			}
		}
	}
	return false
}

// waitOrFinish parks the worker as idle. It returns true when every worker
// is idle (the loop is complete) and false when stealable work reappeared.
func (l *doAllLoop) waitOrFinish(w int) bool {
	l.idle.Add(1)
	for {
		if l.abort.Load() || int(l.idle.Load()) == len(l.pos) {
			return true
		}
		for v := range l.pos {
			if v == w {
				continue
			}
			pos := l.pos[v].pos.Load()
			if uint32(pos)+1 < uint32(pos>>32) {
				l.idle.Add(-1)
				return false
			}
		}
		runtime.Gosched()
	}
}
