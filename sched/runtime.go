// File: sched/runtime.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime is the explicit handle threaded through every scheduler call:
// it owns the worker executor, the closure builder with its specialization
// cache, and the statistics registry. There is no process-global runtime;
// construction and teardown are scoped to the caller.

package sched

import (
	"log"

	"sync/atomic"

	"github.com/momentics/parfor/api"
	"github.com/momentics/parfor/closure"
	"github.com/momentics/parfor/control"
)

// Config holds parameters immutable per runtime.
type Config struct {
	Parallelism int  // worker count; <= 0 selects one per logical CPU
	ChunkSize   int  // for_each worker-local chunk capacity
	PinWorkers  bool // bind pool workers to CPUs
	EnableStats bool // record per-loop counters
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Parallelism: 0,
		ChunkSize:   64,
		PinWorkers:  false,
		EnableStats: true,
	}
}

// RuntimeOption customizes runtime construction.
type RuntimeOption func(*Runtime)

// WithExecutor replaces the internally created thread pool with a
// caller-supplied executor. The caller then owns the executor's lifetime;
// Close will not stop it.
func WithExecutor(exec api.Executor) RuntimeOption {
	return func(rt *Runtime) { rt.exec = exec }
}

// Runtime drives compiled closures over sequences and worklists.
type Runtime struct {
	cfg     *Config
	exec    api.Executor
	ownPool *ThreadPool
	builder *closure.Builder
	reg     *control.Registry
	closed  atomic.Bool
}

var _ api.Debug = (*Runtime)(nil)

// New constructs a runtime. With no WithExecutor option it starts an
// internal ThreadPool sized by cfg.Parallelism.
func New(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.ChunkSize <= 0 {
		return nil, api.Errorf(api.ErrCodeConfig, "sched: chunk size %d must be positive", cfg.ChunkSize)
	}
	rt := &Runtime{
		cfg:     cfg,
		builder: closure.NewBuilder(),
		reg:     control.NewRegistry(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.exec == nil {
		rt.ownPool = NewThreadPool(cfg.Parallelism, cfg.PinWorkers)
		rt.exec = rt.ownPool
	}
	rt.reg.RegisterProbe("workers", func() any { return rt.exec.Parallelism() })
	rt.reg.RegisterProbe("closure_cache", func() any { return rt.builder.CacheSize() })
	return rt, nil
}

// Builder returns the runtime's closure builder. Its specialization cache
// persists for the runtime's lifetime.
func (rt *Runtime) Builder() *closure.Builder { return rt.builder }

// BindDoAll binds a do_all operator; see closure.Builder.BindDoAll.
func (rt *Runtime) BindDoAll(fn any, bound ...any) (api.Closure1, error) {
	return rt.builder.BindDoAll(fn, bound...)
}

// BindForEach binds a for_each operator; see closure.Builder.BindForEach.
func (rt *Runtime) BindForEach(fn any, bound ...any) (api.Closure2, error) {
	return rt.builder.BindForEach(fn, bound...)
}

// BindMetric binds an ordering metric; see closure.Builder.BindMetric.
func (rt *Runtime) BindMetric(fn any, bound ...any) (api.Metric, error) {
	return rt.builder.BindMetric(fn, bound...)
}

// Parallelism returns the executor's worker count.
func (rt *Runtime) Parallelism() int { return rt.exec.Parallelism() }

// Stats returns a snapshot of per-loop counters.
func (rt *Runtime) Stats() map[string]any { return rt.reg.Snapshot() }

// RegisterProbe dynamically registers a debug probe.
func (rt *Runtime) RegisterProbe(name string, fn func() any) {
	rt.reg.RegisterProbe(name, fn)
}

// DumpState emits loop counters plus probe outputs.
func (rt *Runtime) DumpState() map[string]any { return rt.reg.DumpState() }

// Close stops the internally owned thread pool. Idempotent. Scheduler
// calls after Close fail with a closed error.
func (rt *Runtime) Close() error {
	if rt.closed.CompareAndSwap(false, true) {
		if rt.ownPool != nil {
			rt.ownPool.Close()
		}
	}
	return nil
}

func (rt *Runtime) checkOpen() error {
	if rt.closed.Load() {
		return api.NewError(api.ErrCodeClosed, "sched: runtime is closed")
	}
	return nil
}

// loopStats returns the stats bucket for a loop, or nil when stats are
// disabled.
func (rt *Runtime) loopStats(name string) *control.LoopStats {
	if !rt.cfg.EnableStats {
		return nil
	}
	ls := rt.reg.Loop(name)
	ls.Runs.Add(1)
	return ls
}

func logLoopError(kind, name string, err error) {
	if name == "" {
		log.Printf("[sched] %s failed: %v", kind, err)
		return
	}
	log.Printf("[sched] %s %q failed: %v", kind, name, err)
}
