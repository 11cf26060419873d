// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Loop statistics collector. Schedulers record per-loop counters here when
// stats are enabled; probes expose arbitrary runtime state for diagnostics.
// Counters are atomic so workers update them without coordination.

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// LoopStats aggregates counters for one named loop.
type LoopStats struct {
	Items     atomic.Int64 // operator invocations completed
	Steals    atomic.Int64 // cross-worker range steals (do_all)
	Pushes    atomic.Int64 // items pushed by operators (for_each)
	Conflicts atomic.Int64 // ownership misses that forced a retry
	Runs      atomic.Int64 // times a loop with this name executed
}

func (ls *LoopStats) snapshot() map[string]int64 {
	return map[string]int64{
		"items":     ls.Items.Load(),
		"steals":    ls.Steals.Load(),
		"pushes":    ls.Pushes.Load(),
		"conflicts": ls.Conflicts.Load(),
		"runs":      ls.Runs.Load(),
	}
}

// Registry holds per-loop statistics and dynamically registered probes.
type Registry struct {
	mu      sync.RWMutex
	loops   map[string]*LoopStats
	probes  map[string]func() any
	updated time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		loops:  make(map[string]*LoopStats),
		probes: make(map[string]func() any),
	}
}

// Loop returns the stats bucket for the given loop name, creating it on
// first use. Unnamed loops share the "(anonymous)" bucket.
func (r *Registry) Loop(name string) *LoopStats {
	if name == "" {
		name = "(anonymous)"
	}
	r.mu.RLock()
	ls, ok := r.loops[name]
	r.mu.RUnlock()
	if ok {
		return ls
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if ls, ok = r.loops[name]; ok {
		return ls
	}
	ls = &LoopStats{}
	r.loops[name] = ls
	r.updated = time.Now()
	return ls
}

// Snapshot returns the latest per-loop counters.
func (r *Registry) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]any, len(r.loops))
	for name, ls := range r.loops {
		out[name] = ls.snapshot()
	}
	return out
}

// RegisterProbe dynamically registers a debug probe.
func (r *Registry) RegisterProbe(name string, fn func() any) {
	r.mu.Lock()
	r.probes[name] = fn
	r.updated = time.Now()
	r.mu.Unlock()
}

// DumpState emits a snapshot of loop counters and probe outputs.
func (r *Registry) DumpState() map[string]any {
	out := r.Snapshot()
	r.mu.RLock()
	probes := make(map[string]func() any, len(r.probes))
	for name, fn := range r.probes {
		probes[name] = fn
	}
	r.mu.RUnlock()
	for name, fn := range probes {
		out[name] = fn()
	}
	return out
}
