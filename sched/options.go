// File: sched/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Functional options for scheduler calls. Options that do not apply to the
// invoked discipline are rejected with a configuration error instead of
// being silently ignored.

package sched

import "github.com/momentics/parfor/api"

// LoopOption customizes one DoAll or ForEach call.
type LoopOption func(*loopConfig)

type conflictMode int

const (
	conflictUnset conflictMode = iota
	conflictDetect
	conflictTrust
)

type loopConfig struct {
	name     string
	steal    bool
	conflict conflictMode
	metric   api.Metric
	noPushes bool

	setSteal    bool
	setMetric   bool
	setNoPushes bool
}

func newLoopConfig(opts []LoopOption) *loopConfig {
	cfg := &loopConfig{steal: true}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLoopName attaches a diagnostic label to the loop. It has no semantic
// effect; statistics and log lines are keyed by it.
func WithLoopName(name string) LoopOption {
	return func(c *loopConfig) { c.name = name }
}

// WithSteal enables or disables cross-worker range stealing in DoAll.
// Stealing is on by default; disabling it gives each worker a fixed static
// partition. DoAll only.
func WithSteal(enabled bool) LoopOption {
	return func(c *loopConfig) {
		c.steal = enabled
		c.setSteal = true
	}
}

// WithConflictDetection selects the conflict handling mode of ForEach.
// Every ForEach call must state the mode explicitly: enabled means the
// scheduler acquires per-item ownership before invoking the operator and
// retries on contention; disabled means the operator is trusted to be
// race-safe and is invoked exactly once. ForEach only.
func WithConflictDetection(enabled bool) LoopOption {
	return func(c *loopConfig) {
		if enabled {
			c.conflict = conflictDetect
		} else {
			c.conflict = conflictTrust
		}
	}
}

// WithOrderedByMetric switches ForEach to the priority bucket discipline:
// items are grouped into buckets by the metric value at push time and
// buckets are drained in non-decreasing order. ForEach only.
func WithOrderedByMetric(m api.Metric) LoopOption {
	return func(c *loopConfig) {
		c.metric = m
		c.setMetric = true
	}
}

// WithChunkedFIFO selects the default unordered chunked-FIFO worklist
// discipline explicitly. ForEach only.
func WithChunkedFIFO() LoopOption {
	return func(c *loopConfig) {
		c.metric = nil
		c.setMetric = true
	}
}

// WithNoPushes declares that the operator never pushes new items, enabling
// a cheaper single-pass drain. Pushing with this hint set is undefined
// behavior. ForEach only.
func WithNoPushes() LoopOption {
	return func(c *loopConfig) {
		c.noPushes = true
		c.setNoPushes = true
	}
}
