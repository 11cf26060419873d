// File: sched/obim.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Ordered-by-integer-metric bucket queue. Items are grouped into FIFO
// buckets keyed by the metric value computed at push time; the dispenser
// always drains the lowest non-empty bucket, so an item pushed into a
// bucket below the one currently draining is still picked up — the scan
// restarts from the minimum on every pop. Order within a bucket is
// unspecified.

package sched

import (
	"container/heap"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/parfor/api"
)

type levelHeap []int

func (h levelHeap) Len() int           { return len(h) }
func (h levelHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h levelHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *levelHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *levelHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

type obim struct {
	metric api.Metric

	mu      sync.Mutex
	buckets map[int]*queue.Queue
	levels  levelHeap
}

func newOBIM(metric api.Metric) *obim {
	return &obim{
		metric:  metric,
		buckets: make(map[int]*queue.Queue),
	}
}

func (o *obim) push(w int, item any) error {
	// Metric evaluation happens outside the lock; it is user code and may
	// be arbitrarily expensive.
	level, err := o.metric.Bucket(item)
	if err != nil {
		return err
	}
	o.mu.Lock()
	b, ok := o.buckets[level]
	if !ok {
		b = queue.New()
		o.buckets[level] = b
		heap.Push(&o.levels, level)
	}
	b.Add(item)
	o.mu.Unlock()
	return nil
}

func (o *obim) pop(w int) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.levels.Len() > 0 {
		level := o.levels[0]
		b := o.buckets[level]
		if b.Length() == 0 {
			heap.Pop(&o.levels)
			delete(o.buckets, level)
			continue
		}
		return b.Remove(), true
	}
	return nil, false
}
