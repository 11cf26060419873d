// File: sched/worklist.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Chunked-FIFO worklist: each worker fills a private chunk and consumes
// from a private chunk, exchanging full chunks through a shared MPMC ring
// with an unbounded FIFO spill behind it. Order is approximately FIFO per
// worker with no global guarantee; chunk granularity keeps hand-off cheap
// and cache-friendly.

package sched

import (
	"sync"

	"github.com/eapache/queue"
)

// worklist is the dynamic item store behind ForEach. Implementations must
// tolerate concurrent push/pop from all workers.
type worklist interface {
	push(w int, item any) error
	pop(w int) (any, bool)
}

type chunk struct {
	items []any
	head  int
}

func (c *chunk) take() (any, bool) {
	if c == nil || c.head >= len(c.items) {
		return nil, false
	}
	item := c.items[c.head]
	c.items[c.head] = nil
	c.head++
	return item, true
}

// chunkPool recycles chunk buffers across pushes to avoid per-item
// allocation in push-heavy loops.
type chunkPool struct {
	pool sync.Pool
}

func newChunkPool(chunkSize int) *chunkPool {
	return &chunkPool{
		pool: sync.Pool{New: func() any {
			return &chunk{items: make([]any, 0, chunkSize)}
		}},
	}
}

func (p *chunkPool) get() *chunk {
	return p.pool.Get().(*chunk)
}

func (p *chunkPool) put(c *chunk) {
	c.items = c.items[:0]
	c.head = 0
	p.pool.Put(c)
}

type workerChunks struct {
	cur  *chunk // being consumed
	next *chunk // being filled
	_    [cacheLinePad]byte
}

type chunkedFIFO struct {
	chunkSize int
	locals    []workerChunks
	ring      *mpmcRing[*chunk]
	pool      *chunkPool

	spillMu sync.Mutex
	spill   *queue.Queue
}

func newChunkedFIFO(workers, chunkSize int) *chunkedFIFO {
	return &chunkedFIFO{
		chunkSize: chunkSize,
		locals:    make([]workerChunks, workers),
		ring:      newMPMCRing[*chunk](4 * workers),
		pool:      newChunkPool(chunkSize),
		spill:     queue.New(),
	}
}

func (wl *chunkedFIFO) push(w int, item any) error {
	l := &wl.locals[w]
	if l.next == nil {
		l.next = wl.pool.get()
	}
	l.next.items = append(l.next.items, item)
	if len(l.next.items) >= wl.chunkSize {
		wl.publish(l.next)
		l.next = nil
	}
	return nil
}

func (wl *chunkedFIFO) publish(c *chunk) {
	if wl.ring.enqueue(c) {
		return
	}
	wl.spillMu.Lock()
	wl.spill.Add(c)
	wl.spillMu.Unlock()
}

func (wl *chunkedFIFO) pop(w int) (any, bool) {
	l := &wl.locals[w]
	if item, ok := l.cur.take(); ok {
		return item, true
	}
	if l.cur != nil {
		wl.pool.put(l.cur)
		l.cur = nil
	}
	// Consume the partially filled chunk before going to the shared pools.
	if l.next != nil {
		l.cur = l.next
		l.next = nil
		if item, ok := l.cur.take(); ok {
			return item, true
		}
		wl.pool.put(l.cur)
		l.cur = nil
	}
	if c, ok := wl.ring.dequeue(); ok {
		l.cur = c
		return l.cur.take()
	}
	wl.spillMu.Lock()
	if wl.spill.Length() > 0 {
		c := wl.spill.Remove().(*chunk)
		wl.spillMu.Unlock()
		l.cur = c
		return l.cur.take()
	}
	wl.spillMu.Unlock()
	return nil, false
}
