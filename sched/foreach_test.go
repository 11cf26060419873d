// File: sched/foreach_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sched

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/momentics/parfor/api"
	"github.com/momentics/parfor/atomicx"
	"github.com/momentics/parfor/reduce"
)

func TestForEachRequiresExplicitConflictMode(t *testing.T) {
	rt := newTestRuntime(t, 4)
	ran := false
	op, err := rt.BindForEach(func(i int, ctx api.Context) { ran = true })
	if err != nil {
		t.Fatalf("BindForEach error: %v", err)
	}
	err = rt.ForEach(Range(0, 10), op)
	if !errors.Is(err, api.ErrConfig) {
		t.Fatalf("ForEach without conflict mode = %v, want config error", err)
	}
	if ran {
		t.Error("no work should run when configuration is rejected")
	}
}

func TestForEachDynamicPush(t *testing.T) {
	rt := newTestRuntime(t, 4)
	total := reduce.Sum[int64]()
	op, err := rt.BindForEach(func(total *reduce.Accumulator[int64], i int, ctx api.Context) {
		total.Update(int64(i))
		if i == 8 {
			ctx.Push(100)
		}
	}, total)
	if err != nil {
		t.Fatalf("BindForEach error: %v", err)
	}
	err = rt.ForEach(Range(0, 10), op, WithConflictDetection(false))
	if err != nil {
		t.Fatalf("ForEach error: %v", err)
	}
	if got := total.Reduce(); got != 145 {
		t.Errorf("total = %d, want 145", got)
	}
}

func TestForEachCascadingPushes(t *testing.T) {
	rt := newTestRuntime(t, 8)
	// Each item n > 0 pushes n-1; seeding 50 yields 50+49+...+0 visits.
	visits := []int64{0}
	op, err := rt.BindForEach(func(visits []int64, i int, ctx api.Context) {
		atomicx.AddInt64(visits, 0, 1)
		if i > 0 {
			ctx.Push(i - 1)
		}
	}, visits)
	if err != nil {
		t.Fatalf("BindForEach error: %v", err)
	}
	err = rt.ForEach(Items([]int{50}), op, WithConflictDetection(false))
	if err != nil {
		t.Fatalf("ForEach error: %v", err)
	}
	if visits[0] != 51 {
		t.Errorf("visits = %d, want 51", visits[0])
	}
}

func TestForEachOBIMOrdering(t *testing.T) {
	// Single worker for a deterministic realized order: the seeds drain
	// from bucket 0 in push order, then the re-pushed items drain from
	// buckets 1..10 in non-decreasing bucket order.
	rt := newTestRuntime(t, 1)
	out := make([]int64, 10)
	var order []int

	metric, err := rt.BindMetric(func(out []int64, i int) int { return int(out[i]) }, out)
	if err != nil {
		t.Fatalf("BindMetric error: %v", err)
	}
	op, err := rt.BindForEach(func(out []int64, i int, ctx api.Context) {
		order = append(order, i)
		first := out[i] == 0
		out[i] = int64(10 - i)
		if first {
			ctx.Push(i)
		}
	}, out)
	if err != nil {
		t.Fatalf("BindForEach error: %v", err)
	}
	err = rt.ForEach(Range(0, 10), op,
		WithOrderedByMetric(metric), WithConflictDetection(false), WithLoopName("obim"))
	if err != nil {
		t.Fatalf("ForEach error: %v", err)
	}

	wantOrder := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 9, 8, 7, 6, 5, 4, 3, 2, 1, 0}
	if diff := cmp.Diff(wantOrder, order); diff != "" {
		t.Errorf("visitation order mismatch (-want +got):\n%s", diff)
	}
	wantOut := []int64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	if diff := cmp.Diff(wantOut, out); diff != "" {
		t.Errorf("final values mismatch (-want +got):\n%s", diff)
	}
}

func TestForEachOBIMLowerBucketStillProcessed(t *testing.T) {
	// An item pushed into a bucket below the one currently draining must
	// still be picked up: the dispenser rescans from the lowest level.
	rt := newTestRuntime(t, 1)
	var visited []int
	metric, err := rt.BindMetric(func(i int) int { return i })
	if err != nil {
		t.Fatalf("BindMetric error: %v", err)
	}
	op, err := rt.BindForEach(func(i int, ctx api.Context) {
		visited = append(visited, i)
		if i == 5 {
			ctx.Push(1)
		}
	})
	if err != nil {
		t.Fatalf("BindForEach error: %v", err)
	}
	err = rt.ForEach(Items([]int{5, 7}), op,
		WithOrderedByMetric(metric), WithConflictDetection(false))
	if err != nil {
		t.Fatalf("ForEach error: %v", err)
	}
	want := []int{5, 1, 7}
	if diff := cmp.Diff(want, visited); diff != "" {
		t.Errorf("visitation mismatch (-want +got):\n%s", diff)
	}
}

func TestForEachConflictDetectionSerializes(t *testing.T) {
	// All seeds carry the same value, so they map to the same ownership
	// stripe and the plain read-modify-write below cannot race.
	const n = 200
	rt := newTestRuntime(t, 8)
	counter := 0
	op, err := rt.BindForEach(func(counter *int, i int, ctx api.Context) {
		*counter++
	}, &counter)
	if err != nil {
		t.Fatalf("BindForEach error: %v", err)
	}
	seeds := make([]int, n)
	for i := range seeds {
		seeds[i] = 7
	}
	err = rt.ForEach(Items(seeds), op, WithConflictDetection(true))
	if err != nil {
		t.Fatalf("ForEach error: %v", err)
	}
	if counter != n {
		t.Errorf("counter = %d, want %d", counter, n)
	}
}

func TestForEachNoPushesHint(t *testing.T) {
	rt := newTestRuntime(t, 4)
	out := []int64{0}
	op, err := rt.BindForEach(func(out []int64, i int, ctx api.Context) {
		atomicx.AddInt64(out, 0, int64(i))
	}, out)
	if err != nil {
		t.Fatalf("BindForEach error: %v", err)
	}
	err = rt.ForEach(Range(0, 100), op, WithConflictDetection(false), WithNoPushes())
	if err != nil {
		t.Fatalf("ForEach error: %v", err)
	}
	if out[0] != 4950 {
		t.Errorf("out[0] = %d, want 4950", out[0])
	}
}

func TestForEachRejectsSteal(t *testing.T) {
	rt := newTestRuntime(t, 2)
	op, _ := rt.BindForEach(func(i int, ctx api.Context) {})
	err := rt.ForEach(Range(0, 1), op, WithConflictDetection(false), WithSteal(false))
	if !errors.Is(err, api.ErrConfig) {
		t.Errorf("ForEach with WithSteal = %v, want config error", err)
	}
}

func TestForEachMetricErrorSurfacesBeforeWork(t *testing.T) {
	rt := newTestRuntime(t, 2)
	metric, err := rt.BindMetric(func(s string) int { return len(s) })
	if err != nil {
		t.Fatalf("BindMetric error: %v", err)
	}
	var mu sync.Mutex
	ran := false
	op, err := rt.BindForEach(func(i int, ctx api.Context) {
		mu.Lock()
		ran = true
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("BindForEach error: %v", err)
	}
	// The metric wants strings; int seeds fail at push time.
	err = rt.ForEach(Range(0, 5), op, WithOrderedByMetric(metric), WithConflictDetection(false))
	if !errors.Is(err, api.ErrTypeMismatch) {
		t.Fatalf("ForEach with mismatched metric = %v, want type mismatch", err)
	}
	if ran {
		t.Error("no operator should run when seeding fails")
	}
}

func TestForEachStatsRecorded(t *testing.T) {
	rt := newTestRuntime(t, 4)
	op, err := rt.BindForEach(func(i int, ctx api.Context) {
		if i < 3 {
			ctx.Push(i + 100)
		}
	})
	if err != nil {
		t.Fatalf("BindForEach error: %v", err)
	}
	err = rt.ForEach(Range(0, 10), op, WithConflictDetection(false), WithLoopName("growth"))
	if err != nil {
		t.Fatalf("ForEach error: %v", err)
	}
	stats, ok := rt.Stats()["growth"].(map[string]int64)
	if !ok {
		t.Fatalf("no stats recorded for loop %q", "growth")
	}
	if stats["items"] != 13 {
		t.Errorf("items = %d, want 13", stats["items"])
	}
	if stats["pushes"] != 3 {
		t.Errorf("pushes = %d, want 3", stats["pushes"])
	}
	if stats["runs"] != 1 {
		t.Errorf("runs = %d, want 1", stats["runs"])
	}
}
