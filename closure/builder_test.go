// File: closure/builder_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package closure

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/momentics/parfor/api"
)

func TestBindDoAllAndInvoke(t *testing.T) {
	b := NewBuilder()
	out := make([]int64, 10)
	cl, err := b.BindDoAll(func(out []int64, i int) { out[i] = int64(i) + 1 }, out)
	if err != nil {
		t.Fatalf("BindDoAll error: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := cl.Invoke(i); err != nil {
			t.Fatalf("Invoke(%d) error: %v", i, err)
		}
	}
	for i, v := range out {
		if v != int64(i)+1 {
			t.Errorf("out[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestInvokeTypeMismatch(t *testing.T) {
	b := NewBuilder()
	cl, err := b.BindDoAll(func(prefix string, i int) {}, "p")
	if err != nil {
		t.Fatalf("BindDoAll error: %v", err)
	}
	if err := cl.Invoke("not an int"); !errors.Is(err, api.ErrTypeMismatch) {
		t.Errorf("Invoke with wrong item type = %v, want type mismatch", err)
	}
	if err := cl.Invoke(nil); !errors.Is(err, api.ErrTypeMismatch) {
		t.Errorf("Invoke with nil item = %v, want type mismatch", err)
	}
}

func TestBindValidation(t *testing.T) {
	b := NewBuilder()
	if _, err := b.BindDoAll(42); !errors.Is(err, api.ErrTypeMismatch) {
		t.Errorf("non-function operator = %v, want type mismatch", err)
	}
	if _, err := b.BindDoAll(func(a, b int) {}, 1, 2); !errors.Is(err, api.ErrTypeMismatch) {
		t.Errorf("no room for the unbound item = %v, want type mismatch", err)
	}
	if _, err := b.BindDoAll(func(a string, i int) {}, 7); !errors.Is(err, api.ErrTypeMismatch) {
		t.Errorf("bound argument of wrong type = %v, want type mismatch", err)
	}
	if _, err := b.BindDoAll(func(i int) int { return i }); !errors.Is(err, api.ErrTypeMismatch) {
		t.Errorf("operator returning a value = %v, want type mismatch", err)
	}
	if _, err := b.BindForEach(func(i int) {}); !errors.Is(err, api.ErrTypeMismatch) {
		t.Errorf("for_each operator without context = %v, want type mismatch", err)
	}
	if _, err := b.BindMetric(func(i int) {}); !errors.Is(err, api.ErrTypeMismatch) {
		t.Errorf("metric without result = %v, want type mismatch", err)
	}
}

func metricByValue(weights []int64, i int) int { return int(weights[i]) }

func TestBindMetric(t *testing.T) {
	b := NewBuilder()
	weights := []int64{3, 0, 7}
	m, err := b.BindMetric(metricByValue, weights)
	if err != nil {
		t.Fatalf("BindMetric error: %v", err)
	}
	bucket, err := m.Bucket(2)
	if err != nil {
		t.Fatalf("Bucket error: %v", err)
	}
	if bucket != 7 {
		t.Errorf("Bucket(2) = %d, want 7", bucket)
	}
}

func TestMetricNegativeBucket(t *testing.T) {
	b := NewBuilder()
	m, err := b.BindMetric(func(i int) int { return -1 })
	if err != nil {
		t.Fatalf("BindMetric error: %v", err)
	}
	if _, err := m.Bucket(0); err == nil {
		t.Error("negative bucket should fail")
	}
}

func sharedOp(out []int64, i int) { out[i]++ }

func TestSpecializationCacheShared(t *testing.T) {
	b := NewBuilder()
	a1 := make([]int64, 4)
	a2 := make([]int64, 4)
	if _, err := b.BindDoAll(sharedOp, a1); err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if got := b.CacheSize(); got != 1 {
		t.Fatalf("cache size after first bind = %d, want 1", got)
	}
	// Same operator, same bound types: the specialization is reused and
	// only a fresh environment is built.
	if _, err := b.BindDoAll(sharedOp, a2); err != nil {
		t.Fatalf("second bind: %v", err)
	}
	if got := b.CacheSize(); got != 1 {
		t.Errorf("cache size after identical rebind = %d, want 1", got)
	}
	// Different bound types require a distinct specialization.
	if _, err := b.BindDoAll(func(s any, i int) {}, "str"); err != nil {
		t.Fatalf("third bind: %v", err)
	}
	if got := b.CacheSize(); got != 2 {
		t.Errorf("cache size after new types = %d, want 2", got)
	}
}

func TestEnvironmentKeepsCaptureAlive(t *testing.T) {
	b := NewBuilder()
	collected := make(chan struct{})
	buf := make([]int64, 1024)
	runtime.SetFinalizer(&buf[0], func(*int64) { close(collected) })

	cl, err := b.BindDoAll(func(out []int64, i int) { out[i] = 1 }, buf)
	if err != nil {
		t.Fatalf("BindDoAll error: %v", err)
	}
	buf = nil // drop the caller's reference; the closure still owns it

	for i := 0; i < 3; i++ {
		runtime.GC()
	}
	select {
	case <-collected:
		t.Fatal("captured buffer was collected while the closure is alive")
	default:
	}
	if err := cl.Invoke(0); err != nil {
		t.Fatalf("Invoke error: %v", err)
	}

	cl = nil
	deadline := time.After(2 * time.Second)
	for {
		runtime.GC()
		select {
		case <-collected:
			return
		case <-deadline:
			t.Fatal("captured buffer not collectible after the closure was released")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestReflectionFallbackSignature(t *testing.T) {
	// A signature with no registered invoker goes through the reflection
	// path and must behave identically.
	b := NewBuilder()
	sum := 0.0
	cl, err := b.BindDoAll(func(scale float64, v float64) { sum += scale * v }, 2.0)
	if err != nil {
		t.Fatalf("BindDoAll error: %v", err)
	}
	for _, v := range []float64{1, 2, 3} {
		if err := cl.Invoke(v); err != nil {
			t.Fatalf("Invoke error: %v", err)
		}
	}
	if sum != 12 {
		t.Errorf("sum = %v, want 12", sum)
	}
}

func TestClosureName(t *testing.T) {
	b := NewBuilder()
	cl, err := b.BindDoAll(sharedOp, make([]int64, 1))
	if err != nil {
		t.Fatalf("BindDoAll error: %v", err)
	}
	if cl.Name() == "" {
		t.Error("closure name should not be empty")
	}
}
