package breaker

import (
	"testing"
	"time"
)

func TestWindow_EmptyRates(t *testing.T) {
	w := newWindow(10, time.Second)
	if got := w.failureRate(); got != 0 {
		t.Errorf("failureRate on empty window = %v, want 0", got)
	}
	if got := w.slowCallRate(); got != 0 {
		t.Errorf("slowCallRate on empty window = %v, want 0", got)
	}
}

func TestWindow_FailureRate(t *testing.T) {
	w := newWindow(10, time.Second)
	for i := 0; i < 8; i++ {
		w.record(false, 10*time.Millisecond)
	}
	w.record(true, 10*time.Millisecond)
	w.record(true, 10*time.Millisecond)

	if got := w.bufferedCalls(); got != 10 {
		t.Fatalf("bufferedCalls = %d, want 10", got)
	}
	if got := w.failureRate(); got != 20 {
		t.Errorf("failureRate = %v, want 20", got)
	}
}

func TestWindow_EvictsOldest(t *testing.T) {
	w := newWindow(3, time.Second)
	w.record(true, 0) // will be evicted
	w.record(false, 0)
	w.record(false, 0)
	w.record(false, 0) // evicts the failure

	if got := w.failedCalls(); got != 0 {
		t.Errorf("failedCalls after eviction = %d, want 0", got)
	}
	if got := w.bufferedCalls(); got != 3 {
		t.Errorf("bufferedCalls = %d, want 3 (capacity)", got)
	}
}

func TestWindow_SlowCallRate(t *testing.T) {
	w := newWindow(4, 100*time.Millisecond)
	w.record(false, 50*time.Millisecond)
	w.record(false, 200*time.Millisecond)
	w.record(false, 150*time.Millisecond)
	w.record(false, 10*time.Millisecond)

	if got := w.slowCallRate(); got != 50 {
		t.Errorf("slowCallRate = %v, want 50", got)
	}
}

func TestWindow_Reset(t *testing.T) {
	w := newWindow(5, time.Second)
	w.record(true, 0)
	w.record(false, 2*time.Second)
	w.reset()

	if w.bufferedCalls() != 0 || w.failedCalls() != 0 {
		t.Errorf("after reset: buffered=%d failed=%d, want 0/0", w.bufferedCalls(), w.failedCalls())
	}
	if got := w.slowCallRate(); got != 0 {
		t.Errorf("slowCallRate after reset = %v, want 0", got)
	}
}
