package breaker

import "time"

// call is one recorded outcome in the sliding window.
type call struct {
	failure  bool
	duration time.Duration
}

// window is a fixed-capacity, count-based ring of call outcomes. It is
// not safe for concurrent use; the owning CircuitBreaker serializes all
// access under its mutex.
type window struct {
	calls []call
	size  int
	head  int // next write position
	count int // buffered calls, ≤ size

	failures  int
	slowCalls int
	slowAfter time.Duration
}

func newWindow(size int, slowAfter time.Duration) *window {
	return &window{
		calls:     make([]call, size),
		size:      size,
		slowAfter: slowAfter,
	}
}

// record appends an outcome, evicting the oldest when the ring is full.
func (w *window) record(failure bool, duration time.Duration) {
	if w.count == w.size {
		evicted := w.calls[w.head]
		if evicted.failure {
			w.failures--
		}
		if evicted.duration >= w.slowAfter {
			w.slowCalls--
		}
	} else {
		w.count++
	}

	w.calls[w.head] = call{failure: failure, duration: duration}
	w.head = (w.head + 1) % w.size

	if failure {
		w.failures++
	}
	if duration >= w.slowAfter {
		w.slowCalls++
	}
}

// reset discards every buffered outcome.
func (w *window) reset() {
	w.head = 0
	w.count = 0
	w.failures = 0
	w.slowCalls = 0
}

func (w *window) bufferedCalls() int { return w.count }
func (w *window) failedCalls() int   { return w.failures }

// failureRate returns the failure percentage (0–100) over buffered
// calls, or 0 when the window is empty.
func (w *window) failureRate() float64 {
	if w.count == 0 {
		return 0
	}
	return 100 * float64(w.failures) / float64(w.count)
}

// slowCallRate returns the slow-call percentage (0–100) over buffered
// calls, or 0 when the window is empty.
func (w *window) slowCallRate() float64 {
	if w.count == 0 {
		return 0
	}
	return 100 * float64(w.slowCalls) / float64(w.count)
}
