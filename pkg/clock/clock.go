// Package clock provides a minimal time source that can be swapped out
// in tests, so circuit-breaker wait windows can be exercised without
// real sleeps.
package clock

import "time"

// Clock produces the current time. Implementations must be safe for
// concurrent use.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// Real is the wall-clock implementation used in production.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) Since(t time.Time) time.Duration { return time.Since(t) }

// New returns the production clock.
func New() Clock { return Real{} }
