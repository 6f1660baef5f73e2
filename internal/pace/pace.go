// Package pace provides the fixed pauses placed around rate-limited remote calls.
package pace

import (
	"context"
	"time"
)

// Pacer blocks between remote mutations.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Fixed pauses for a constant duration.
type Fixed time.Duration

// Wait sleeps for the configured duration or until ctx is done.
func (f Fixed) Wait(ctx context.Context) error {
	d := time.Duration(f)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// None never pauses.
var None Pacer = Fixed(0)

// Counter counts waits without pausing. Used by tests to assert pauses happened.
type Counter struct {
	Waits int
}

func (c *Counter) Wait(ctx context.Context) error {
	c.Waits++
	return ctx.Err()
}
