// Package clock provides the injectable wait used to simulate latency.
package clock

import (
	"context"
	"time"
)

// Sleeper pauses the caller for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Real waits on a timer.
type Real struct{}

func (Real) Sleep(ctx context.Context, d time.Duration) error {
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

// Instant never waits. It still reports a cancelled context.
type Instant struct{}

func (Instant) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
