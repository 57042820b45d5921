// internal/wait/wait.go

package wait

import (
	"context"
	"errors"
	"time"
)

var ErrTimeout = errors.New("wait: timed out")

// Await blocks until done is closed, the timeout elapses or ctx ends.
// A non-positive timeout waits only on done and ctx.
func Await(ctx context.Context, done <-chan struct{}, timeout time.Duration) error {
	if timeout <= 0 {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		// the handle may have closed at the same instant
		select {
		case <-done:
			return nil
		default:
		}
		return ErrTimeout
	}
}

// Sleep pauses for d, returning early with ctx's error if it is cancelled.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Closed reports whether done has been closed without blocking.
func Closed(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}
