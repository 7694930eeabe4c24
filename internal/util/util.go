package util

import (
	"context"
	"time"
)

// Sleep blocks for t or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, t time.Duration) error {
	timer := time.NewTimer(t)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CeilDiv returns ceil(a/b) for non negative a and positive b.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}
