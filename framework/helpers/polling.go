package helpers

import (
	"context"
	"time"
)

// PollUntil calls testFn at intervals until it returns true, the timeout elapses, or ctx is done.
// testFn is called once immediately. It returns true if testFn succeeded.
func PollUntil(ctx context.Context, timeout, interval time.Duration, testFn func() bool) bool {
	if testFn() {
		return true
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return false
		case <-ticker.C:
			if testFn() {
				return true
			}
		}
	}
}
