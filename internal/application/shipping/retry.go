package shipping

import (
	"context"
	"time"
)

// sleepStep sleeps for d unless the context ends first.
func sleepStep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
