package bootstrap

import (
	"context"
	"fmt"
	"time"
)

// WaitReady polls the probe until it succeeds, the timeout elapses, or
// the context is cancelled. It is used at startup so the server only
// begins accepting analysis runs once its dependencies respond.
func WaitReady(ctx context.Context, timeout, interval time.Duration, probe func(ctx context.Context) error) error {
	if probe == nil {
		return nil
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	deadline := time.Now().Add(timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	var lastErr error
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := probe(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("not ready after %s: %w", timeout, lastErr)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
