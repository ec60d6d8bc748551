package recurring

import (
	"context"
	"time"
)

// WithRetry wraps job so that a failed execution is retried up to
// maxRetries times with exponential backoff capped at maxDelay.
func WithRetry(job Job, maxRetries int, initialDelay, maxDelay time.Duration) Job {
	return func(ctx context.Context) error {
		var lastErr error
		delay := initialDelay

		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 {
				timer := time.NewTimer(delay)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				}

				delay *= 2
				if maxDelay > 0 && delay > maxDelay {
					delay = maxDelay
				}
			}

			lastErr = job(ctx)
			if lastErr == nil {
				return nil
			}
		}
		return lastErr
	}
}
