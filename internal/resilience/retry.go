// Package resilience retries calls that failed before reaching the server.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Backoff configures retry timing.
type Backoff struct {
	MaxRetries int           // retries after the first attempt
	InitDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap on any single delay
	Multiplier float64       // growth factor per retry
	Jitter     float64       // fraction of the delay randomized, 0 to 1
}

// DefaultBackoff suits a CLI waiting for a server that is still starting.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxRetries: 4,
		InitDelay:  250 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// OnRetry is called before each retry with the 1-based retry number.
type OnRetry func(retry int, err error, delay time.Duration)

// Do calls fn until it succeeds, returns an error Retryable rejects, the
// retries are used up or ctx ends. The last error from fn is returned.
func Do(ctx context.Context, b Backoff, fn func(ctx context.Context) error, onRetry OnRetry) error {
	var lastErr error
	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil || !Retryable(lastErr) || attempt == b.MaxRetries {
			return lastErr
		}

		delay := b.delay(attempt)
		if onRetry != nil {
			onRetry(attempt+1, lastErr, delay)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return lastErr
		case <-t.C:
		}
	}
	return lastErr
}

func (b Backoff) delay(attempt int) time.Duration {
	d := float64(b.InitDelay) * math.Pow(b.Multiplier, float64(attempt))
	if b.MaxDelay > 0 && d > float64(b.MaxDelay) {
		d = float64(b.MaxDelay)
	}
	if b.Jitter > 0 {
		spread := d * b.Jitter
		d = d - spread + rand.Float64()*2*spread
	}
	return time.Duration(d)
}
