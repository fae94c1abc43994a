package fetch

import (
	"context"
	"time"

	"github.com/vgassen/lexharvest/internal/harvest"
)

// retryPolicy runs an operation up to a fixed attempt count with a
// fixed inter-attempt delay. Cancellation stops further attempts.
type retryPolicy struct {
	attempts int
	delay    time.Duration
	pause    harvest.Pauser
}

func newRetryPolicy(attempts int, delay time.Duration) retryPolicy {
	if attempts <= 0 {
		attempts = 1
	}
	return retryPolicy{
		attempts: attempts,
		delay:    delay,
		pause:    harvest.TimerPauser{},
	}
}

// Do invokes op until it succeeds or the attempt budget is spent. The
// last error is returned; a context error short-circuits the loop.
func (p retryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			harvest.FetchRetries.Inc()
			p.pause.Pause(ctx, p.delay)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if lastErr = op(ctx); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
