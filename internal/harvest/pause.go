package harvest

import (
	"context"
	"time"
)

// TimerPauser implements Pauser with a context-aware timer.
type TimerPauser struct{}

// Pause blocks for delay or until the context ends, whichever is first.
func (TimerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
