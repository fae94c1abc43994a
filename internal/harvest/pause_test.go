package harvest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerPauserWaits(t *testing.T) {
	t.Parallel()

	start := time.Now()
	TimerPauser{}.Pause(context.Background(), 20*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestTimerPauserZeroDelayReturnsImmediately(t *testing.T) {
	t.Parallel()

	start := time.Now()
	TimerPauser{}.Pause(context.Background(), 0)
	assert.Less(t, time.Since(start), 10*time.Millisecond)
}

func TestTimerPauserHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	TimerPauser{}.Pause(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}
