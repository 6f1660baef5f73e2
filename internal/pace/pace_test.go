package pace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedWaits(t *testing.T) {
	start := time.Now()
	assert.NoError(t, Fixed(20*time.Millisecond).Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFixedHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Fixed(time.Hour).Wait(ctx), context.Canceled)
}

func TestNoneAndCounter(t *testing.T) {
	assert.NoError(t, None.Wait(context.Background()))

	var c Counter
	_ = c.Wait(context.Background())
	_ = c.Wait(context.Background())
	assert.Equal(t, 2, c.Waits)
}
