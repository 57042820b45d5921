package wait

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAwait(t *testing.T) {
	t.Run("closed handle", func(t *testing.T) {
		done := make(chan struct{})
		close(done)
		assert.NoError(t, Await(context.Background(), done, time.Second))
	})

	t.Run("closed later", func(t *testing.T) {
		done := make(chan struct{})
		go func() {
			time.Sleep(5 * time.Millisecond)
			close(done)
		}()
		assert.NoError(t, Await(context.Background(), done, time.Second))
	})

	t.Run("timeout", func(t *testing.T) {
		done := make(chan struct{})
		assert.ErrorIs(t, Await(context.Background(), done, 10*time.Millisecond), ErrTimeout)
	})

	t.Run("context cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, Await(ctx, make(chan struct{}), 0), context.Canceled)
	})
}

func TestSleep(t *testing.T) {
	start := time.Now()
	assert.NoError(t, Sleep(context.Background(), 10*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

func TestClosed(t *testing.T) {
	done := make(chan struct{})
	assert.False(t, Closed(done))
	close(done)
	assert.True(t, Closed(done))
}
