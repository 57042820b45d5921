package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickClockNumbersTicks(t *testing.T) {
	c := NewTickClock(time.Millisecond)
	c.Start(context.Background())
	defer c.Stop()

	var prev int64
	for range 3 {
		select {
		case n := <-c.C:
			assert.Greater(t, n, prev)
			prev = n
		case <-time.After(time.Second):
			t.Fatal("no tick")
		}
	}
}

func TestTickClockCountsOverruns(t *testing.T) {
	c := NewTickClock(time.Millisecond)
	c.Start(context.Background())

	require.Eventually(t, func() bool { return c.Overruns() > 0 }, time.Second, time.Millisecond)
	c.Stop()
	c.Stop()
	assert.GreaterOrEqual(t, c.Count(), c.Overruns()+1)
}

func TestTickClockStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewTickClock(time.Millisecond)
	c.Start(ctx)
	cancel()

	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("clock did not stop")
	}
	c.Stop()
}
