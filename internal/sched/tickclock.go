// internal/sched/tickclock.go

package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// TickClock paces the scheduler loop. Each value on C is the tick number.
// A tick the loop is too busy to take is dropped and counted as an
// overrun, so a slow quantum never produces a burst of catch-up ticks.
type TickClock struct {
	C        chan int64
	interval time.Duration
	count    atomic.Int64
	overruns atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewTickClock creates a stopped clock.
func NewTickClock(interval time.Duration) *TickClock {
	return &TickClock{
		C:        make(chan int64, 1),
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start emits ticks until ctx ends or Stop is called.
func (c *TickClock) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer close(c.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n := c.count.Add(1)
				select {
				case c.C <- n:
				default:
					c.overruns.Add(1)
				}
			case <-ctx.Done():
				return
			case <-c.stop:
				return
			}
		}
	}()
}

// Stop ends the clock and waits for its goroutine. Safe to call twice,
// but only after Start.
func (c *TickClock) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.done
}

// Count returns how many ticks have fired, taken or not.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}

// Overruns returns how many ticks were dropped because the loop was busy.
func (c *TickClock) Overruns() int64 {
	return c.overruns.Load()
}
