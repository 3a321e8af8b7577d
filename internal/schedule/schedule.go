// Package schedule runs fixed-period loops without drift: every wake time is
// the previous scheduled wake time plus the period, never "now plus period",
// so a late wake-up does not push every following one later.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Clock is the time source used by periodic loops.
type Clock interface {
	Now() time.Time
	// SleepUntil blocks until t or until ctx is done. It returns immediately
	// when t is not in the future.
	SleepUntil(ctx context.Context, t time.Time) error
}

// RealClock is the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) SleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Periodic hands out wake times on a fixed grid anchored at its start time.
type Periodic struct {
	clock  Clock
	period time.Duration
	next   time.Time
}

// NewPeriodic anchors a grid at the clock's current time.
func NewPeriodic(clock Clock, period time.Duration) *Periodic {
	return &Periodic{clock: clock, period: period, next: clock.Now()}
}

// Next returns the wake time the following Wait will sleep until.
func (p *Periodic) Next() time.Time { return p.next.Add(p.period) }

// Wait advances the scheduled wake time by one period and sleeps until it.
// If the loop is running late the call returns at once and the grid is kept;
// the lost time is caught up by the following iterations.
func (p *Periodic) Wait(ctx context.Context) error {
	p.next = p.next.Add(p.period)
	return p.clock.SleepUntil(ctx, p.next)
}

// FakeClock is a manually driven Clock for tests. SleepUntil advances the
// clock to the wake time (plus any configured oversleep) instead of blocking.
type FakeClock struct {
	mu        sync.Mutex
	now       time.Time
	oversleep time.Duration
	wakes     []time.Time
}

// NewFakeClock returns a FakeClock reading start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetOversleep makes every following sleep wake up d later than requested.
func (c *FakeClock) SetOversleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.oversleep = d
}

func (c *FakeClock) SleepUntil(ctx context.Context, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wakes = append(c.wakes, t)
	if t.After(c.now) {
		c.now = t.Add(c.oversleep)
	}
	return nil
}

// Wakes returns every wake time requested so far.
func (c *FakeClock) Wakes() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.wakes...)
}
