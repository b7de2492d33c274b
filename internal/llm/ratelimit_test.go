// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock advances only when the limiter sleeps.
type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
}

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testLimiter(max int, period time.Duration) (*windowLimiter, *fakeClock) {
	clock := newFakeClock()
	l := newWindowLimiter(max, period)
	l.now = clock.now
	l.sleep = clock.sleep
	return l, clock
}

func TestLimiterUnderCapacityNeverBlocks(t *testing.T) {
	l, clock := testLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		assert.Zero(t, l.wait())
		clock.advance(time.Second)
	}
	assert.Empty(t, clock.slept)
}

func TestLimiterBlocksUntilOldestExpires(t *testing.T) {
	l, clock := testLimiter(2, time.Minute)

	l.wait()
	clock.advance(10 * time.Second)
	l.wait()
	clock.advance(10 * time.Second)

	// Window holds 2 entries; the oldest is 20s old, so the third request
	// must wait the remaining 40s.
	slept := l.wait()
	assert.Equal(t, 40*time.Second, slept)
}

func TestLimiterForgetsExpiredEntries(t *testing.T) {
	l, clock := testLimiter(2, time.Minute)

	l.wait()
	l.wait()
	clock.advance(time.Minute)

	assert.Zero(t, l.wait(), "both entries fell out of the window")
	assert.Empty(t, clock.slept)
}

func TestLimiterSleepNeverExceedsPeriod(t *testing.T) {
	l, clock := testLimiter(5, 10*time.Second)

	for i := 0; i < 20; i++ {
		l.wait()
	}
	for _, d := range clock.slept {
		assert.LessOrEqual(t, d, 10*time.Second)
	}
}

func TestLimiterDisabledWhenUnconfigured(t *testing.T) {
	l, clock := testLimiter(0, time.Minute)
	for i := 0; i < 100; i++ {
		assert.Zero(t, l.wait())
	}
	assert.Empty(t, clock.slept)
}
