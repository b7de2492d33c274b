// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import "time"

// windowLimiter is a sliding-window rate limiter: it tracks the timestamps
// of recent requests and blocks a new request until the oldest timestamp
// falls outside the trailing window. Mutated only by its owning client,
// which is strictly sequential, so no locking.
type windowLimiter struct {
	max    int
	period time.Duration
	times  []time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

func newWindowLimiter(max int, period time.Duration) *windowLimiter {
	return &windowLimiter{
		max:    max,
		period: period,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// wait blocks until a request is allowed, then records it. Returns the
// duration slept, which callers log when non-zero.
func (l *windowLimiter) wait() time.Duration {
	if l.max <= 0 || l.period <= 0 {
		return 0
	}

	l.prune(l.now())

	var slept time.Duration
	if len(l.times) >= l.max {
		oldest := l.times[0]
		if d := l.period - l.now().Sub(oldest); d > 0 {
			l.sleep(d)
			slept = d
		}
		l.prune(l.now())
	}

	l.times = append(l.times, l.now())
	return slept
}

// prune drops timestamps older than the window.
func (l *windowLimiter) prune(now time.Time) {
	cut := 0
	for cut < len(l.times) && now.Sub(l.times[cut]) >= l.period {
		cut++
	}
	if cut > 0 {
		l.times = append(l.times[:0], l.times[cut:]...)
	}
}
