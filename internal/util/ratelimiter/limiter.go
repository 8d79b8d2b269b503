// Package ratelimiter throttles repetitive side effects such as progress
// log lines to at most one per interval.
package ratelimiter

import (
	"sync"
	"time"
)

// Limiter allows one action per interval and is safe for concurrent use.
// A zero or negative interval allows every action.
type Limiter struct {
	mu          sync.Mutex
	interval    time.Duration
	now         func() time.Time
	lastAllowed time.Time
}

// New creates a new rate limiter with the specified interval.
func New(interval time.Duration) *Limiter {
	return NewWithClock(interval, time.Now)
}

// NewWithClock is New with an injectable clock.
func NewWithClock(interval time.Duration, now func() time.Time) *Limiter {
	return &Limiter{interval: interval, now: now}
}

// Allow returns true and records the time if an action may happen now,
// otherwise false with the remaining wait.
func (l *Limiter) Allow() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.lastAllowed.IsZero() || l.interval <= 0 {
		l.lastAllowed = now
		return true, 0
	}

	if elapsed := now.Sub(l.lastAllowed); elapsed < l.interval {
		return false, l.interval - elapsed
	}
	l.lastAllowed = now
	return true, 0
}

// Do runs fn if Allow permits it and reports whether it ran.
func (l *Limiter) Do(fn func()) bool {
	if ok, _ := l.Allow(); !ok {
		return false
	}
	fn()
	return true
}
