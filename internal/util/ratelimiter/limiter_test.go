package ratelimiter

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		advance  []time.Duration // clock advance before each Allow() call
		want     []bool
		wantWait []time.Duration
	}{
		{
			name:     "first call always allowed",
			interval: 100 * time.Millisecond,
			advance:  []time.Duration{0},
			want:     []bool{true},
			wantWait: []time.Duration{0},
		},
		{
			name:     "second call immediately after is blocked",
			interval: 100 * time.Millisecond,
			advance:  []time.Duration{0, 0},
			want:     []bool{true, false},
			wantWait: []time.Duration{0, 100 * time.Millisecond},
		},
		{
			name:     "call after interval is allowed",
			interval: 50 * time.Millisecond,
			advance:  []time.Duration{0, 50 * time.Millisecond},
			want:     []bool{true, true},
			wantWait: []time.Duration{0, 0},
		},
		{
			name:     "wait shrinks as time passes",
			interval: 100 * time.Millisecond,
			advance:  []time.Duration{0, 30 * time.Millisecond, 50 * time.Millisecond},
			want:     []bool{true, false, false},
			wantWait: []time.Duration{0, 70 * time.Millisecond, 20 * time.Millisecond},
		},
		{
			name:     "zero interval allows everything",
			interval: 0,
			advance:  []time.Duration{0, 0, 0},
			want:     []bool{true, true, true},
			wantWait: []time.Duration{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			limiter := NewWithClock(tt.interval, clock.Now)

			for i, d := range tt.advance {
				clock.Advance(d)
				allowed, wait := limiter.Allow()
				if allowed != tt.want[i] {
					t.Errorf("call %d: Allow() = %v, want %v", i, allowed, tt.want[i])
				}
				if wait != tt.wantWait[i] {
					t.Errorf("call %d: wait = %v, want %v", i, wait, tt.wantWait[i])
				}
			}
		})
	}
}

func TestLimiter_Do(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	limiter := NewWithClock(time.Second, clock.Now)

	calls := 0
	for i := 0; i < 5; i++ {
		limiter.Do(func() { calls++ })
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}

	clock.Advance(time.Second)
	if !limiter.Do(func() { calls++ }) || calls != 2 {
		t.Errorf("Do after interval did not run, calls = %d", calls)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := New(time.Hour)

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow(); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 1 {
		t.Errorf("allowed = %d, want 1", got)
	}
}
