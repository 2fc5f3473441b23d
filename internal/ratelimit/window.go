// Package ratelimit implements a sliding-window rate limiter for outbound
// calls to embedding providers that bill and throttle per request-per-minute,
// rather than the steady token-bucket drip golang.org/x/time/rate models.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// entry records how many calls were made at a given instant.
type entry struct {
	at    time.Time
	count int
}

// Limiter enforces a maximum number of calls within a sliding time window.
// Unlike a token bucket, capacity recovers continuously as old entries age
// out of the window rather than refilling at a fixed rate, matching the
// request-per-minute limits embedding providers publish.
type Limiter struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	history []entry
}

// NewLimiter creates a limiter allowing at most limit calls in any trailing
// window-length interval.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return &Limiter{limit: limit, window: window}
}

// prune discards history entries older than the window, relative to now.
// Caller must hold mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.history) && l.history[i].at.Before(cutoff) {
		i++
	}
	l.history = l.history[i:]
}

// usedLocked returns calls recorded within the window. Caller must hold mu.
func (l *Limiter) usedLocked(now time.Time) int {
	l.prune(now)
	total := 0
	for _, e := range l.history {
		total += e.count
	}
	return total
}

// AvailableCapacity returns how many more calls may be made right now
// without exceeding the limit.
func (l *Limiter) AvailableCapacity() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	remaining := l.limit - l.usedLocked(time.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Record registers n calls as having just happened. It does not block or
// check capacity; pair it with Acquire when the call itself must be gated.
func (l *Limiter) Record(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, entry{at: time.Now(), count: n})
}

// Acquire blocks until n calls can be made without exceeding the limit, then
// records them, or returns ctx.Err() if ctx is done first. The sleep
// between polls happens outside the lock so other goroutines can still
// record calls or check capacity.
func (l *Limiter) Acquire(ctx context.Context, n int) error {
	for {
		l.mu.Lock()
		now := time.Now()
		if l.usedLocked(now)+n <= l.limit {
			l.history = append(l.history, entry{at: now, count: n})
			l.mu.Unlock()
			return nil
		}

		wait := l.waitUntilCapacityLocked(now)
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// waitUntilCapacityLocked estimates how long until the oldest entry ages
// out, freeing up capacity. Caller must hold mu.
func (l *Limiter) waitUntilCapacityLocked(now time.Time) time.Duration {
	if len(l.history) == 0 {
		return 10 * time.Millisecond
	}
	oldest := l.history[0].at
	wait := l.window - now.Sub(oldest)
	if wait <= 0 {
		return 10 * time.Millisecond
	}
	return wait
}
