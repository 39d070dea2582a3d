package auth

import (
	"context"
	"sync"
	"time"
)

// RateLimiter checks whether a request should be allowed for an identity.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// InProcessLimiter is a fixed-window rate limiter that tracks request
// counts per email in memory.
type InProcessLimiter struct {
	rpm      int
	now      func() time.Time
	mu       sync.Mutex
	counters map[string]*counter
}

type counter struct {
	count    int
	windowAt time.Time
}

// NewInProcessLimiter creates a limiter allowing rpm requests per email
// per minute. rpm <= 0 disables limiting.
func NewInProcessLimiter(rpm int) *InProcessLimiter {
	return &InProcessLimiter{
		rpm:      rpm,
		now:      time.Now,
		counters: make(map[string]*counter),
	}
}

// Allow returns ErrTooManyRequests once the email exceeds its budget in
// the current window.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	if l.rpm <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.counters[identity.Email]
	if !ok || now.Sub(c.windowAt) >= time.Minute {
		l.counters[identity.Email] = &counter{count: 1, windowAt: now}
		l.sweep(now)
		return nil
	}

	c.count++
	if c.count > l.rpm {
		return ErrTooManyRequests
	}
	return nil
}

// sweep drops expired windows so idle emails do not accumulate.
// Caller holds l.mu.
func (l *InProcessLimiter) sweep(now time.Time) {
	for email, c := range l.counters {
		if now.Sub(c.windowAt) >= time.Minute {
			delete(l.counters, email)
		}
	}
}
