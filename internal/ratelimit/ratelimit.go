// Package ratelimit implements a fixed-window request counter behind a
// pluggable CounterStore. The limiter is advisory: counts are best effort
// under concurrency on the local store and exact on the Redis store.
package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// CounterStore increments the counter for key within the current window
// and reports the post-increment count and when the window resets.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetTime time.Time, err error)
}

// Result reports a single rate limit decision.
type Result struct {
	Limited   bool
	Remaining int
	ResetTime time.Time
}

// Limiter applies one (window, max) budget. Policy lives at the call
// site: construct one Limiter per endpoint class.
type Limiter struct {
	store    CounterStore
	fallback CounterStore
	window   time.Duration
	max      int
	logger   *slog.Logger
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithFallback installs a store consulted when the primary errors.
// Counting degrades to the fallback for that single request; there is no
// retry against the primary.
func WithFallback(store CounterStore) Option {
	return func(l *Limiter) { l.fallback = store }
}

// WithLogger sets the logger used for backend failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// NewLimiter constructs a Limiter over store.
func NewLimiter(store CounterStore, window time.Duration, max int, opts ...Option) *Limiter {
	l := &Limiter{store: store, window: window, max: max}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check increments the counter for key and decides whether the request
// exceeds the budget. When both the primary and fallback stores fail the
// request is admitted: the limiter is a defense-in-depth control, not a
// correctness guarantee.
func (l *Limiter) Check(ctx context.Context, key string) Result {
	count, reset, err := l.store.Incr(ctx, key, l.window)
	if err != nil && l.fallback != nil {
		if l.logger != nil {
			l.logger.Warn("rate limit backend failed, using fallback", slog.Any("error", err))
		}
		count, reset, err = l.fallback.Incr(ctx, key, l.window)
	}
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("rate limit counters unavailable, admitting request", slog.Any("error", err))
		}
		return Result{Limited: false, Remaining: l.max, ResetTime: time.Now().Add(l.window)}
	}
	remaining := l.max - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Limited:   count > l.max,
		Remaining: remaining,
		ResetTime: reset,
	}
}

// Max exposes the configured budget, used for response headers.
func (l *Limiter) Max() int { return l.max }

// RequestKey derives the default bucket key: client address, identity
// (or anonymous) and path, so one noisy endpoint cannot exhaust
// another's budget.
func RequestKey(r *http.Request, identity string) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if identity == "" {
		identity = "anon"
	}
	return host + ":" + identity + ":" + r.URL.Path
}
