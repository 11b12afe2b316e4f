package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count     int
	resetTime time.Time
}

// LocalStore counts requests in process memory. Counts are not shared
// across processes; suitable for single-instance deployments and as the
// fail-open fallback for the Redis store.
type LocalStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewLocalStore constructs an empty in-process store.
func NewLocalStore() *LocalStore {
	return &LocalStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Incr implements CounterStore. Expired buckets are reused in place, so
// the map is bounded by the active key set.
func (s *LocalStore) Incr(_ context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok || !now.Before(b.resetTime) {
		b = &bucket{resetTime: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++
	return b.count, b.resetTime, nil
}

var _ CounterStore = (*LocalStore)(nil)
