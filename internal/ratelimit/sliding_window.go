// Package ratelimit throttles checkout attempts per buyer with an in-memory
// sliding window. State is per process and lost on restart.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	DefaultLimit  = 10
	DefaultWindow = time.Hour
)

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed bool
	// RetryAfter is how long until the oldest admission leaves the window.
	// Zero when Allowed.
	RetryAfter time.Duration
	Remaining  int
}

// SlidingWindow admits at most limit events per key within any rolling window.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string][]time.Time
}

// Option customizes a SlidingWindow.
type Option func(*SlidingWindow)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *SlidingWindow) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a limiter. Non-positive arguments fall back to 10 per hour.
func New(limit int, window time.Duration, opts ...Option) *SlidingWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	s := &SlidingWindow{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeKey lowercases and trims a requester identity.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Allow checks key and, when under the limit, records an admission.
func (s *SlidingWindow) Allow(key string) Decision {
	key = NormalizeKey(key)
	now := s.now()
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := prune(s.entries[key], cutoff)
	if len(kept) >= s.limit {
		s.entries[key] = kept
		return Decision{
			Allowed:    false,
			RetryAfter: kept[0].Add(s.window).Sub(now),
		}
	}

	kept = append(kept, now)
	s.entries[key] = kept
	return Decision{Allowed: true, Remaining: s.limit - len(kept)}
}

// Sweep drops keys whose admissions have all expired.
func (s *SlidingWindow) Sweep() int {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, stamps := range s.entries {
		kept := prune(stamps, cutoff)
		if len(kept) == 0 {
			delete(s.entries, key)
			removed++
			continue
		}
		s.entries[key] = kept
	}
	return removed
}

// Run sweeps idle keys every interval until ctx is done.
func (s *SlidingWindow) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Len reports how many keys are tracked.
func (s *SlidingWindow) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// prune keeps timestamps strictly newer than cutoff. Stamps are appended in
// order so the slice stays sorted.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0:0], stamps[i:]...)
}
