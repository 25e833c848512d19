// Package jitter supplies the randomized timings and draws used to make
// browser sessions look less mechanical. Every consumer takes a *Source so
// tests can seed it.
package jitter

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Source is a goroutine-safe random source.
type Source struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a Source seeded from the wall clock.
func New() *Source {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Source.
func NewWithSeed(seed int64) *Source {
	return NewWithSource(rand.NewSource(seed))
}

// NewWithSource wraps an arbitrary rand.Source.
func NewWithSource(src rand.Source) *Source {
	return &Source{r: rand.New(src)}
}

// Intn returns a value in [0, n). n <= 0 yields 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// IntRange returns a value in [min, max].
func (s *Source) IntRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + s.Intn(max-min+1)
}

// Duration returns a uniformly drawn duration in [min, max].
func (s *Source) Duration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return min + time.Duration(s.r.Int63n(int64(max-min)+1))
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
