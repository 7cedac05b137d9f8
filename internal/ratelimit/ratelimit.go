// Package ratelimit caps how many paid model calls a process makes.
package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrBudgetExhausted = errors.New("call budget exhausted")

// Budget counts calls against a limit that resets every window.
type Budget struct {
	mu          sync.Mutex
	name        string
	used        int
	max         int // 0 = unlimited
	window      time.Duration
	resetTime   time.Time
	now         func() time.Time
	cacheHits   int
	cacheMisses int
	log         *slog.Logger
}

type Option func(*Budget)

func WithLogger(l *slog.Logger) Option {
	return func(b *Budget) {
		b.log = l
	}
}

// NewBudget creates a budget that resets daily.
func NewBudget(name string, max int, opts ...Option) *Budget {
	return NewBudgetWithClock(name, max, 24*time.Hour, time.Now, opts...)
}

func NewBudgetWithClock(name string, max int, window time.Duration, now func() time.Time, opts ...Option) *Budget {
	b := &Budget{
		name:      name,
		max:       max,
		window:    window,
		now:       now,
		resetTime: now().Add(window),
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Allow reports whether one more call fits.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkReset()
	return b.max <= 0 || b.used < b.max
}

// Use records a call or fails with ErrBudgetExhausted.
func (b *Budget) Use() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkReset()

	if b.max > 0 && b.used >= b.max {
		b.log.Warn("rate limit reached", "provider", b.name, "used", b.used, "max", b.max)
		return fmt.Errorf("%s: %w (%d/%d)", b.name, ErrBudgetExhausted, b.used, b.max)
	}
	b.used++
	return nil
}

func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

func (b *Budget) RecordCacheMiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheMisses++
}

// checkReset expects b.mu held.
func (b *Budget) checkReset() {
	if now := b.now(); now.After(b.resetTime) {
		b.used = 0
		b.resetTime = now.Add(b.window)
	}
}

// GetStats returns current usage statistics
func (b *Budget) GetStats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	return map[string]interface{}{
		"provider":     b.name,
		"used":         b.used,
		"max":          b.max,
		"cache_hits":   b.cacheHits,
		"cache_misses": b.cacheMisses,
		"reset_time":   b.resetTime.Format(time.RFC3339),
	}
}
