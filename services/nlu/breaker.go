package nlu

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Breaker guards the semantic classifier. After a run of consecutive
// failures it opens and callers must route to the fuzzy strategy until the
// cool-down elapses; the first call after cool-down probes the provider
// again (half-open).
type Breaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	cooldown  time.Duration
	openUntil time.Time
	logger    *zap.Logger
}

func NewBreaker(threshold int, cooldown time.Duration, logger *zap.Logger) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		logger:    logger,
	}
}

// Allow reports whether a semantic call may be attempted.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.threshold {
		return true
	}
	// Open; permit a single probe once the cool-down has elapsed.
	if time.Now().After(b.openUntil) {
		b.openUntil = time.Now().Add(b.cooldown)
		return true
	}
	return false
}

// Success resets the failure run.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures >= b.threshold {
		b.logger.Info("semantic circuit breaker closed")
	}
	b.failures = 0
}

// Failure records a provider error or timeout.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures == b.threshold {
		b.openUntil = time.Now().Add(b.cooldown)
		b.logger.Warn("semantic circuit breaker opened",
			zap.Int("failures", b.failures),
			zap.Duration("cooldown", b.cooldown))
	}
}
