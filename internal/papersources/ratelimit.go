package papersources

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// minAdaptiveRate is the floor Throttle never goes below, in requests per
// second.
const minAdaptiveRate = 0.2

// RateLimiter is a per-provider token bucket that adapts to pushback.
// Throttle halves the sustained rate after a 429; Relax wins back a tenth
// of the configured rate per successful request until the configured rate
// is reached again. Safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter

	mu   sync.Mutex
	base float64
}

// NewRateLimiter creates a limiter sustaining ratePerSecond with the given
// burst. Typical settings:
//   - PubMed without an API key: NewRateLimiter(3, 3)
//   - Semantic Scholar unauthenticated: NewRateLimiter(1, 1)
//   - CrossRef polite pool: NewRateLimiter(50, 50)
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		base:    ratePerSecond,
	}
}

// Wait blocks until a request is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow consumes a token if one is available, without waiting.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Throttle halves the current rate, bounded below by minAdaptiveRate.
func (r *RateLimiter) Throttle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := float64(r.limiter.Limit()) / 2
	if next < minAdaptiveRate {
		next = minAdaptiveRate
	}
	r.limiter.SetLimit(rate.Limit(next))
}

// Relax moves a throttled rate back toward the configured one.
func (r *RateLimiter) Relax() {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := float64(r.limiter.Limit())
	if current >= r.base {
		return
	}
	next := current + r.base/10
	if next > r.base {
		next = r.base
	}
	r.limiter.SetLimit(rate.Limit(next))
}

// Rate returns the current sustained rate in requests per second.
func (r *RateLimiter) Rate() float64 {
	return float64(r.limiter.Limit())
}

// BaseRate returns the configured rate.
func (r *RateLimiter) BaseRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.base
}
