// Package resilience provides per-provider circuit breakers.
//
// A provider that keeps failing is skipped for a cooldown period instead of
// costing every query its full timeout. Skipped calls surface as
// domain.ErrCircuitOpen and are treated by the orchestrator like any other
// adapter failure.
package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/helixir/metasearch-service/internal/domain"
)

// BreakerConfig configures every provider breaker.
type BreakerConfig struct {
	// Enabled turns breakers on. When false, Execute calls through directly.
	Enabled bool

	// ConsecutiveThreshold trips the breaker after this many consecutive failures.
	ConsecutiveThreshold uint32

	// FailureRatio trips the breaker once at least MinRequests calls were
	// made in the current interval and this fraction of them failed.
	FailureRatio float64
	MinRequests  uint32

	// Interval is the cyclic period after which closed-state counts reset.
	Interval time.Duration

	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration

	// HalfOpenRequests is the number of probe calls allowed while half-open.
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns the defaults used for scholarly APIs.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:              true,
		ConsecutiveThreshold: 5,
		FailureRatio:         0.8,
		MinRequests:          10,
		Interval:             2 * time.Minute,
		Cooldown:             60 * time.Second,
		HalfOpenRequests:     1,
	}
}

// BreakerRegistry provides one circuit breaker per provider.
// It is safe for concurrent use and lazily creates breakers on first access.
type BreakerRegistry struct {
	mu       sync.Mutex
	breakers map[domain.Provider]*gobreaker.CircuitBreaker
	config   BreakerConfig
	logger   zerolog.Logger

	// onStateChange is an optional hook, used to export breaker state as a metric.
	onStateChange func(p domain.Provider, to gobreaker.State)
}

// NewBreakerRegistry creates a BreakerRegistry.
func NewBreakerRegistry(cfg BreakerConfig, logger zerolog.Logger) *BreakerRegistry {
	return &BreakerRegistry{
		breakers: make(map[domain.Provider]*gobreaker.CircuitBreaker),
		config:   cfg,
		logger:   logger.With().Str("component", "circuit_breaker").Logger(),
	}
}

// OnStateChange registers a callback invoked after any breaker changes state.
// It must be called before the first Execute.
func (r *BreakerRegistry) OnStateChange(fn func(p domain.Provider, to gobreaker.State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStateChange = fn
}

// Get returns the breaker for p, creating it on first use.
func (r *BreakerRegistry) Get(p domain.Provider) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[p]; ok {
		return cb
	}

	cfg := r.config
	hook := r.onStateChange
	logger := r.logger

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(p),
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.ConsecutiveThreshold > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveThreshold {
				return true
			}
			if cfg.FailureRatio <= 0 || counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if hook != nil {
				hook(domain.Provider(name), to)
			}
		},
	})
	r.breakers[p] = cb
	return cb
}

// Execute runs fn through the breaker for p. An open breaker returns an
// error wrapping domain.ErrCircuitOpen without calling fn.
func (r *BreakerRegistry) Execute(p domain.Provider, fn func() error) error {
	if !r.config.Enabled {
		return fn()
	}

	_, err := r.Get(p).Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w", p, domain.ErrCircuitOpen)
	}
	return err
}

// State returns the current state of the breaker for p, or StateClosed if
// it has not been created yet.
func (r *BreakerRegistry) State(p domain.Provider) gobreaker.State {
	r.mu.Lock()
	cb, ok := r.breakers[p]
	r.mu.Unlock()

	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// States returns the state name of every created breaker.
func (r *BreakerRegistry) States() map[domain.Provider]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[domain.Provider]string, len(r.breakers))
	for p, cb := range r.breakers {
		out[p] = cb.State().String()
	}
	return out
}
