package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultInFlightMaxAge is how long a handle may stay registered before
// Sweep forgets it.
const DefaultInFlightMaxAge = 60 * time.Second

// InFlight collapses concurrent calls that share a key: the first caller
// runs the producer, later callers wait for and share its result. Handles
// are dropped on completion; Sweep forgets handles that have been running
// longer than the max age, so a stuck producer cannot block new callers
// forever.
type InFlight[V any] struct {
	group singleflight.Group
	now   func() time.Time

	mu      sync.Mutex
	started map[string]*flight
}

type flight struct {
	at time.Time
}

// NewInFlight creates an empty in-flight group.
func NewInFlight[V any](opts ...Option) *InFlight[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &InFlight[V]{
		now:     o.now,
		started: make(map[string]*flight),
	}
}

// Do runs produce once per key among concurrent callers. shared reports
// whether the result was produced by another caller. The producer runs
// detached from ctx cancellation so that a departing caller does not fail
// the others; ctx only bounds how long this caller waits.
func (g *InFlight[V]) Do(ctx context.Context, key string, produce func(context.Context) (V, error)) (V, bool, error) {
	ch := g.group.DoChan(key, func() (any, error) {
		f := &flight{at: g.now()}
		g.mu.Lock()
		g.started[key] = f
		g.mu.Unlock()

		defer func() {
			g.mu.Lock()
			if g.started[key] == f {
				delete(g.started, key)
			}
			g.mu.Unlock()
		}()

		return produce(context.WithoutCancel(ctx))
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Shared, res.Err
		}
		v, _ := res.Val.(V)
		return v, res.Shared, nil
	}
}

// Len returns the number of producers currently running.
func (g *InFlight[V]) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.started)
}

// Sweep forgets handles started more than maxAge ago and returns how many
// were forgotten. A forgotten producer keeps running, but new callers for
// its key start a fresh one.
func (g *InFlight[V]) Sweep(maxAge time.Duration) int {
	cutoff := g.now().Add(-maxAge)

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for key, f := range g.started {
		if f.at.Before(cutoff) {
			g.group.Forget(key)
			delete(g.started, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep(maxAge) every interval until ctx is done.
func (g *InFlight[V]) StartSweeper(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				g.Sweep(maxAge)
			}
		}
	}()
}
