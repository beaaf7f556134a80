package resource

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds capability-call limits.
type Config struct {
	// MaxConcurrentCalls is the maximum number of in-flight embedder/model
	// calls. If 0, defaults to 4.
	MaxConcurrentCalls int64

	// CallsPerSecond throttles the outbound call rate.
	// If 0, unlimited.
	CallsPerSecond float64

	// CallTimeout bounds a single capability call.
	// If 0, no per-call deadline is applied.
	CallTimeout time.Duration
}

// Governor bounds concurrency, rate, and latency of outbound capability
// calls (embedding and text generation). A nil Governor applies no limits.
type Governor struct {
	cfg Config

	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	inFlight atomic.Int64
}

// NewGovernor creates a governor.
func NewGovernor(cfg Config) *Governor {
	if cfg.MaxConcurrentCalls <= 0 {
		cfg.MaxConcurrentCalls = 4
	}

	g := &Governor{
		cfg: cfg,
		sem: semaphore.NewWeighted(cfg.MaxConcurrentCalls),
	}

	if cfg.CallsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.CallsPerSecond), 1)
	}

	return g
}

// Do runs fn under the governor's limits: it waits for a call slot and a
// rate token, applies the per-call timeout, and releases the slot when fn
// returns.
func (g *Governor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	if g.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
	}

	g.inFlight.Add(1)
	defer g.inFlight.Add(-1)

	return fn(ctx)
}

// InFlight returns the number of calls currently executing.
func (g *Governor) InFlight() int64 {
	if g == nil {
		return 0
	}
	return g.inFlight.Load()
}
