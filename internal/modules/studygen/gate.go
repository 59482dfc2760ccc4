package studygen

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Gate bounds in-flight generation calls for one run and optionally paces them
// against a process-wide limiter.
type Gate struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

func NewGate(maxInflight int, limiter *rate.Limiter) *Gate {
	if maxInflight <= 0 {
		maxInflight = 10
	}
	return &Gate{sem: semaphore.NewWeighted(int64(maxInflight)), limiter: limiter}
}

// NewLimiter returns nil when rps is not positive, which disables pacing.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return fn(ctx)
}
