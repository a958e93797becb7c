package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryProvider retries transient failures with exponential backoff and
// jitter. A response that fails schema validation is retried at most once.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry wraps a Provider with retry logic.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryProvider{inner: p, config: cfg}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	invalidSeen := false
	var err error
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(r.backoff(attempt-1, err))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		var resp *Response
		resp, err = r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !Transient(err) {
			return nil, err
		}
		var invalid *ErrInvalidResponse
		if errors.As(err, &invalid) {
			if invalidSeen {
				return nil, err
			}
			invalidSeen = true
		}
	}
	return nil, err
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// backoff returns the wait before retry n+1. A rate limit's RetryAfter
// wins, capped at MaxWait.
func (r *RetryProvider) backoff(n int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return min(rl.RetryAfter, r.config.MaxWait)
	}

	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(n))
	wait = math.Min(wait, float64(r.config.MaxWait))
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(math.Max(wait, 0))
}

// TimeoutProvider bounds each Generate call, retries included.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout wraps a Provider with a per-call deadline. A non-positive
// timeout returns p unchanged.
func WithTimeout(p Provider, timeout time.Duration) Provider {
	if timeout <= 0 {
		return p
	}
	return &TimeoutProvider{inner: p, timeout: timeout}
}

func (t *TimeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *TimeoutProvider) ModelID() string {
	return t.inner.ModelID()
}
