// Package retry provides an exponential-backoff-with-jitter wrapper for
// fallible remote operations. The policy only delays intermediate failures;
// the final attempt's error is returned to the caller unchanged.
package retry

import (
	"context"
	"math/rand"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 10 * time.Second
	DefaultJitter     = time.Second
)

// Policy retries an operation up to MaxRetries additional times. The delay
// before retry k (1-indexed) is min(BaseDelay*2^(k-1) + jitter, MaxDelay)
// with jitter drawn uniformly from [0, Jitter).
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Jitter     time.Duration

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a policy with the default schedule.
func New() *Policy {
	return &Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Jitter:     DefaultJitter,
	}
}

// Execute runs op, retrying transient failures according to the schedule.
// The policy is oblivious to what op does; callers must ensure idempotence
// themselves (task inserts use a stable client-generated id for that reason).
func (p *Policy) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := p.wait(ctx, p.Delay(attempt)); err != nil {
				return lastErr
			}
		}
		if lastErr = op(ctx); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

// Delay computes the backoff before the given 1-indexed retry attempt,
// including jitter.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	delay := base << (attempt - 1)
	if delay > maxDelay || delay <= 0 {
		delay = maxDelay
	}
	if p.Jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func (p *Policy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
