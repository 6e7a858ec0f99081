package upstream

import (
	"context"
	"math/rand"
	"time"

	"council/internal/observability"
)

// RetryPolicy bounds the exponential-backoff-with-jitter loop used for
// every upstream call, grounded on the tenacity policy in the original
// service's query helper (stop_after_attempt / wait_exponential) and the
// teacher's token-bucket retry loop.
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent float64
}

// DefaultRetryPolicy mirrors wait_exponential(multiplier=1, min=2, max=60).
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return RetryPolicy{
		MaxAttempts:   maxAttempts,
		BaseDelay:     2 * time.Second,
		MaxDelay:      60 * time.Second,
		JitterPercent: 0.3,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.BaseDelay << attempt
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	jitter := time.Duration(float64(d) * p.JitterPercent * rand.Float64())
	return d + jitter
}

// callWithRetry runs fn up to policy.MaxAttempts times (inclusive of the
// first attempt), retrying only on classified-transient errors, and never
// returns an error across the Best-effort boundary: the caller translates
// a non-nil error into a nil *Result.
func callWithRetry(ctx context.Context, policy RetryPolicy, model string, fn func(context.Context) (Result, error)) (Result, error) {
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err
		log := observability.LoggerWithTrace(ctx)
		log.Warn().Str("model", model).Int("attempt", attempt+1).Err(err).Msg("upstream call failed")
		if !IsRetryable(err) || attempt == policy.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(policy.delay(attempt)):
		}
	}
	return Result{}, lastErr
}
