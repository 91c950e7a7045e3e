package services

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/skupulse/internal/utils"
)

// RetryPolicy defines retry behavior for source loads that fail transiently.
// The zero value makes a single attempt without a per-attempt deadline.
type RetryPolicy struct {
	MaxRetries     int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	JitterEnabled  bool
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy is used for fact store and order feed reads.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     2,
		InitialDelay:   200 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		BackoffFactor:  2,
		JitterEnabled:  true,
		AttemptTimeout: 15 * time.Second,
	}
}

// retryable reports whether another attempt could succeed. Bad input and
// cancellation by the caller never improve on retry.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var validation *utils.ValidationError
	var insufficient *utils.InsufficientDataError
	if errors.As(err, &validation) || errors.As(err, &insufficient) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.InitialDelay
	factor := p.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * factor)
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.JitterEnabled && d > 0 {
		// up to 25% either way
		jitter := time.Duration(rand.Int63n(int64(d)/2+1)) - d/4
		d += jitter
	}
	return d
}

// executeWithRetry runs fn until it succeeds, returns a non-retryable error
// or the policy is exhausted. The last error is returned.
func executeWithRetry[T any](ctx context.Context, policy RetryPolicy, logger *logrus.Logger, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := policy.delay(attempt)
			logger.WithFields(logrus.Fields{
				"operation": operation,
				"attempt":   attempt + 1,
				"delay_ms":  wait.Milliseconds(),
			}).WithError(lastErr).Warn("Retrying operation")

			select {
			case <-ctx.Done():
				return zero, lastErr
			case <-time.After(wait):
			}
		}

		attemptCtx := ctx
		cancel := func() {}
		if policy.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
		}
		result, err := fn(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	return zero, lastErr
}
