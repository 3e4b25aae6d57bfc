package client

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/orderbridge/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbridge_retries_total",
		Help: "Total number of retry attempts by policy and error class",
	}, []string{"policy", "error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderbridge_retry_backoff_seconds",
		Help:    "Backoff duration before a retry by policy",
		Buckets: []float64{1, 2, 3, 5, 8, 11, 15},
	}, []string{"policy"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbridge_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by policy",
	}, []string{"policy"})
)

// SleepFunc blocks for d or until ctx is done. Tests inject a recorder to
// simulate time.
type SleepFunc = ratelimit.SleepFunc

// RetryPolicy holds the configuration for retrying transient failures.
type RetryPolicy struct {
	// Name labels metrics and logs.
	Name string

	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration

	// Step is added to the wait for every further retry.
	Step time.Duration
}

// GetPolicy returns the policy used for reads.
func GetPolicy() RetryPolicy {
	return RetryPolicy{
		Name:        "get",
		MaxAttempts: 10,
		BaseDelay:   1 * time.Second,
		Step:        1 * time.Second,
	}
}

// SubmitPolicy returns the policy used for writes.
func SubmitPolicy() RetryPolicy {
	return RetryPolicy{
		Name:        "submit",
		MaxAttempts: 10,
		BaseDelay:   2 * time.Second,
		Step:        1 * time.Second,
	}
}

// Backoff returns the wait after the failed attempt with the given 0-based index.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseDelay + time.Duration(attempt)*p.Step
}

// Validate checks the policy for usable values.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy %q: max_attempts must be >= 1 (got %d)", p.Name, p.MaxAttempts)
	}
	if p.BaseDelay < 0 || p.Step < 0 {
		return fmt.Errorf("retry policy %q: delays must not be negative", p.Name)
	}
	return nil
}

// WithRetry runs op until it succeeds, fails with a non-transient error, or the
// policy's attempts are used up. Backoff grows linearly with the attempt index.
func WithRetry[T any](ctx context.Context, policy RetryPolicy, sleep SleepFunc, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if sleep == nil {
		sleep = sleepContext
	}
	attempts := max(policy.MaxAttempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, canceledError(err)
		}

		out, err := op(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info().
					Str("policy", policy.Name).
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return out, nil
		}

		lastErr = err
		errorClass := classifyError(err)
		if !shouldRetry(errorClass) {
			return zero, err
		}

		// No wait after the last attempt
		if attempt == attempts-1 {
			break
		}

		backoff := policy.Backoff(attempt)
		retriesTotal.WithLabelValues(policy.Name, string(errorClass)).Inc()
		retryBackoffSeconds.WithLabelValues(policy.Name).Observe(backoff.Seconds())

		log.Debug().
			Str("policy", policy.Name).
			Str("error_class", string(errorClass)).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(err).
			Msg("Retrying request after backoff")

		if err := sleep(ctx, backoff); err != nil {
			log.Warn().
				Str("policy", policy.Name).
				Int("attempt", attempt+1).
				Msg("Context cancelled during retry backoff")
			return zero, canceledError(err)
		}
	}

	retryExhaustedTotal.WithLabelValues(policy.Name).Inc()
	log.Warn().
		Str("policy", policy.Name).
		Int("max_attempts", attempts).
		Err(lastErr).
		Msg("Retry attempts exhausted")

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}

// sleepContext waits for d with context cancellation support.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
