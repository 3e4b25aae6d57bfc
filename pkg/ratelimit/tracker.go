package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for shared throttle tracking.
var (
	sharedThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderbridge_shared_throttles_total",
		Help: "Total number of throttle signals published to the shared tracker",
	})

	sharedWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderbridge_shared_throttle_waits_total",
		Help: "Total number of requests delayed by a throttle window recorded by another client",
	})

	sharedWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orderbridge_shared_throttle_wait_seconds",
		Help:    "Time spent waiting for a shared throttle window to end",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})
)

// recordScript extends throttled_until only when the new deadline is later,
// so concurrent writers never shorten an active window.
var recordScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local candidate = tonumber(ARGV[1])
if candidate > current then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
end
redis.call('SET', KEYS[2], ARGV[3])
return redis.call('INCR', KEYS[3])
`)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Tracker shares throttle windows between client instances of the same
// account through Redis. A nil *Tracker is valid and disables sharing.
type Tracker struct {
	redis  *redis.Client
	keys   throttleKeys
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a shared throttle tracker for account. Trackers of
// different accounts never see each other's windows.
func NewTracker(redisClient *redis.Client, account string, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		keys:   keysFor(account),
		logger: logger,
		now:    time.Now,
	}
}

// GetState retrieves the shared throttle state.
// Returns a zero state if nothing has been recorded.
func (t *Tracker) GetState(ctx context.Context) (*ThrottleState, error) {
	if t == nil || t.redis == nil {
		return &ThrottleState{}, nil
	}

	pipe := t.redis.Pipeline()
	untilCmd := pipe.Get(ctx, t.keys.until)
	lastCmd := pipe.Get(ctx, t.keys.last)
	countCmd := pipe.Get(ctx, t.keys.count)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get throttle state: %w", err)
	}

	state := &ThrottleState{}

	if ms, err := untilCmd.Int64(); err == nil {
		state.ThrottledUntil = time.UnixMilli(ms)
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("parse throttled_until: %w", err)
	}

	if ms, err := lastCmd.Int64(); err == nil {
		state.LastThrottle = time.UnixMilli(ms)
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("parse last_throttle: %w", err)
	}

	if n, err := countCmd.Int64(); err == nil {
		state.Count = n
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("parse throttle count: %w", err)
	}

	return state, nil
}

// RecordThrottle publishes a throttle signal so other clients back off too.
// Signals without a reset delay only bump the counter.
func (t *Tracker) RecordThrottle(ctx context.Context, signal ThrottleSignal) error {
	if t == nil || t.redis == nil || !signal.Throttled {
		return nil
	}

	now := t.now()
	backoff := clampBackoff(signal.ResetIn)
	until := now.Add(backoff)

	// PX must be positive; a zero backoff keeps the key for one millisecond.
	ttl := backoff.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}

	count, err := recordScript.Run(ctx, t.redis,
		[]string{t.keys.until, t.keys.last, t.keys.count},
		strconv.FormatInt(until.UnixMilli(), 10),
		strconv.FormatInt(ttl, 10),
		strconv.FormatInt(now.UnixMilli(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("record throttle in redis: %w", err)
	}

	sharedThrottlesTotal.Inc()

	t.logger.Warn().
		Dur("reset_in", signal.ResetIn).
		Time("throttled_until", until).
		Int64("throttle_count", count).
		Msg("Throttle window published")

	return nil
}

// Wait blocks until any shared throttle window has passed.
// Tracker errors are logged and do not block the request.
func (t *Tracker) Wait(ctx context.Context, sleep SleepFunc) (time.Duration, error) {
	if t == nil || t.redis == nil {
		return 0, nil
	}

	state, err := t.GetState(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Shared throttle state unavailable")
		return 0, nil
	}

	wait := clampBackoff(state.Remaining(t.now()))
	if wait <= 0 {
		return 0, nil
	}

	t.logger.Info().
		Dur("wait", wait).
		Time("throttled_until", state.ThrottledUntil).
		Msg("Waiting for shared throttle window")

	sharedWaitsTotal.Inc()
	sharedWaitSeconds.Observe(wait.Seconds())

	if err := sleep(ctx, wait); err != nil {
		return 0, err
	}
	return wait, nil
}
