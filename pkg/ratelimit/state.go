package ratelimit

import (
	"time"
)

// RedisKeyPrefix prefixes all shared throttle keys.
const RedisKeyPrefix = "orderbridge:throttle"

// Key suffixes for shared throttle state.
const (
	keyThrottledUntil = "until"
	keyLastThrottle   = "last"
	keyThrottleCount  = "count"
)

// throttleKeys holds the Redis keys of one account's throttle window.
type throttleKeys struct {
	until string
	last  string
	count string
}

// keysFor scopes throttle keys to an account, since the server limits per
// credential set. An empty account uses the unscoped keys.
func keysFor(account string) throttleKeys {
	base := RedisKeyPrefix
	if account != "" {
		base += ":" + account
	}
	return throttleKeys{
		until: base + ":" + keyThrottledUntil,
		last:  base + ":" + keyLastThrottle,
		count: base + ":" + keyThrottleCount,
	}
}

// MaxSharedBackoff caps how long a shared throttle entry may block other clients.
const MaxSharedBackoff = 5 * time.Minute

// ThrottleState is the throttle backoff shared across all client instances via Redis.
type ThrottleState struct {
	// ThrottledUntil is when the most recent throttle window ends.
	ThrottledUntil time.Time `json:"throttled_until"`

	// LastThrottle is when a throttle signal was last recorded.
	LastThrottle time.Time `json:"last_throttle"`

	// Count is the number of throttle signals recorded since the key was created.
	Count int64 `json:"count"`
}

// IsThrottled reports whether the shared window is still active at now.
func (s *ThrottleState) IsThrottled(now time.Time) bool {
	return now.Before(s.ThrottledUntil)
}

// Remaining returns how long until the shared window ends.
// Returns 0 if it has already passed.
func (s *ThrottleState) Remaining(now time.Time) time.Duration {
	d := s.ThrottledUntil.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// clampBackoff bounds a reset delay to [0, MaxSharedBackoff].
func clampBackoff(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > MaxSharedBackoff {
		return MaxSharedBackoff
	}
	return d
}
