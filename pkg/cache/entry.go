package cache

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultTTL is the fallback TTL when no Expires header is present.
const DefaultTTL = 5 * time.Minute

// CacheEntry represents a cached API response.
type CacheEntry struct {
	// Data is the response body
	Data []byte `json:"data"`

	// StatusCode is the HTTP status code of the cached response
	StatusCode int `json:"status_code"`

	// Headers are the response headers
	Headers http.Header `json:"headers"`

	// Expires is when the cache entry becomes stale
	Expires time.Time `json:"expires"`

	// CachedAt is when we cached this response
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry builds an entry from a completed response. Expiry follows the
// Expires header, falling back to DefaultTTL.
func NewEntry(statusCode int, header http.Header, body []byte) *CacheEntry {
	return &CacheEntry{
		Data:       body,
		StatusCode: statusCode,
		Headers:    header.Clone(),
		Expires:    parseExpires(header),
		CachedAt:   time.Now(),
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Decode unmarshals the cached body into v.
func (e *CacheEntry) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return nil
}

// parseExpires parses the Expires header.
// Returns now + DefaultTTL if the header is missing or unparsable.
func parseExpires(headers http.Header) time.Time {
	expiresStr := headers.Get("Expires")
	if expiresStr == "" {
		return time.Now().Add(DefaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return time.Now().Add(DefaultTTL)
	}

	if expires.Before(time.Now()) {
		// Already expired; Set will skip it
		return time.Now()
	}

	return expires
}
