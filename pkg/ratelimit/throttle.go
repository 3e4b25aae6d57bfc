// Package ratelimit detects server-side throttling and shares throttle backoff
// state between clients.
//
// The order API signals rate limiting with HTTP 429 and an X-Rate-Limit-Reset
// header (seconds until the window resets). Some endpoints answer with a
// "Too Many Requests" error embedded in the body instead, so error bodies are
// inspected as well. Record data is never scanned for the marker.
package ratelimit

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HeaderRateLimitReset carries the number of seconds until the rate limit window resets.
const HeaderRateLimitReset = "X-Rate-Limit-Reset"

// tooManyRequestsMarker is matched case-insensitively against response bodies.
var tooManyRequestsMarker = []byte("too many requests")

// ThrottleSignal is derived from a single response and never persisted beyond
// the retry loop of that call.
type ThrottleSignal struct {
	// Throttled is true when the server refused the request due to rate limiting.
	Throttled bool

	// ResetIn is the server-specified delay before the request may be re-sent.
	// Zero means "retry immediately".
	ResetIn time.Duration
}

// Inspect classifies a response as throttled or not.
func Inspect(statusCode int, header http.Header, body []byte) ThrottleSignal {
	throttled := statusCode == http.StatusTooManyRequests || bodySignalsThrottle(statusCode, body)
	if !throttled {
		return ThrottleSignal{}
	}

	return ThrottleSignal{
		Throttled: true,
		ResetIn:   ParseReset(header),
	}
}

// ParseReset reads X-Rate-Limit-Reset. Missing, unparsable or negative values yield 0.
func ParseReset(header http.Header) time.Duration {
	if header == nil {
		return 0
	}

	raw := strings.TrimSpace(header.Get(HeaderRateLimitReset))
	if raw == "" {
		return 0
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}

// bodySignalsThrottle checks the marker only where the body is an error
// message: any non-2xx body, a 2xx body that is not JSON, or a 2xx JSON object
// whose top-level Message or ExceptionMessage carries it.
func bodySignalsThrottle(statusCode int, body []byte) bool {
	if !hasTooManyRequestsMarker(body) {
		return false
	}
	if statusCode < 200 || statusCode > 299 {
		return true
	}

	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return true
	}

	var env errorEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return false
	}
	return hasTooManyRequestsMarker([]byte(env.Message)) ||
		hasTooManyRequestsMarker([]byte(env.ExceptionMessage))
}

// errorEnvelope is the error shape the API uses in place of a payload.
type errorEnvelope struct {
	Message          string `json:"Message"`
	ExceptionMessage string `json:"ExceptionMessage"`
}

func hasTooManyRequestsMarker(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	return bytes.Contains(bytes.ToLower(body), tooManyRequestsMarker)
}
