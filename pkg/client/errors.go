package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	// The last attempt's error is wrapped alongside it.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrCanceled is returned when the caller's context ends a call, a retry
	// backoff or a throttle wait.
	ErrCanceled = errors.New("operation cancelled")
)

// ErrorClass represents a classification of call failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx errors (unauthorized, malformed request).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses surfaced as errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents connection-level failures.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassTimeout represents a per-call timeout.
	ErrorClassTimeout ErrorClass = "timeout"

	// ErrorClassCanceled represents caller cancellation.
	ErrorClassCanceled ErrorClass = "canceled"

	// ErrorClassUnknown represents anything else (decode failures, programming errors).
	ErrorClassUnknown ErrorClass = "unknown"
)

// APIError is a completed HTTP exchange with a status code >= 400.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       []byte
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Status
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if len(e.Body) > 0 {
		return fmt.Sprintf("%s %s: status %d: %s: %s", e.Method, e.Path, e.StatusCode, msg, truncate(e.Body, 256))
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// TimeoutError is returned when a single call exceeds its timeout.
type TimeoutError struct {
	Method  string
	Path    string
	Timeout time.Duration
	Err     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: timed out after %s", e.Method, e.Path, e.Timeout)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// NetworkError wraps a failure to complete the HTTP exchange.
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ValidationError reports a record rejected before submission.
type ValidationError struct {
	// Record identifies the rejected record (order number or key).
	Record string
	Err    error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record %q: %v", e.Record, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err was caused by a per-call timeout or an expired
// caller deadline.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te) || errors.Is(err, context.DeadlineExceeded)
}

// IsCanceled reports whether err was caused by caller cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// classifyError categorizes an error for retry decisions and observability.
func classifyError(err error) ErrorClass {
	if err == nil {
		return ""
	}

	var (
		apiErr     *APIError
		timeoutErr *TimeoutError
		netErr     *NetworkError
	)

	switch {
	case IsCanceled(err):
		return ErrorClassCanceled
	case errors.As(err, &timeoutErr):
		return ErrorClassTimeout
	case errors.As(err, &apiErr):
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return ErrorClassRateLimit
		case apiErr.StatusCode >= 500:
			return ErrorClassServer
		default:
			return ErrorClassClient
		}
	case errors.As(err, &netErr):
		return ErrorClassNetwork
	default:
		return ErrorClassUnknown
	}
}

// shouldRetry determines if an error class is transient.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		// client errors are fatal; timeouts and cancellation are terminal for the call
		return false
	}
}

// canceledError wraps a context error with ErrCanceled unless already wrapped.
func canceledError(err error) error {
	if errors.Is(err, ErrCanceled) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCanceled, err)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
