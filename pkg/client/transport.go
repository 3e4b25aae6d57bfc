package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HeaderRequestID carries the per-attempt correlation id.
const HeaderRequestID = "X-Request-ID"

// Prometheus metrics for HTTP exchanges.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbridge_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orderbridge_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})
)

// Response is a completed HTTP exchange with its body read.
type Response struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	RequestID  string
}

// Err returns an *APIError for statuses >= 400, nil otherwise.
func (r *Response) Err() error {
	if r.StatusCode < 400 {
		return nil
	}
	return &APIError{
		Method:     r.Method,
		Path:       r.Path,
		StatusCode: r.StatusCode,
		Status:     r.Status,
		Body:       r.Body,
	}
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.Method, r.Path, err)
	}
	return nil
}

// Transport performs single authenticated HTTP exchanges. It neither retries nor
// interprets throttling.
type Transport struct {
	baseURL    string
	authHeader string
	userAgent  string
	httpClient *http.Client
	encoding   Encoding
	limiter    *rate.Limiter
	logger     zerolog.Logger

	lastActivity atomic.Int64
}

// NewTransport creates a transport for baseURL. requestsPerMinute <= 0 disables pacing.
func NewTransport(baseURL, apiKey, apiSecret, userAgent string, httpClient *http.Client, enc Encoding, requestsPerMinute int, logger zerolog.Logger) *Transport {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var limiter *rate.Limiter
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}

	return &Transport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authHeader: BasicAuthHeader(apiKey, apiSecret),
		userAgent:  userAgent,
		httpClient: httpClient,
		encoding:   enc,
		limiter:    limiter,
		logger:     logger,
	}
}

// BasicAuthHeader builds the Authorization header value for an API key pair.
func BasicAuthHeader(apiKey, apiSecret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(apiKey+":"+apiSecret))
}

// LastNetworkActivity returns the time of the last 2xx exchange, or the zero time.
func (t *Transport) LastNetworkActivity() time.Time {
	ns := t.lastActivity.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// URL returns the absolute request URL for path and params.
func (t *Transport) URL(path string, params Params) string {
	return t.baseURL + path + params.Encode(t.encoding)
}

// Send performs one HTTP exchange. A timeout <= 0 leaves only the caller's
// context in effect. Any completed exchange is returned as a *Response regardless
// of status; use Response.Err to surface HTTP failures.
func (t *Transport) Send(ctx context.Context, method, path string, params Params, body any, timeout time.Duration) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, canceledError(err)
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, canceledError(ctx.Err())
			}
			return nil, fmt.Errorf("request pacing: %w", err)
		}
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(callCtx, method, t.URL(path, params), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Authorization", t.authHeader)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	endpoint := endpointLabel(path)
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	t.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Msg("Executing API request")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, t.wrapExchangeError(ctx, callCtx, method, path, timeout, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, t.wrapExchangeError(ctx, callCtx, method, path, timeout, err)
	}

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		t.lastActivity.Store(time.Now().UnixNano())
	}

	return &Response{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
		RequestID:  requestID,
	}, nil
}

// wrapExchangeError distinguishes caller cancellation, per-call timeout and
// network failure.
func (t *Transport) wrapExchangeError(ctx, callCtx context.Context, method, path string, timeout time.Duration, err error) error {
	switch {
	case ctx.Err() != nil:
		return canceledError(ctx.Err())
	case timeout > 0 && errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return &TimeoutError{Method: method, Path: path, Timeout: timeout, Err: err}
	default:
		return &NetworkError{Method: method, Path: path, Err: err}
	}
}

// endpointLabel replaces numeric path segments so metric labels stay bounded.
func endpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			segments[i] = "{id}"
		}
	}
	return strings.Join(segments, "/")
}
