// Package client provides the order API client with throttle handling,
// retries, paginated listing and bounded-concurrency submission.
package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Sternrassler/orderbridge/pkg/cache"
	"github.com/Sternrassler/orderbridge/pkg/ratelimit"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for client calls.
var (
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orderbridge_errors_total",
		Help: "Total failed calls by error class",
	}, []string{"class"})

	throttledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderbridge_throttled_total",
		Help: "Total throttled responses",
	})

	throttleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "orderbridge_throttle_wait_seconds",
		Help:    "Wait announced by throttled responses",
		Buckets: []float64{0, 1, 2, 5, 10, 30, 60},
	})

	validationFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orderbridge_validation_failures_total",
		Help: "Total records rejected before submission",
	})
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://ssapi.shipstation.com"

// Client is the main order API client.
type Client struct {
	transport *Transport
	tracker   *ratelimit.Tracker
	cache     *cache.Manager
	account   string
	validate  *validator.Validate
	sleep     SleepFunc
	skippable map[int]struct{}
	config    Config
	logger    zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, without trailing slash.
	BaseURL string

	// Credentials, sent as a Basic Authorization header.
	APIKey    string
	APISecret string

	UserAgent string

	// Redis enables the shared throttle tracker and the store cache. Optional.
	Redis *redis.Client

	// HTTPClient overrides the default HTTP client. Optional.
	HTTPClient *http.Client

	// Paging
	PageSize int

	// Concurrency for post-processing and bulk submission
	MaxConcurrency int

	// RequestsPerMinute paces outgoing requests. 0 disables pacing.
	RequestsPerMinute int

	// Per-request timeouts
	ListTimeout   time.Duration
	GetTimeout    time.Duration
	SubmitTimeout time.Duration

	// Retry
	GetRetry    RetryPolicy
	SubmitRetry RetryPolicy

	// SkippableStatuses are statuses whose page failures are recorded as read
	// errors instead of aborting a listing.
	SkippableStatuses []int

	Encoding Encoding

	// Sleep overrides how backoff and throttle waits are performed (for testing).
	Sleep SleepFunc
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey, apiSecret string) Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		APIKey:            apiKey,
		APISecret:         apiSecret,
		UserAgent:         "orderbridge/1.0",
		PageSize:          100,
		MaxConcurrency:    5,
		RequestsPerMinute: 0,
		ListTimeout:       60 * time.Second,
		GetTimeout:        30 * time.Second,
		SubmitTimeout:     60 * time.Second,
		GetRetry:          GetPolicy(),
		SubmitRetry:       SubmitPolicy(),
		SkippableStatuses: []int{
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
		Encoding: DefaultEncoding(),
	}
}

// New creates a new order API client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("api key and secret are required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base_url must be an absolute http(s) URL (got %q)", cfg.BaseURL)
	}

	if cfg.PageSize < 1 || cfg.PageSize > 500 {
		return nil, fmt.Errorf("page_size must be between 1 and 500 (got %d)", cfg.PageSize)
	}

	if cfg.MaxConcurrency < 1 {
		return nil, fmt.Errorf("max_concurrency must be >= 1 (got %d)", cfg.MaxConcurrency)
	}

	if cfg.RequestsPerMinute < 0 {
		return nil, fmt.Errorf("requests_per_minute must be >= 0 (got %d)", cfg.RequestsPerMinute)
	}

	if cfg.ListTimeout <= 0 || cfg.GetTimeout <= 0 || cfg.SubmitTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be positive")
	}

	if err := cfg.GetRetry.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.SubmitRetry.Validate(); err != nil {
		return nil, err
	}

	if cfg.Encoding.Location == nil {
		cfg.Encoding = DefaultEncoding()
	}

	// Initialize logger
	logger := log.With().Str("component", "orderbridge-client").Logger()

	skippable := make(map[int]struct{}, len(cfg.SkippableStatuses))
	for _, status := range cfg.SkippableStatuses {
		skippable[status] = struct{}{}
	}

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	account := accountFingerprint(cfg.APIKey)

	return &Client{
		transport: NewTransport(cfg.BaseURL, cfg.APIKey, cfg.APISecret, cfg.UserAgent, cfg.HTTPClient, cfg.Encoding, cfg.RequestsPerMinute, logger),
		tracker:   ratelimit.NewTracker(cfg.Redis, account, log.With().Str("component", "throttle-tracker").Logger()),
		cache:     cacheManager,
		account:   account,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		sleep:     sleep,
		skippable: skippable,
		config:    cfg,
		logger:    logger,
	}, nil
}

// accountFingerprint derives a stable, non-reversible cache scope from the API key.
func accountFingerprint(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:6])
}

// LastNetworkActivity returns the time of the last successful exchange.
func (c *Client) LastNetworkActivity() time.Time {
	return c.transport.LastNetworkActivity()
}

// Close releases resources held by the client. The Redis client is owned by the
// caller and is not closed.
func (c *Client) Close() error {
	c.transport.httpClient.CloseIdleConnections()
	return nil
}

// IsSkippable reports whether a page failure may be recorded and skipped.
func (c *Client) IsSkippable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	_, ok := c.skippable[apiErr.StatusCode]
	return ok
}

// request describes one logical call.
type request struct {
	method  string
	path    string
	params  Params
	body    any
	timeout time.Duration
	policy  RetryPolicy
}

// do executes a call through the shared throttle gate, the retry policy and the
// throttle loop. Throttled responses re-issue the same request after the
// announced reset; only the caller's context bounds that loop.
func (c *Client) do(ctx context.Context, r request) (*Response, error) {
	for throttles := 0; ; throttles++ {
		if _, err := c.tracker.Wait(ctx, c.sleep); err != nil {
			return nil, canceledError(err)
		}

		var signal ratelimit.ThrottleSignal
		resp, err := WithRetry(ctx, r.policy, c.sleep, func(ctx context.Context) (*Response, error) {
			resp, err := c.transport.Send(ctx, r.method, r.path, r.params, r.body, r.timeout)
			if err != nil {
				return nil, err
			}
			signal = ratelimit.Inspect(resp.StatusCode, resp.Header, resp.Body)
			if signal.Throttled {
				return resp, nil
			}
			if err := resp.Err(); err != nil {
				return nil, err
			}
			return resp, nil
		})
		if err != nil {
			errorClass := classifyError(err)
			errorsTotal.WithLabelValues(string(errorClass)).Inc()
			if errorClass != ErrorClassCanceled {
				c.logger.Warn().
					Err(err).
					Str("method", r.method).
					Str("path", r.path).
					Str("error_class", string(errorClass)).
					Msg("API call failed")
			}
			return nil, err
		}

		if !signal.Throttled {
			return resp, nil
		}

		throttledTotal.Inc()
		throttleWaitSeconds.Observe(signal.ResetIn.Seconds())
		c.logger.Warn().
			Str("method", r.method).
			Str("path", r.path).
			Dur("reset_in", signal.ResetIn).
			Int("throttles", throttles+1).
			Msg("Request throttled, waiting for reset")

		if err := c.tracker.RecordThrottle(ctx, signal); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to publish throttle window")
		}

		if err := c.sleep(ctx, signal.ResetIn); err != nil {
			return nil, canceledError(err)
		}
	}
}

// getJSON performs a read and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, path string, params Params, timeout time.Duration, out any) (*Response, error) {
	resp, err := c.do(ctx, request{
		method:  http.MethodGet,
		path:    path,
		params:  params,
		timeout: timeout,
		policy:  c.config.GetRetry,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Decode(out); err != nil {
		return nil, err
	}
	return resp, nil
}
