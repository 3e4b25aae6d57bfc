// Package config loads orderctl settings from a TOML file, ORDERBRIDGE_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/orderbridge/pkg/client"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
)

// Config holds CLI configuration for orderctl.
type Config struct {
	BaseURL   string `validate:"required,url"`
	APIKey    string `validate:"required"`
	APISecret string `validate:"required"`
	UserAgent string `validate:"required"`

	// RedisAddr enables the shared throttle tracker and the store cache.
	RedisAddr string `validate:"omitempty,hostname_port"`

	PageSize          int `validate:"min=1,max=500"`
	MaxConcurrency    int `validate:"min=1,max=64"`
	RequestsPerMinute int `validate:"min=0"`

	ListTimeout   time.Duration `validate:"gt=0"`
	GetTimeout    time.Duration `validate:"gt=0"`
	SubmitTimeout time.Duration `validate:"gt=0"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	LogPretty bool

	ListenAddr string `validate:"required"`

	// SyncInterval is how often `serve` fetches changed orders. 0 disables it.
	SyncInterval time.Duration `validate:"gte=0"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BaseURL:        client.DefaultBaseURL,
		UserAgent:      "orderctl/1.0",
		PageSize:       100,
		MaxConcurrency: 5,
		ListTimeout:    60 * time.Second,
		GetTimeout:     30 * time.Second,
		SubmitTimeout:  60 * time.Second,
		LogLevel:       "info",
		ListenAddr:     ":8080",
		SyncInterval:   5 * time.Minute,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate normalizes the configuration and checks it for errors.
func (c *Config) Validate() error {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	c.LogLevel = strings.ToLower(c.LogLevel)

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "*****"
	}
	if c.APISecret != "" {
		c.APISecret = "*****"
	}
	return c
}

// ClientConfig converts the CLI configuration into a library configuration.
// rdb may be nil.
func (c Config) ClientConfig(rdb *redis.Client) client.Config {
	cfg := client.DefaultConfig(c.APIKey, c.APISecret)
	cfg.BaseURL = c.BaseURL
	cfg.UserAgent = c.UserAgent
	cfg.Redis = rdb
	cfg.PageSize = c.PageSize
	cfg.MaxConcurrency = c.MaxConcurrency
	cfg.RequestsPerMinute = c.RequestsPerMinute
	cfg.ListTimeout = c.ListTimeout
	cfg.GetTimeout = c.GetTimeout
	cfg.SubmitTimeout = c.SubmitTimeout
	return cfg
}

// configSetter applies values only for flags that were not explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return fmt.Errorf("parse %s: must not be negative (got %d)", flag, i)
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
