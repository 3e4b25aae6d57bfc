package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with string durations for TOML.
type FileConfig struct {
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	APISecret         string `toml:"api_secret"`
	UserAgent         string `toml:"user_agent"`
	RedisAddr         string `toml:"redis_addr"`
	PageSize          int    `toml:"page_size"`
	MaxConcurrency    int    `toml:"max_concurrency"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	ListTimeout       string `toml:"list_timeout"`
	GetTimeout        string `toml:"get_timeout"`
	SubmitTimeout     string `toml:"submit_timeout"`
	LogLevel          string `toml:"log_level"`
	LogPretty         *bool  `toml:"log_pretty"`
	ListenAddr        string `toml:"listen_addr"`
	SyncInterval      string `toml:"sync_interval"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.orderbridge/config.toml, or "" without a home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".orderbridge", "config.toml")
	}
	return ""
}

// FileExists reports whether a file exists at p.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// ApplyFileConfig applies fc to cfg, skipping explicitly set flags.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("base-url", fc.BaseURL, &cfg.BaseURL)
	s.setString("api-key", fc.APIKey, &cfg.APIKey)
	s.setString("api-secret", fc.APISecret, &cfg.APISecret)
	s.setString("user-agent", fc.UserAgent, &cfg.UserAgent)
	s.setString("redis-addr", fc.RedisAddr, &cfg.RedisAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("listen", fc.ListenAddr, &cfg.ListenAddr)

	s.setInt("page-size", fc.PageSize, &cfg.PageSize)
	s.setInt("max-concurrency", fc.MaxConcurrency, &cfg.MaxConcurrency)
	s.setInt("requests-per-minute", fc.RequestsPerMinute, &cfg.RequestsPerMinute)

	if err := s.setDuration("list-timeout", fc.ListTimeout, &cfg.ListTimeout); err != nil {
		return err
	}
	if err := s.setDuration("get-timeout", fc.GetTimeout, &cfg.GetTimeout); err != nil {
		return err
	}
	if err := s.setDuration("submit-timeout", fc.SubmitTimeout, &cfg.SubmitTimeout); err != nil {
		return err
	}

	if err := s.setDuration("sync-interval", fc.SyncInterval, &cfg.SyncInterval); err != nil {
		return err
	}

	s.setBool("log-pretty", fc.LogPretty, &cfg.LogPretty)

	return nil
}
