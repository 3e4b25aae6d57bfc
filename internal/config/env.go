package config

import "os"

// ApplyEnvConfig applies ORDERBRIDGE_* environment variables, skipping
// explicitly set flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("base-url", os.Getenv("ORDERBRIDGE_BASE_URL"), &cfg.BaseURL)
	s.setString("api-key", os.Getenv("ORDERBRIDGE_API_KEY"), &cfg.APIKey)
	s.setString("api-secret", os.Getenv("ORDERBRIDGE_API_SECRET"), &cfg.APISecret)
	s.setString("user-agent", os.Getenv("ORDERBRIDGE_USER_AGENT"), &cfg.UserAgent)
	s.setString("redis-addr", os.Getenv("ORDERBRIDGE_REDIS_ADDR"), &cfg.RedisAddr)
	s.setString("log-level", os.Getenv("ORDERBRIDGE_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("listen", os.Getenv("ORDERBRIDGE_LISTEN_ADDR"), &cfg.ListenAddr)

	if err := s.setIntFromString("page-size", os.Getenv("ORDERBRIDGE_PAGE_SIZE"), &cfg.PageSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-concurrency", os.Getenv("ORDERBRIDGE_MAX_CONCURRENCY"), &cfg.MaxConcurrency); err != nil {
		return err
	}
	if err := s.setIntFromString("requests-per-minute", os.Getenv("ORDERBRIDGE_REQUESTS_PER_MINUTE"), &cfg.RequestsPerMinute); err != nil {
		return err
	}

	if err := s.setDuration("list-timeout", os.Getenv("ORDERBRIDGE_LIST_TIMEOUT"), &cfg.ListTimeout); err != nil {
		return err
	}
	if err := s.setDuration("get-timeout", os.Getenv("ORDERBRIDGE_GET_TIMEOUT"), &cfg.GetTimeout); err != nil {
		return err
	}
	if err := s.setDuration("submit-timeout", os.Getenv("ORDERBRIDGE_SUBMIT_TIMEOUT"), &cfg.SubmitTimeout); err != nil {
		return err
	}

	if err := s.setDuration("sync-interval", os.Getenv("ORDERBRIDGE_SYNC_INTERVAL"), &cfg.SyncInterval); err != nil {
		return err
	}

	s.setBoolFromString("log-pretty", os.Getenv("ORDERBRIDGE_LOG_PRETTY"), &cfg.LogPretty)

	return nil
}
