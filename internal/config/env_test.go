package config

import (
	"testing"
	"time"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"ORDERBRIDGE_API_KEY":             "env-key",
				"ORDERBRIDGE_API_SECRET":          "env-secret",
				"ORDERBRIDGE_REDIS_ADDR":          "redis:6379",
				"ORDERBRIDGE_PAGE_SIZE":           "250",
				"ORDERBRIDGE_REQUESTS_PER_MINUTE": "40",
				"ORDERBRIDGE_LIST_TIMEOUT":        "2m",
				"ORDERBRIDGE_LOG_PRETTY":          "1",
				"ORDERBRIDGE_SYNC_INTERVAL":       "10m",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				APIKey:            "env-key",
				APISecret:         "env-secret",
				RedisAddr:         "redis:6379",
				PageSize:          250,
				RequestsPerMinute: 40,
				ListTimeout:       2 * time.Minute,
				LogPretty:         true,
				SyncInterval:      10 * time.Minute,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"ORDERBRIDGE_API_KEY":   "env-key",
				"ORDERBRIDGE_PAGE_SIZE": "250",
			},
			changed: map[string]bool{"page-size": true},
			initial: Config{PageSize: 20},
			expected: Config{
				APIKey:   "env-key",
				PageSize: 20,
			},
		},
		{
			name: "returns error for invalid duration",
			envVars: map[string]string{
				"ORDERBRIDGE_GET_TIMEOUT": "soon",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for invalid int",
			envVars: map[string]string{
				"ORDERBRIDGE_MAX_CONCURRENCY": "many",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name: "returns error for negative int",
			envVars: map[string]string{
				"ORDERBRIDGE_REQUESTS_PER_MINUTE": "-5",
			},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg != tt.expected {
				t.Errorf("ApplyEnvConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}
