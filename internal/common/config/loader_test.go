// internal/common/config/loader_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, 10000, cfg.Channel.ConnectTimeout)
	assert.Equal(t, 30000, cfg.Channel.HeartbeatInterval)
	assert.Equal(t, 1000, cfg.Channel.ReconnectBaseDelay)
	assert.Equal(t, 30000, cfg.Channel.ReconnectMaxDelay)
	assert.Equal(t, 5, cfg.Channel.MaxReconnectAttempts)
	assert.Equal(t, 100, cfg.Channel.ManualReconnectDelay)
	assert.Equal(t, 300000, cfg.Cache.SnapshotTTL)
	assert.Equal(t, ":9105", cfg.Metrics.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Channel.HeartbeatInterval = 15000
	cfg.Channel.MaxReconnectAttempts = 3
	cfg.Logging.Level = "debug"

	applyDefaults(cfg)

	assert.Equal(t, 15000, cfg.Channel.HeartbeatInterval)
	assert.Equal(t, 3, cfg.Channel.MaxReconnectAttempts)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10000, cfg.Channel.ConnectTimeout)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing base url",
			mutate:  func(cfg *Config) { cfg.Service.BaseURL = "" },
			wantErr: "service.base_url is required",
		},
		{
			name: "cache enabled without redis address",
			mutate: func(cfg *Config) {
				cfg.Cache.Enabled = true
				cfg.Cache.Redis.Address = ""
			},
			wantErr: "cache.redis.address is required",
		},
		{
			name:   "valid without cache",
			mutate: func(cfg *Config) {},
		},
		{
			name: "valid with cache",
			mutate: func(cfg *Config) {
				cfg.Cache.Enabled = true
				cfg.Cache.Redis.Address = "localhost:6379"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Service.BaseURL = "https://api.learnhub.example.com"
			applyDefaults(cfg)
			tt.mutate(cfg)

			err := validateConfig(cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 10*time.Second, GetDuration(10000))
	assert.Equal(t, 100*time.Millisecond, GetDuration(100))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}

func TestOverrideEmptyConfig(t *testing.T) {
	t.Setenv("SERVICE_BASE_URL", "https://env.learnhub.example.com")
	t.Setenv("SERVICE_SUBJECT_ID", "env-subject")
	t.Setenv("REDIS_ADDRESS", "envhost:6379")

	cfg := &Config{}
	overrideEmptyConfig(cfg)

	assert.Equal(t, "https://env.learnhub.example.com", cfg.Service.BaseURL)
	assert.Equal(t, "env-subject", cfg.Service.SubjectID)
	assert.Equal(t, "envhost:6379", cfg.Cache.Redis.Address)

	// Explicit values win over the environment.
	cfg.Service.BaseURL = "https://explicit.learnhub.example.com"
	overrideEmptyConfig(cfg)
	assert.Equal(t, "https://explicit.learnhub.example.com", cfg.Service.BaseURL)
}
