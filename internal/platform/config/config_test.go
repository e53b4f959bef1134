package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MemoryDefaults(t *testing.T) {
	viper.Reset()
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "@every 1h", cfg.Scheduler.CronSpec)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.RuleTimeout)
	assert.Equal(t, 4, cfg.Scheduler.MaxWorkers)
	assert.Equal(t, time.UTC, cfg.Scheduler.Location)
}

func TestLoadConfig_SchedulerOverrides(t *testing.T) {
	viper.Reset()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SCHEDULER_CRON_SPEC", "5 0 * * *")
	t.Setenv("SCHEDULER_TIMEZONE", "Europe/Berlin")
	t.Setenv("SCHEDULER_RULE_TIMEOUT", "nonsense")
	t.Setenv("SCHEDULER_MAX_WORKERS", "8")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5 0 * * *", cfg.Scheduler.CronSpec)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location.String())
	assert.Equal(t, 30*time.Second, cfg.Scheduler.RuleTimeout, "invalid durations fall back to the default")
	assert.Equal(t, 8, cfg.Scheduler.MaxWorkers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "sqlite"}},
		{"bad timezone", map[string]string{"STORE_DRIVER": "memory", "SCHEDULER_TIMEZONE": "Mars/Olympus"}},
		{"production without secret", map[string]string{"STORE_DRIVER": "memory", "IS_PRODUCTION": "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Setenv("PGSQL_URL", "")
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
