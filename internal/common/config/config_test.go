package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.Equal(t, []string{"tg", "tw", "yt"}, cfg.Tasks.Kinds)
	assert.Equal(t, 15*time.Second, cfg.Tasks.VerificationDelay)
	assert.Equal(t, LedgerBackendRedis, cfg.Ledger.Backend)
	assert.Equal(t, 3, cfg.Ledger.RetryAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.IdleTTL)
	assert.Empty(t, cfg.Events.KafkaBrokers)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("TASK_KINDS", "tg,yt")
	t.Setenv("TASK_VERIFICATION_DELAY", "2s")
	t.Setenv("LEDGER_BACKEND", "memory")
	t.Setenv("ADMIN_IDS", "1,2")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.RedisAddr())
	assert.Equal(t, []string{"tg", "yt"}, cfg.Tasks.Kinds)
	assert.Equal(t, 2*time.Second, cfg.Tasks.VerificationDelay)
	assert.Equal(t, LedgerBackendMemory, cfg.Ledger.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.True(t, cfg.IsAdmin("2"))
	assert.False(t, cfg.IsAdmin("3"))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "duplicate kind", env: map[string]string{"TASK_KINDS": "tg,tg"}},
		{name: "empty kind", env: map[string]string{"TASK_KINDS": "tg,,yt"}},
		{name: "zero delay", env: map[string]string{"TASK_VERIFICATION_DELAY": "0s"}},
		{name: "no retries", env: map[string]string{"LEDGER_RETRY_ATTEMPTS": "0"}},
		{name: "unknown backend", env: map[string]string{"LEDGER_BACKEND": "postgres"}},
		{name: "zero sweep interval", env: map[string]string{"SESSION_SWEEP_INTERVAL": "0s"}},
		{name: "no outbox attempts", env: map[string]string{"OUTBOX_MAX_ATTEMPTS": "0"}},
		{name: "bad port", env: map[string]string{"PORT": "http"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestMustLoad_Panics(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "sqlite")
	assert.Panics(t, func() { MustLoad() })
}
