package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/leasing/internal/infrastructure/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "leasingd", cfg.ServiceName)
	assert.Equal(t, ":9095", cfg.GRPCAddr())
	assert.Equal(t, ":8095", cfg.HTTPAddr())
	assert.Equal(t, config.StorePostgres, cfg.Engine.Store)
	assert.Equal(t, "@every 1h", cfg.Engine.SweepSchedule)
	assert.Equal(t, 5*time.Second, cfg.DB.LockTimeout)
	assert.Equal(t, "leasing-events", cfg.Kafka.EventsTopic)

	assert.Error(t, cfg.Validate(), "postgres store without a password")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LEASING_DB_PASSWORD", "secret")
	t.Setenv("LEASING_DB_LOCK_TIMEOUT", "250ms")
	t.Setenv("LEASING_ENGINE_GRACE_PERIOD_DAYS", "3")
	t.Setenv("LEASING_ENGINE_STORE", "memory")
	t.Setenv("LEASING_GRPC_PORT", "7000")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.DB.Password)
	assert.Equal(t, 250*time.Millisecond, cfg.DB.LockTimeout)
	assert.Equal(t, 3, cfg.Engine.GracePeriodDays)
	assert.Equal(t, config.StoreMemory, cfg.Engine.Store)
	assert.Equal(t, ":7000", cfg.GRPCAddr())
	assert.NoError(t, cfg.Validate())

	pg := cfg.Postgres()
	assert.Equal(t, "secret", pg.Password)
	assert.Equal(t, 250*time.Millisecond, pg.LockTimeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leasing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  store: memory
  bulk_concurrency: 2
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  sasl_mechanism: SCRAM-SHA-512
  sasl_username: leasing
`), 0o600))
	t.Setenv("LEASING_CONFIG", path)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Engine.BulkConcurrency)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	kc := cfg.KafkaClient()
	assert.True(t, kc.SASLEnabled)
	assert.Equal(t, "leasingd", kc.ClientID)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Setenv("LEASING_ENGINE_STORE", "memory")
	base := func() config.Config {
		cfg, err := config.Load()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown store", func(c *config.Config) { c.Engine.Store = "redis" }},
		{"negative grace period", func(c *config.Config) { c.Engine.GracePeriodDays = -1 }},
		{"zero concurrency", func(c *config.Config) { c.Engine.BulkConcurrency = 0 }},
		{"zero retries", func(c *config.Config) { c.Engine.RetryMaxAttempts = 0 }},
		{"rate limit without burst", func(c *config.Config) { c.RateLimit.RPS = 10; c.RateLimit.Burst = 0 }},
		{"kafka without brokers", func(c *config.Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			require.NoError(t, cfg.Validate())
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leasing.env")
	require.NoError(t, os.WriteFile(path, []byte("LEASING_HTTP_PORT=8123\nLEASING_ENGINE_STORE=memory\n"), 0o600))
	t.Setenv("LEASING_ENV_FILE", path)
	// Registered so the values written by the env file are restored afterwards.
	t.Setenv("LEASING_HTTP_PORT", "")
	t.Setenv("LEASING_ENGINE_STORE", "")
	require.NoError(t, os.Unsetenv("LEASING_HTTP_PORT"))
	require.NoError(t, os.Unsetenv("LEASING_ENGINE_STORE"))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":8123", cfg.HTTPAddr())
	assert.Equal(t, config.StoreMemory, cfg.Engine.Store)
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	t.Setenv("LEASING_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	_, err := config.Load()
	assert.ErrorContains(t, err, "load env file")
}
