package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "mongo", cfg.OrdersBackend)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, uint64(20), cfg.Mongo.MaxPoolSize)
}

func TestLoad_FromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("ORDERS_BACKEND", "postgres")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PAYMENT_PROXY_URL", "https://pay.example.com")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("MONGO_MAX_POOL_SIZE", "64")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "postgres", cfg.OrdersBackend)
	assert.Equal(t, 6543, cfg.Postgres.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "https://pay.example.com", cfg.Payment.ProxyURL)
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL)
	assert.Equal(t, uint64(64), cfg.Mongo.MaxPoolSize)
}

func TestLoad_RejectsUnknownBackends(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("STORAGE_BACKEND", "etcd")
	_, err := Load()
	assert.ErrorContains(t, err, "storage backend")

	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("ORDERS_BACKEND", "mysql")
	_, err = Load()
	assert.ErrorContains(t, err, "orders backend")
}
