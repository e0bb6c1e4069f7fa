package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 1000, cfg.Rebuild.PageSize)
	assert.Equal(t, 2*time.Second, cfg.Rebuild.Stagger)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, "stock:jobs", cfg.Redis.QueueKey)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_VariablesDeEntorno(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("STORE_SEED_FILE", "seed.json")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("WORKER_POLL_INTERVAL_MS", "250")
	t.Setenv("WORKER_ENABLED", "false")
	t.Setenv("REBUILD_STAGGER_MS", "0")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, "seed.json", cfg.Store.SeedFile)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.PollInterval)
	assert.False(t, cfg.Worker.Enabled)
	assert.Zero(t, cfg.Rebuild.Stagger)
	assert.Equal(t, 9090, cfg.HTTP.Port)
}

func TestLoad_EnteroInvalidoUsaDefecto(t *testing.T) {
	t.Setenv("DB_PORT", "no-es-numero")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 5432, cfg.DB.Port)
}

func TestLoad_DriverInvalido(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_ConcurrenciaInvalida(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "0")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDBConfig_ConnectionString(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", DBName: "stock", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/stock?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgresql://x@y/z"
	assert.Equal(t, "postgresql://x@y/z", c.ConnectionString())
}
