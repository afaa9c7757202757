package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, "xlink", cfg.App.Name)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, CacheMemory, cfg.Cache.Driver)
	assert.Equal(t, 5*time.Second, cfg.Send.Timeout)
	assert.Equal(t, 100, cfg.Send.RateLimit)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, 30, cfg.Privacy.RetentionDays)
	assert.True(t, cfg.Privacy.AnonymizeIDs)
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("XLINK_SEND_TIMEOUT", "750ms")
	t.Setenv("XLINK_RATE_LIMIT", "10")
	t.Setenv("XLINK_STORAGE", "Badger")
	t.Setenv("XLINK_DISCOVERY", "true")

	cfg := New()

	assert.Equal(t, 750*time.Millisecond, cfg.Send.Timeout)
	assert.Equal(t, 10, cfg.Send.RateLimit)
	assert.Equal(t, StorageBadger, cfg.Storage.Driver)
	assert.True(t, cfg.Discovery.Enabled)
}

func TestNewInvalidValuesFallBack(t *testing.T) {
	t.Setenv("XLINK_SEND_TIMEOUT", "soon")
	t.Setenv("MESSAGE_BATCH_SIZE", "many")

	cfg := New()

	assert.Equal(t, 5*time.Second, cfg.Send.Timeout)
	assert.Equal(t, 100, cfg.Worker.BatchSize)
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xlink.yaml")
	body := "xlink_device_name: kitchen\nxlink_rate_limit: 42\napi_port: \"9090\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := FromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "kitchen", cfg.Device.Name)
	assert.Equal(t, 42, cfg.Send.RateLimit)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
}

func TestFromFileMissing(t *testing.T) {
	_, err := FromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := New()
	assert.Contains(t, cfg.PostgresDSN(), "dbname=db_xlink")
	assert.Contains(t, cfg.PostgresDSN(), "sslmode=disable")
}
