package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink"
	"github.com/Kirky-X/xlink/internal/config"
	"github.com/Kirky-X/xlink/internal/domain/device"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Log.Level = "disabled"
	cfg.Storage.Driver = config.StorageMemory
	cfg.Cache.Driver = config.CacheMemory
	cfg.Device.ID = ""
	cfg.Webhook.URL = ""
	cfg.NATS.URL = ""
	cfg.Heartbeat.Enabled = false
	cfg.Discovery.Enabled = false
	cfg.Scheduler.Interval = 0
	return cfg
}

func build(t *testing.T, cfg *config.Config, extra ...xlink.Option) *App {
	t.Helper()
	a, err := Build(context.Background(), cfg, extra...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestBuildDefaults(t *testing.T) {
	a := build(t, testConfig(t), xlink.WithBus(xlink.NewBus()))

	require.NotNil(t, a.Client)
	assert.Nil(t, a.Webhook)
	assert.False(t, a.Client.DeviceID().IsZero())
	assert.False(t, a.Client.RetryRunning())
}

func TestBuildFixedDeviceID(t *testing.T) {
	cfg := testConfig(t)
	cfg.Device.ID = "01020304-0506-0708-090a-0b0c0d0e0f10"

	a := build(t, cfg, xlink.WithBus(xlink.NewBus()))
	want := device.ID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	assert.Equal(t, want, a.Client.DeviceID())
}

func TestBuildRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{"device id", func(c *config.Config) { c.Device.ID = "not-an-id" }, device.ErrInvalidID},
		{"storage", func(c *config.Config) { c.Storage.Driver = "sqlite" }, ErrUnknownStorage},
		{"cache", func(c *config.Config) { c.Cache.Driver = "memcached" }, ErrUnknownCache},
		{"port", func(c *config.Config) {
			c.Discovery.Enabled = true
			c.Discovery.Port = 70000
		}, ErrInvalidPort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := Build(context.Background(), cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuildUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Driver = config.CacheRedis
	cfg.Redis.Addr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Build(ctx, cfg)
	assert.Error(t, err)
}

func TestBuildBadgerStorage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = config.StorageBadger
	cfg.Storage.BadgerDir = t.TempDir()
	bus := xlink.NewBus()

	a := build(t, cfg, xlink.WithBus(bus))
	peer := build(t, testConfig(t), xlink.WithBus(bus))

	ctx := context.Background()
	require.NoError(t, a.Client.SendText(ctx, peer.Client.DeviceID(), "stored"))

	sent, total, err := a.Client.SentMessages(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, sent, 1)
	assert.Equal(t, "stored", sent[0].Payload.Text)
}

func TestBuildWithRelay(t *testing.T) {
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"accepted","messageId":"relay-1"}`))
	}))
	defer relay.Close()

	cfg := testConfig(t)
	cfg.Webhook.URL = relay.URL
	cfg.Webhook.Key = "secret"

	a := build(t, cfg)
	require.NotNil(t, a.Webhook)
	assert.NoError(t, a.Client.SendText(context.Background(), xlink.NewDeviceID(), "via relay"))
}

func TestBuildKeepsProcessBus(t *testing.T) {
	cfg := testConfig(t)
	cfg.Webhook.URL = "http://127.0.0.1:1/unused"

	a := build(t, cfg)
	require.NotNil(t, a.Webhook)

	// A client without channels of its own joins the process-wide bus.
	peer, err := xlink.New(xlink.WithHeartbeat(false), xlink.WithRetryInterval(0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = peer.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, a.Client.SendText(ctx, peer.DeviceID(), "same process"))

	m, err := peer.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "same process", m.Payload.Text)
	assert.NotZero(t, a.Client.TrafficStats()[device.ChannelMemory])
}

func TestCloseNil(t *testing.T) {
	var a *App
	assert.NoError(t, a.Close())
}
