// Package app assembles an xlink client from configuration. It is shared by
// the gateway daemon and the C library.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kirky-X/xlink"
	memcache "github.com/Kirky-X/xlink/internal/cache/memory"
	"github.com/Kirky-X/xlink/internal/cache/redis"
	membus "github.com/Kirky-X/xlink/internal/channel/memory"
	"github.com/Kirky-X/xlink/internal/channel/natsbus"
	"github.com/Kirky-X/xlink/internal/channel/webhook"
	"github.com/Kirky-X/xlink/internal/config"
	"github.com/Kirky-X/xlink/internal/db/gormdb"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/logger"
	badgerrepo "github.com/Kirky-X/xlink/internal/repository/badger"
	messagegorm "github.com/Kirky-X/xlink/internal/repository/gorm/message"
	memrepo "github.com/Kirky-X/xlink/internal/repository/memory"
)

var (
	// ErrUnknownStorage is returned for a storage driver outside memory,
	// badger and postgres.
	ErrUnknownStorage = errors.New("unknown storage driver")
	// ErrUnknownCache is returned for a cache driver outside memory and redis.
	ErrUnknownCache = errors.New("unknown cache driver")
	// ErrInvalidPort is returned when the discovery port does not fit uint16.
	ErrInvalidPort = errors.New("invalid discovery port")
)

// App is a running client plus the pieces the gateway needs direct access
// to.
type App struct {
	Client *xlink.Client
	// Webhook is the relay channel, nil when no relay is configured. The
	// gateway feeds inbound relay traffic into it.
	Webhook *webhook.Channel
	Log     zerolog.Logger
}

// Build opens every backend named by cfg and starts a client on top of
// them. Extra options are applied after the configured ones.
func Build(ctx context.Context, cfg *config.Config, extra ...xlink.Option) (*App, error) {
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty).
		With().Str("app", cfg.App.Name).Str("env", cfg.App.Env).Logger()

	id := device.NewID()
	if cfg.Device.ID != "" {
		parsed, err := device.ParseID(cfg.Device.ID)
		if err != nil {
			return nil, fmt.Errorf("device id: %w", err)
		}
		id = parsed
	}

	opts := []xlink.Option{
		xlink.WithDeviceID(id),
		// Same-process peers stay reachable next to any network channel.
		xlink.WithBus(membus.Default()),
		xlink.WithCapabilities(xlink.Capabilities{
			ID:                id,
			Type:              device.TypeServer,
			Name:              cfg.Device.Name,
			DataCostSensitive: cfg.Device.DataCostSensitive,
		}),
		xlink.WithLogger(log),
		xlink.WithDeliverySettings(xlink.DeliverySettings{
			BatchSize:         cfg.Worker.BatchSize,
			MaxWorkers:        cfg.Worker.MaxWorkers,
			PerMessageTimeout: cfg.Worker.PerMessageTimeout,
			SendTimeout:       cfg.Send.Timeout,
			MaxAttempts:       cfg.Worker.MaxAttempts,
			Retention:         time.Duration(cfg.Privacy.RetentionDays) * 24 * time.Hour,
		}),
		xlink.WithRateLimit(cfg.Send.RateLimit),
		xlink.WithHeartbeat(cfg.Heartbeat.Enabled),
		xlink.WithRetryInterval(cfg.Scheduler.Interval),
		xlink.WithRetryTimeout(cfg.Scheduler.BatchTimeout),
		xlink.WithBroadcastWorkers(cfg.Broadcast.Workers),
	}
	if cfg.Privacy.AnonymizeIDs {
		opts = append(opts, xlink.WithAnonymizer(cfg.Privacy.Key))
	}
	if cfg.Discovery.Enabled {
		if cfg.Discovery.Port <= 0 || cfg.Discovery.Port > 65535 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Discovery.Port)
		}
		opts = append(opts, xlink.WithDiscovery(uint16(cfg.Discovery.Port)))
	}

	// Everything opened below is handed to xlink.New, which owns it from
	// then on. Until then it is closed here.
	var opened []func() error
	cleanup := func() {
		for i := len(opened) - 1; i >= 0; i-- {
			_ = opened[i]()
		}
	}

	repo, err := openRepository(cfg, logger.Component(log, "storage"))
	if err != nil {
		return nil, err
	}
	opened = append(opened, repo.Close)
	opts = append(opts, xlink.WithRepository(repo))

	cache, err := openCache(ctx, cfg, id)
	if err != nil {
		cleanup()
		return nil, err
	}
	opened = append(opened, cache.Close)
	opts = append(opts, xlink.WithCache(cache))

	a := &App{Log: log}
	if cfg.Webhook.URL != "" {
		a.Webhook = webhook.New(cfg.Webhook.URL, cfg.Webhook.Key)
		opened = append(opened, a.Webhook.Close)
		opts = append(opts, xlink.WithChannels(a.Webhook))
	}
	if cfg.NATS.URL != "" {
		nc, err := natsbus.Connect(cfg.NATS.URL, id, logger.Component(log, "nats"))
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		opts = append(opts, xlink.WithChannels(nc))
	}

	client, err := xlink.New(append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	a.Client = client

	log.Info().
		Str("device", id.String()).
		Str("storage", cfg.Storage.Driver).
		Str("cache", cfg.Cache.Driver).
		Bool("relay", a.Webhook != nil).
		Bool("nats", cfg.NATS.URL != "").
		Msg("xlink app built")
	return a, nil
}

// Close releases the client and every backend it owns.
func (a *App) Close() error {
	if a == nil || a.Client == nil {
		return nil
	}
	return a.Client.Close()
}

func openRepository(cfg *config.Config, log zerolog.Logger) (xlink.Repository, error) {
	switch cfg.Storage.Driver {
	case "", config.StorageMemory:
		return memrepo.NewRepository(), nil
	case config.StorageBadger:
		r, err := badgerrepo.Open(cfg.Storage.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("open badger store: %w", err)
		}
		return r, nil
	case config.StoragePostgres:
		conn, err := gormdb.New(cfg.PostgresDSN(), log)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		r := messagegorm.NewRepository(conn)
		if err := r.AutoMigrate(); err != nil {
			_ = r.Close()
			return nil, fmt.Errorf("migrate messages: %w", err)
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, cfg.Storage.Driver)
}

func openCache(ctx context.Context, cfg *config.Config, id device.ID) (xlink.Cache, error) {
	switch cfg.Cache.Driver {
	case "", config.CacheMemory:
		return memcache.New(), nil
	case config.CacheRedis:
		c := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.App.Name+":"+id.String())
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCache, cfg.Cache.Driver)
}
