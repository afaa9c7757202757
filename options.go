package xlink

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Kirky-X/xlink/internal/cache"
	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/channel/memory"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/service"
)

type (
	Channel    = channel.Channel
	Bus        = memory.Bus
	Repository = message.Repository
	Cache      = cache.Cache

	// DeliverySettings tunes pending redelivery and per-send bounds.
	DeliverySettings = service.Settings
)

// NewBus returns an isolated in-process bus. Clients on different buses
// cannot reach each other.
func NewBus() *Bus { return memory.NewBus() }

const (
	DefaultSendTimeout   = 5 * time.Second
	DefaultRateLimit     = 100
	DefaultRetryInterval = 5 * time.Second
)

type options struct {
	id        *DeviceID
	caps      *Capabilities
	channels  []Channel
	bus       *Bus
	repo      Repository
	cache     Cache
	log       *zerolog.Logger
	delivery  DeliverySettings
	rateLimit int
	heartbeat bool
	retry     time.Duration
	retryMax  time.Duration
	discovery bool
	discPort  uint16
	anonKey   *string
	workers   int
	queueSize int

	cryptoState []byte
}

func defaultOptions() options {
	return options{
		rateLimit: DefaultRateLimit,
		heartbeat: true,
		retry:     DefaultRetryInterval,
		delivery:  DeliverySettings{SendTimeout: DefaultSendTimeout},
	}
}

// Option configures a Client built by New.
type Option func(*options)

// WithDeviceID fixes the local device id. A random one is used otherwise.
func WithDeviceID(id DeviceID) Option {
	return func(o *options) { o.id = &id }
}

// WithCapabilities describes the local device. Its ID is overridden by
// WithDeviceID when both are given.
func WithCapabilities(c Capabilities) Option {
	return func(o *options) { o.caps = &c }
}

// WithChannels adds transports. Without any channel and without WithBus the
// client attaches to the process-wide memory bus.
func WithChannels(chs ...Channel) Option {
	return func(o *options) { o.channels = append(o.channels, chs...) }
}

// WithBus attaches the client to b in addition to any other channel.
func WithBus(b *Bus) Option {
	return func(o *options) { o.bus = b }
}

func WithRepository(r Repository) Option {
	return func(o *options) { o.repo = r }
}

func WithCache(c Cache) Option {
	return func(o *options) { o.cache = c }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// WithSendTimeout bounds every single transmission attempt.
func WithSendTimeout(d time.Duration) Option {
	return func(o *options) { o.delivery.SendTimeout = d }
}

// WithDeliverySettings replaces the redelivery knobs. A zero SendTimeout
// keeps the current one.
func WithDeliverySettings(s DeliverySettings) Option {
	return func(o *options) {
		if s.SendTimeout <= 0 {
			s.SendTimeout = o.delivery.SendTimeout
		}
		o.delivery = s
	}
}

// WithRateLimit caps sends per second and inbound messages per sender per
// second. Zero disables limiting.
func WithRateLimit(perSecond int) Option {
	return func(o *options) { o.rateLimit = perSecond }
}

func WithHeartbeat(enabled bool) Option {
	return func(o *options) { o.heartbeat = enabled }
}

// WithRetryInterval sets how often pending messages are retried. Zero or
// less turns the background retry off; RetryPending still works.
func WithRetryInterval(d time.Duration) Option {
	return func(o *options) { o.retry = d }
}

// WithRetryTimeout bounds one background redelivery pass.
func WithRetryTimeout(d time.Duration) Option {
	return func(o *options) { o.retryMax = d }
}

// WithDiscovery advertises the device over mDNS on port and browses for
// peers.
func WithDiscovery(port uint16) Option {
	return func(o *options) {
		o.discovery = true
		o.discPort = port
	}
}

// WithAnonymizer replaces device ids in logs with keyed hashes. An empty
// key picks a random one for the lifetime of the client.
func WithAnonymizer(key string) Option {
	return func(o *options) { o.anonKey = &key }
}

// WithBroadcastWorkers bounds how many members a broadcast reaches at once.
func WithBroadcastWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithQueueSize sets how many received messages wait for Receive.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithCryptoState restores the device key pair and peer sessions from a
// blob written by Client.ExportState on another device.
func WithCryptoState(state []byte) Option {
	return func(o *options) { o.cryptoState = state }
}
