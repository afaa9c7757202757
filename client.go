package xlink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Kirky-X/xlink/internal/audit"
	memcache "github.com/Kirky-X/xlink/internal/cache/memory"
	"github.com/Kirky-X/xlink/internal/capability"
	"github.com/Kirky-X/xlink/internal/channel/memory"
	"github.com/Kirky-X/xlink/internal/crypto"
	"github.com/Kirky-X/xlink/internal/discovery"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/heartbeat"
	"github.com/Kirky-X/xlink/internal/inbound"
	"github.com/Kirky-X/xlink/internal/logger"
	"github.com/Kirky-X/xlink/internal/metrics"
	"github.com/Kirky-X/xlink/internal/privacy"
	"github.com/Kirky-X/xlink/internal/ratelimit"
	memrepo "github.com/Kirky-X/xlink/internal/repository/memory"
	"github.com/Kirky-X/xlink/internal/routing"
	"github.com/Kirky-X/xlink/internal/scheduler"
	"github.com/Kirky-X/xlink/internal/service"
)

// recoverTimeout bounds the redelivery of messages left pending by an
// earlier run.
const recoverTimeout = 30 * time.Second

// Client is a live messaging session. It is safe for concurrent use.
// Methods called on a nil *Client return ErrInvalidHandle.
type Client struct {
	self device.ID
	log  zerolog.Logger

	caps      *capability.Manager
	router    *routing.Router
	metrics   *metrics.Metrics
	repo      Repository
	cache     Cache
	channels  []Channel
	messages  service.MessageService
	groups    service.GroupService
	inbound   *inbound.Handler
	heartbeat *heartbeat.Manager
	scheduler scheduler.SchedulerService
	discovery *discovery.Service
	crypto    *crypto.Engine
	audit     *audit.Log
	// retry is whether the scheduler was asked to run.
	retry bool

	cancel context.CancelFunc

	// Sends hold mu shared; Close takes it exclusively.
	mu     sync.RWMutex
	closed bool
}

// Init creates a client with default settings on the process-wide memory
// bus.
func Init() (*Client, error) {
	return New()
}

// New creates a live client. It takes ownership of the given channels,
// repository and cache: Close releases them, and so does a failing New.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.Default()
	if o.log != nil {
		log = *o.log
	}

	local := device.Capabilities{Type: device.TypeServer, Name: "xlink"}
	if o.caps != nil {
		local = *o.caps
	}
	switch {
	case o.id != nil:
		local.ID = *o.id
	case o.caps == nil:
		local.ID = device.NewID()
	}

	channels := slices.Clone(o.channels)
	if o.bus != nil {
		channels = append(channels, o.bus.Attach(local.ID))
	} else if len(channels) == 0 {
		channels = append(channels, memory.Default().Attach(local.ID))
	}
	for _, ch := range channels {
		if !local.Supports(ch.Type()) {
			local.Channels = append(local.Channels, ch.Type())
		}
	}

	fail := func(err error) (*Client, error) {
		_ = closeAll(channels)
		if o.repo != nil {
			_ = o.repo.Close()
		}
		if o.cache != nil {
			_ = o.cache.Close()
		}
		return nil, err
	}

	anon := privacy.Disabled()
	if o.anonKey != nil {
		a, err := privacy.New(true, *o.anonKey)
		if err != nil {
			return fail(err)
		}
		anon = a
	}

	var (
		engine *crypto.Engine
		err    error
	)
	if o.cryptoState != nil {
		engine, err = crypto.Restore(o.cryptoState)
	} else {
		engine, err = crypto.New()
	}
	if err != nil {
		return fail(fmt.Errorf("crypto engine: %w", err))
	}

	c := &Client{
		self:     local.ID,
		log:      log.With().Str("device", anon.Device(local.ID)).Logger(),
		caps:     capability.NewManager(local, 0),
		metrics:  metrics.New(),
		repo:     o.repo,
		cache:    o.cache,
		channels: channels,
		crypto:   engine,
	}
	c.audit = audit.New(audit.DefaultCapacity, logger.Component(c.log, "audit"))
	if c.repo == nil {
		c.repo = memrepo.NewRepository()
	}
	if c.cache == nil {
		c.cache = memcache.New()
	}

	c.router = routing.New(c.caps, logger.Component(c.log, "router"))
	for _, ch := range channels {
		c.router.Register(ch)
	}

	var sendLimit, recvLimit *ratelimit.Limiter[device.ID]
	if o.rateLimit > 0 {
		sendLimit = ratelimit.New[device.ID](o.rateLimit)
		recvLimit = ratelimit.New[device.ID](o.rateLimit)
	}

	deps := service.Deps{
		Self:    c.self,
		Repo:    c.repo,
		Router:  c.router,
		Caps:    c.caps,
		Cache:   c.cache,
		Limiter: sendLimit,
		Metrics: c.metrics,
		Anon:    anon,
		Crypto:  c.crypto,
		Log:     logger.Component(c.log, "messages"),
	}
	c.messages = service.NewMessageService(deps, o.delivery)
	deps.Log = logger.Component(c.log, "groups")
	c.groups = service.NewGroupService(deps, c.messages, o.workers)

	c.inbound = inbound.New(inbound.Config{
		Self:      c.self,
		Messages:  c.messages,
		Groups:    c.groups,
		Caps:      c.caps,
		Cache:     c.cache,
		Limiter:   recvLimit,
		Metrics:   c.metrics,
		Anon:      anon,
		Crypto:    c.crypto,
		Log:       logger.Component(c.log, "inbound"),
		QueueSize: o.queueSize,
	})
	c.heartbeat = heartbeat.New(heartbeat.Config{
		Self:    c.self,
		Caps:    c.caps,
		Router:  c.router,
		Metrics: c.metrics,
		Anon:    anon,
		Log:     logger.Component(c.log, "heartbeat"),
	})
	c.inbound.SetPongObserver(c.heartbeat)

	c.scheduler = scheduler.NewSchedulerService(c.messages, scheduler.Options{
		Interval:     o.retry,
		BatchTimeout: o.retryMax,
		Cleaner:      c.messages,
		Log:          logger.Component(c.log, "scheduler"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	for _, ch := range channels {
		if err := ch.Start(ctx, c.inbound.For(ch.Type())); err != nil {
			c.shutdown()
			return nil, fmt.Errorf("start %s channel: %w", ch.Type(), err)
		}
	}

	rctx, rcancel := context.WithTimeout(ctx, recoverTimeout)
	if err := c.messages.Recover(rctx); err != nil {
		c.log.Warn().Err(err).Msg("pending recovery incomplete")
	}
	rcancel()

	if o.heartbeat {
		c.heartbeat.Start(ctx)
	}
	if o.retry > 0 {
		if err := c.scheduler.Start(); err != nil {
			c.shutdown()
			return nil, fmt.Errorf("start retry scheduler: %w", err)
		}
		c.retry = true
	}
	if o.discovery {
		c.discovery = discovery.New(discovery.Config{
			Local: c.caps.Local(),
			Port:  o.discPort,
			Caps:  c.caps,
			Anon:  anon,
			Log:   logger.Component(c.log, "discovery"),
		})
		if err := c.discovery.Start(ctx); err != nil {
			c.shutdown()
			return nil, err
		}
	}

	c.audit.Record(audit.ActionStarted, fmt.Sprintf("channels=%d key=%s", len(channels), c.crypto.PublicKey().Fingerprint()))
	c.log.Info().Int("channels", len(channels)).Msg("xlink client ready")
	return c, nil
}

func closeAll(channels []Channel) error {
	var errs []error
	for _, ch := range channels {
		if err := ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s channel: %w", ch.Type(), err))
		}
	}
	return errors.Join(errs...)
}

// shutdown stops everything New started, in reverse order.
func (c *Client) shutdown() error {
	var errs []error
	if c.discovery != nil {
		c.discovery.Stop()
	}
	c.heartbeat.Stop()
	if err := c.scheduler.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close scheduler: %w", err))
	}
	c.cancel()
	if err := closeAll(c.channels); err != nil {
		errs = append(errs, err)
	}
	c.inbound.Close()
	if err := c.repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close repository: %w", err))
	}
	if err := c.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	return errors.Join(errs...)
}

// Close releases every resource held by the client. It waits for sends in
// flight. A second Close returns nil.
func (c *Client) Close() error {
	if c == nil {
		return ErrInvalidHandle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	err := c.shutdown()
	c.audit.Record(audit.ActionClosed, "")
	c.crypto.Clear()
	c.log.Info().Msg("xlink client closed")
	return err
}

// acquire guards every operation against Close. Callers must release.
func (c *Client) acquire() error {
	if c == nil {
		return ErrInvalidHandle
	}
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

func (c *Client) release() { c.mu.RUnlock() }

// DeviceID returns the local device id.
func (c *Client) DeviceID() DeviceID {
	if c == nil {
		return DeviceID{}
	}
	return c.self
}

// SendText sends text to a device with normal priority.
func (c *Client) SendText(ctx context.Context, to DeviceID, text string) error {
	_, err := c.Send(ctx, to, text, PriorityNormal)
	return err
}

// Send sends text to a device. It returns the message id even when the
// transmission failed and the message was kept for redelivery.
func (c *Client) Send(ctx context.Context, to DeviceID, text string, priority Priority) (uuid.UUID, error) {
	if err := c.acquire(); err != nil {
		return uuid.Nil, err
	}
	defer c.release()

	m, err := c.messages.Send(ctx, to, text, priority)
	if m == nil {
		return uuid.Nil, err
	}
	return m.ID, err
}

// BroadcastText sends text to every other member of a group.
func (c *Client) BroadcastText(ctx context.Context, gid GroupID, text string) error {
	_, err := c.Broadcast(ctx, gid, text, StrategyDirect, PriorityNormal)
	return err
}

// Broadcast sends text to every other member of a group. The result lists
// per-member outcomes; it is also returned alongside ErrBroadcastFailed.
func (c *Client) Broadcast(ctx context.Context, gid GroupID, text string, strategy Strategy, priority Priority) (*BroadcastResult, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()
	return c.groups.Broadcast(ctx, gid, text, strategy, priority)
}

// BroadcastResult returns the outcome of an earlier broadcast.
func (c *Client) BroadcastResult(id uuid.UUID) (*BroadcastResult, bool) {
	if c.acquire() != nil {
		return nil, false
	}
	defer c.release()
	return c.groups.Result(id)
}

// CreateGroup creates a group owned by the local device and invites members.
func (c *Client) CreateGroup(ctx context.Context, name string, members ...DeviceID) (*Group, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()
	g, err := c.groups.Create(ctx, name, members)
	if err != nil {
		return nil, err
	}
	c.audit.Record(audit.ActionGroup, fmt.Sprintf("created group=%s members=%d", g.ID, len(g.Members)))
	return g, nil
}

func (c *Client) AddMember(ctx context.Context, gid GroupID, member DeviceID) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	if err := c.groups.AddMember(ctx, gid, member); err != nil {
		return err
	}
	c.audit.Record(audit.ActionGroup, fmt.Sprintf("added member=%s group=%s", member, gid))
	return nil
}

func (c *Client) RemoveMember(ctx context.Context, gid GroupID, member DeviceID) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	if err := c.groups.RemoveMember(ctx, gid, member); err != nil {
		return err
	}
	c.audit.Record(audit.ActionGroup, fmt.Sprintf("removed member=%s group=%s", member, gid))
	return nil
}

// LeaveGroup forgets a group locally.
func (c *Client) LeaveGroup(ctx context.Context, gid GroupID) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	if err := c.groups.Leave(ctx, gid); err != nil {
		return err
	}
	c.audit.Record(audit.ActionGroup, "left group="+gid.String())
	return nil
}

// Group returns a copy of a known group.
func (c *Client) Group(gid GroupID) (*Group, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()
	return c.groups.Get(gid)
}

// Groups lists every known group.
func (c *Client) Groups() []*Group {
	if c.acquire() != nil {
		return nil
	}
	defer c.release()
	return c.groups.List()
}

// Receive blocks until a message arrives, ctx is done or the client closes.
func (c *Client) Receive(ctx context.Context) (*Message, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	// Not held while blocking, so Close can proceed.
	c.release()

	m, err := c.inbound.Receive(ctx)
	if errors.Is(err, inbound.ErrClosed) {
		return nil, ErrClosed
	}
	return m, err
}

// Messages exposes the receive queue. It is closed by Close.
func (c *Client) Messages() <-chan *Message {
	if c == nil {
		return nil
	}
	return c.inbound.Messages()
}

// SentMessages pages through delivered messages, newest first.
func (c *Client) SentMessages(ctx context.Context, page, limit int) ([]*Message, int64, error) {
	if err := c.acquire(); err != nil {
		return nil, 0, err
	}
	defer c.release()
	return c.messages.GetSent(ctx, page, limit)
}

// RetryPending runs one redelivery pass over pending messages now.
func (c *Client) RetryPending(ctx context.Context) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	return c.messages.ProcessBatch(ctx)
}

// StartRetry resumes the background redelivery loop.
func (c *Client) StartRetry() error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	return c.scheduler.Start()
}

// StopRetry pauses the background redelivery loop, waiting for a running
// pass to finish.
func (c *Client) StopRetry() error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	return c.scheduler.Stop()
}

func (c *Client) RetryRunning() bool {
	if c.acquire() != nil {
		return false
	}
	defer c.release()
	return c.scheduler.IsRunning()
}

// AddPeer records what a remote device advertised, e.g. from an out of band
// directory.
func (c *Client) AddPeer(caps Capabilities) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	c.caps.SetRemote(caps)
	return nil
}

// UpdatePower records the local battery level (nil when mains powered) and
// charging state. It shifts routing towards cheaper channels on battery.
func (c *Client) UpdatePower(battery *uint8, charging bool) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	c.caps.UpdateLocal(battery, charging)
	return nil
}

// Metrics returns a snapshot of the client counters.
func (c *Client) Metrics() MetricsReport {
	if c == nil {
		return MetricsReport{}
	}
	return c.metrics.Report()
}

// MetricsHandler serves the Prometheus exposition of this client.
func (c *Client) MetricsHandler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return c.metrics.Handler()
}

// TrafficStats returns the bytes sent per channel type.
func (c *Client) TrafficStats() map[ChannelType]uint64 {
	if c == nil {
		return nil
	}
	return c.router.TrafficStats()
}
