// Package inbound processes messages arriving on any channel: protocol
// traffic is answered here and user content is queued for the application.
package inbound

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kirky-X/xlink/internal/cache"
	"github.com/Kirky-X/xlink/internal/capability"
	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/crypto"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/metrics"
	"github.com/Kirky-X/xlink/internal/privacy"
	"github.com/Kirky-X/xlink/internal/ratelimit"
	"github.com/Kirky-X/xlink/internal/service"
)

const (
	// DefaultQueueSize is how many messages wait for the application.
	DefaultQueueSize = 100
	// seenTTL is how long a message id is remembered for de-duplication.
	seenTTL = 10 * time.Minute
)

var (
	// ErrRateLimited is returned to the transport when a sender floods us.
	ErrRateLimited = errors.New("sender rate limit exceeded")
	// ErrClosed is returned by Receive after Close.
	ErrClosed = errors.New("inbound queue closed")
	// ErrUnreadable is returned for sealed text that cannot be opened.
	ErrUnreadable = errors.New("sealed message cannot be opened")
)

// PongObserver is told about every pong so round trips can be measured.
// Pongs echo the ping timestamp and carry the ping id in AckFor.
type PongObserver interface {
	ObservePong(pong *message.Message)
}

type Config struct {
	Self      device.ID
	Messages  service.MessageService
	Groups    service.GroupService
	Caps      *capability.Manager
	Cache     cache.Cache
	Limiter   *ratelimit.Limiter[device.ID]
	Metrics   *metrics.Metrics
	Anon      *privacy.Anonymizer
	Crypto    *crypto.Engine
	Log       zerolog.Logger
	QueueSize int
}

// Handler is installed on every channel.
type Handler struct {
	cfg Config

	pmu  sync.RWMutex
	pong PongObserver

	mu     sync.RWMutex
	closed bool
	queue  chan *message.Message
}

func New(cfg Config) *Handler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.Anon == nil {
		cfg.Anon = privacy.Disabled()
	}
	return &Handler{cfg: cfg, queue: make(chan *message.Message, cfg.QueueSize)}
}

// SetPongObserver routes pongs to o instead of recording them directly.
func (h *Handler) SetPongObserver(o PongObserver) {
	h.pmu.Lock()
	h.pong = o
	h.pmu.Unlock()
}

// For returns the handler a channel of type ct should be started with.
func (h *Handler) For(ct device.ChannelType) channel.Handler {
	return channel.HandlerFunc(func(ctx context.Context, m *message.Message) error {
		if m.Channel == "" {
			m.Channel = ct
		}
		return h.HandleMessage(ctx, m)
	})
}

func (h *Handler) HandleMessage(ctx context.Context, m *message.Message) error {
	log := h.cfg.Log.With().
		Str("id", m.ID.String()).
		Str("from", h.cfg.Anon.Device(m.Sender)).
		Str("kind", string(m.Payload.Kind)).
		Logger()

	if m.Recipient != h.cfg.Self {
		log.Debug().Str("to", h.cfg.Anon.Device(m.Recipient)).Msg("message for another device ignored")
		return nil
	}
	if h.cfg.Limiter != nil && !h.cfg.Limiter.Allow(m.Sender) {
		h.drop()
		log.Warn().Msg("sender rate limited")
		return ErrRateLimited
	}
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.MessageReceived(m.Payload.Size())
	}
	if err := h.open(m); err != nil {
		h.drop()
		log.Warn().Err(err).Msg("sealed message dropped")
		return err
	}
	if h.duplicate(ctx, m) {
		log.Debug().Msg("duplicate message ignored")
		return nil
	}

	switch m.Payload.Kind {
	case message.KindPing:
		pong := message.NewControl(h.cfg.Self, m.Sender, message.Payload{
			Kind:      message.KindPong,
			Timestamp: m.Payload.Timestamp,
			AckFor:    m.ID,
		}, m.Priority)
		if err := h.cfg.Messages.Deliver(ctx, pong); err != nil {
			log.Debug().Err(err).Msg("pong not sent")
		}
		return nil

	case message.KindPong:
		h.observePong(m)
		return nil

	case message.KindAck:
		if h.cfg.Groups != nil && !h.cfg.Groups.HandleAck(m.Payload.AckFor, m.Sender) {
			log.Debug().Str("ack_for", m.Payload.AckFor.String()).Msg("ack for unknown broadcast leg")
		}
		return nil

	case message.KindGroupInvite:
		if h.cfg.Groups == nil {
			return nil
		}
		if err := h.cfg.Groups.HandleInvite(ctx, m); err != nil {
			log.Warn().Err(err).Msg("invite rejected")
			return fmt.Errorf("handle invite: %w", err)
		}
		return nil
	}

	if m.GroupID != nil && h.cfg.Groups != nil {
		h.cfg.Groups.Touch(*m.GroupID, m.Sender)
	}
	if m.RequireAck {
		h.ack(ctx, m, log)
	}
	h.enqueue(m, log)
	return nil
}

func (h *Handler) open(m *message.Message) error {
	if len(m.Payload.Sealed) == 0 {
		return nil
	}
	if h.cfg.Crypto == nil {
		return fmt.Errorf("%w: no crypto engine", ErrUnreadable)
	}
	if err := h.cfg.Crypto.OpenMessage(m); err != nil {
		return fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return nil
}

func (h *Handler) duplicate(ctx context.Context, m *message.Message) bool {
	if h.cfg.Cache == nil {
		return false
	}
	fresh, err := h.cfg.Cache.SetNX(ctx, cache.SeenMessages.Key(m.ID.String()), "1", seenTTL)
	if err != nil {
		h.cfg.Log.Warn().Err(err).Msg("dedup cache unavailable")
		return false
	}
	return !fresh
}

func (h *Handler) observePong(m *message.Message) {
	h.pmu.RLock()
	o := h.pong
	h.pmu.RUnlock()

	if o != nil {
		o.ObservePong(m)
		return
	}
	if h.cfg.Caps != nil && m.Payload.Timestamp > 0 {
		rtt := time.Since(time.UnixMilli(m.Payload.Timestamp))
		h.cfg.Caps.RecordHeartbeat(m.Sender, m.Channel, rtt)
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.HeartbeatRTT(rtt)
		}
	}
}

func (h *Handler) ack(ctx context.Context, m *message.Message, log zerolog.Logger) {
	ack := message.NewControl(h.cfg.Self, m.Sender, message.Payload{Kind: message.KindAck, AckFor: m.ID}, m.Priority)
	if m.GroupID != nil {
		ack.InGroup(*m.GroupID)
	}
	if err := h.cfg.Messages.Deliver(ctx, ack); err != nil {
		log.Debug().Err(err).Msg("ack not sent")
	}
}

func (h *Handler) enqueue(m *message.Message, log zerolog.Logger) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	select {
	case h.queue <- m:
	default:
		h.drop()
		log.Warn().Int("capacity", cap(h.queue)).Msg("receive queue full, message dropped")
	}
}

func (h *Handler) drop() {
	if h.cfg.Metrics != nil {
		h.cfg.Metrics.InboundDropped()
	}
}

// Messages exposes the receive queue. It is closed by Close.
func (h *Handler) Messages() <-chan *message.Message { return h.queue }

// Receive blocks until a message arrives, ctx is done or the handler is closed.
func (h *Handler) Receive(ctx context.Context) (*message.Message, error) {
	select {
	case m, ok := <-h.queue:
		if !ok {
			return nil, ErrClosed
		}
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops queueing. Messages already queued can still be read.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.queue)
}

var _ channel.Handler = (*Handler)(nil)
