// Package natsbus carries messages over a NATS server. Every device listens
// on its own subject; payloads are CBOR frames.
package natsbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/wire"
)

// SubjectPrefix is prepended to the device id to form its inbox subject.
const SubjectPrefix = "xlink.device."

const flushTimeout = 5 * time.Second

// Subject returns the inbox subject of a device.
func Subject(id device.ID) string {
	return SubjectPrefix + id.String()
}

var _ channel.Channel = (*Channel)(nil)

type Channel struct {
	nc   *nats.Conn
	own  bool
	self device.ID
	log  zerolog.Logger

	mu     sync.Mutex
	sub    *nats.Subscription
	closed bool
}

// Connect dials url and keeps reconnecting forever.
func Connect(url string, self device.ID, log zerolog.Logger) (*Channel, error) {
	opts := []nats.Option{
		nats.Name("xlink-" + self.String()),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("reconnected to NATS")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	c := New(nc, self, log)
	c.own = true
	return c, nil
}

// New wraps an existing connection. The caller keeps ownership of nc.
func New(nc *nats.Conn, self device.ID, log zerolog.Logger) *Channel {
	return &Channel{nc: nc, self: self, log: log}
}

// Type is Lan: the broker is expected on the local network, next to the
// peers found by mDNS. The webhook relay covers the internet.
func (c *Channel) Type() device.ChannelType { return device.ChannelLan }

func (c *Channel) Send(ctx context.Context, m *message.Message) error {
	if c.isClosed() {
		return channel.ErrClosed
	}
	if !c.nc.IsConnected() {
		return fmt.Errorf("%w: nats %s", channel.ErrUnavailable, c.nc.Status())
	}

	data, err := wire.EncodeMessage(m)
	if err != nil {
		return err
	}
	if err := c.nc.Publish(Subject(m.Recipient), data); err != nil {
		return fmt.Errorf("%w: publish: %v", channel.ErrUnavailable, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := c.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (c *Channel) State(_ context.Context, _ device.ID) (device.ChannelState, error) {
	if c.isClosed() {
		return device.UnknownState(), channel.ErrClosed
	}
	if !c.nc.IsConnected() {
		return device.UnknownState(), nil
	}

	st := device.ChannelState{Available: true, Network: device.NetworkEthernet}
	if rtt, err := c.nc.RTT(); err == nil {
		st.RTTMillis = uint32(rtt / time.Millisecond)
	}
	return st, nil
}

func (c *Channel) Start(ctx context.Context, h channel.Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return channel.ErrClosed
	}

	sub, err := c.nc.Subscribe(Subject(c.self), func(msg *nats.Msg) {
		c.dispatch(ctx, h, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", Subject(c.self), err)
	}
	c.sub = sub
	return nil
}

func (c *Channel) dispatch(ctx context.Context, h channel.Handler, data []byte) {
	m, err := wire.DecodeMessage(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("dropping undecodable frame")
		return
	}
	if err := h.HandleMessage(ctx, m); err != nil {
		c.log.Debug().Err(err).Str("id", m.ID.String()).Msg("inbound handler failed")
	}
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if c.sub != nil {
		_ = c.sub.Unsubscribe()
	}
	if c.own {
		c.nc.Close()
	}
	return nil
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
