// Package memory is an in-process transport. Every Channel attached to the
// same Bus can reach the others, which makes it the default for a single
// process and the backbone of the test suite.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
)

// DefaultMailboxSize bounds how many messages are held for a device that
// has not attached yet.
const DefaultMailboxSize = 1024

// sentLogSize is how many transmitted messages a Channel remembers.
const sentLogSize = 256

// Bus routes messages between channels in the same process.
type Bus struct {
	mu        sync.Mutex
	endpoints map[device.ID]*Channel
	mailboxes map[device.ID][]*message.Message
	mailbox   int
}

func NewBus() *Bus {
	return &Bus{
		endpoints: make(map[device.ID]*Channel),
		mailboxes: make(map[device.ID][]*message.Message),
		mailbox:   DefaultMailboxSize,
	}
}

// defaultBus is shared by every client created without an explicit bus.
var defaultBus = NewBus()

// Default returns the process-wide bus.
func Default() *Bus { return defaultBus }

// Attach creates the channel for a local device.
func (b *Bus) Attach(self device.ID) *Channel {
	return &Channel{bus: b, self: self}
}

// Present reports whether id has an attached, started endpoint.
func (b *Bus) Present(id device.ID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.endpoints[id]
	return ok
}

// Pending reports how many messages wait for an unattached device.
func (b *Bus) Pending(id device.ID) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.mailboxes[id])
}

func (b *Bus) register(c *Channel) []*message.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints[c.self] = c
	held := b.mailboxes[c.self]
	delete(b.mailboxes, c.self)
	return held
}

func (b *Bus) unregister(c *Channel) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.endpoints[c.self] == c {
		delete(b.endpoints, c.self)
	}
}

// deliver hands m to the recipient, or keeps it until the recipient attaches.
func (b *Bus) deliver(ctx context.Context, m *message.Message) error {
	b.mu.Lock()
	dst, ok := b.endpoints[m.Recipient]
	if !ok {
		box := b.mailboxes[m.Recipient]
		if len(box) >= b.mailbox {
			b.mu.Unlock()
			return fmt.Errorf("%w: mailbox for %s is full", channel.ErrUnavailable, m.Recipient)
		}
		b.mailboxes[m.Recipient] = append(box, m)
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	return dst.receive(ctx, m)
}

// Channel is one device's endpoint on a Bus.
type Channel struct {
	bus  *Bus
	self device.ID

	mu      sync.RWMutex
	handler channel.Handler
	closed  bool
	failing bool
	latency time.Duration
	sent    []*message.Message
}

var (
	_ channel.Channel  = (*Channel)(nil)
	_ channel.Presence = (*Channel)(nil)
)

func (c *Channel) Type() device.ChannelType { return device.ChannelMemory }

// SetFailure makes every following Send fail until cleared.
func (c *Channel) SetFailure(fail bool) {
	c.mu.Lock()
	c.failing = fail
	c.mu.Unlock()
}

// SetLatency delays every Send by d.
func (c *Channel) SetLatency(d time.Duration) {
	c.mu.Lock()
	c.latency = d
	c.mu.Unlock()
}

// Present reports whether target is attached to the bus. Messages for an
// absent target wait in its mailbox.
func (c *Channel) Present(target device.ID) bool { return c.bus.Present(target) }

// Sent returns a copy of the most recent messages this endpoint transmitted,
// oldest first.
func (c *Channel) Sent() []*message.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*message.Message, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *Channel) Send(ctx context.Context, m *message.Message) error {
	c.mu.RLock()
	closed, failing, latency := c.closed, c.failing, c.latency
	c.mu.RUnlock()

	if closed {
		return channel.ErrClosed
	}
	if failing {
		return fmt.Errorf("%w: simulated failure", channel.ErrUnavailable)
	}
	if latency > 0 {
		t := time.NewTimer(latency)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}

	// Receivers get their own copy, as they would off a real wire.
	cp := *m
	if err := c.bus.deliver(ctx, &cp); err != nil {
		return err
	}

	c.mu.Lock()
	if len(c.sent) == sentLogSize {
		copy(c.sent, c.sent[1:])
		c.sent = c.sent[:sentLogSize-1]
	}
	c.sent = append(c.sent, m)
	c.mu.Unlock()
	return nil
}

func (c *Channel) State(_ context.Context, _ device.ID) (device.ChannelState, error) {
	c.mu.RLock()
	closed, failing, latency := c.closed, c.failing, c.latency
	c.mu.RUnlock()

	if closed {
		return device.UnknownState(), channel.ErrClosed
	}
	state := device.ChannelState{
		Available: !failing,
		RTTMillis: uint32(latency / time.Millisecond),
		Network:   device.NetworkLoopback,
		Bandwidth: 1 << 30,
	}
	if failing {
		state.PacketLoss = 1
	}
	return state, nil
}

func (c *Channel) Start(ctx context.Context, h channel.Handler) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return channel.ErrClosed
	}
	c.handler = h
	c.mu.Unlock()

	for _, m := range c.bus.register(c) {
		_ = c.receive(ctx, m)
	}
	return nil
}

func (c *Channel) receive(ctx context.Context, m *message.Message) error {
	c.mu.RLock()
	h, closed := c.handler, c.closed
	c.mu.RUnlock()
	if closed || h == nil {
		return channel.ErrClosed
	}
	return h.HandleMessage(ctx, m)
}

func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.bus.unregister(c)
	return nil
}
