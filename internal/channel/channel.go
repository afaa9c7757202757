// Package channel defines the transport abstraction messages travel over.
package channel

import (
	"context"
	"errors"

	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
)

var (
	// ErrUnavailable is returned when the transport cannot reach the target.
	ErrUnavailable = errors.New("channel unavailable")
	// ErrClosed is returned by a channel after Close.
	ErrClosed = errors.New("channel closed")
)

// Handler receives messages arriving on a channel.
type Handler interface {
	HandleMessage(ctx context.Context, m *message.Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, m *message.Message) error

func (f HandlerFunc) HandleMessage(ctx context.Context, m *message.Message) error {
	return f(ctx, m)
}

// Channel is one way of reaching other devices.
type Channel interface {
	// Type names the transport.
	Type() device.ChannelType

	// Send transmits m to m.Recipient. It returns once the transport has
	// accepted the message or ctx is done.
	Send(ctx context.Context, m *message.Message) error

	// State reports the current link quality towards target.
	State(ctx context.Context, target device.ID) (device.ChannelState, error)

	// Start begins delivering inbound messages to h. It does not block.
	Start(ctx context.Context, h Handler) error

	// Close stops the channel and releases its resources.
	Close() error
}

// Presence is implemented by store-and-forward channels that can tell
// whether a target is listening right now. A message sent to an absent
// target is held, so it cannot be answered until the target shows up.
type Presence interface {
	Present(target device.ID) bool
}
