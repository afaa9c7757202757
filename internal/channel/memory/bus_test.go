package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
)

type collector struct {
	mu   sync.Mutex
	msgs []*message.Message
}

func (c *collector) HandleMessage(_ context.Context, m *message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

func text(t *testing.T, from, to device.ID, body string) *message.Message {
	t.Helper()
	m, err := message.NewText(from, to, body, message.PriorityNormal)
	require.NoError(t, err)
	return m
}

func TestSendToAttachedDevice(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	a, b := device.NewID(), device.NewID()

	chA := bus.Attach(a)
	chB := bus.Attach(b)
	inbox := &collector{}
	require.NoError(t, chA.Start(ctx, &collector{}))
	require.NoError(t, chB.Start(ctx, inbox))

	require.NoError(t, chA.Send(ctx, text(t, a, b, "hi")))

	require.Equal(t, 1, inbox.Len())
	assert.Equal(t, "hi", inbox.msgs[0].Payload.Text)
	assert.Len(t, chA.Sent(), 1)
}

func TestStoreAndForward(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	a, b := device.NewID(), device.NewID()
	chA := bus.Attach(a)

	require.NoError(t, chA.Send(ctx, text(t, a, b, "early")))
	assert.Equal(t, 1, bus.Pending(b))

	inbox := &collector{}
	require.NoError(t, bus.Attach(b).Start(ctx, inbox))

	assert.Equal(t, 0, bus.Pending(b))
	assert.Equal(t, 1, inbox.Len())
}

func TestMailboxFull(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	bus.mailbox = 2
	a, b := device.NewID(), device.NewID()
	ch := bus.Attach(a)

	require.NoError(t, ch.Send(ctx, text(t, a, b, "1")))
	require.NoError(t, ch.Send(ctx, text(t, a, b, "2")))
	assert.ErrorIs(t, ch.Send(ctx, text(t, a, b, "3")), channel.ErrUnavailable)
}

func TestFailureToggle(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	a, b := device.NewID(), device.NewID()
	ch := bus.Attach(a)

	ch.SetFailure(true)
	assert.ErrorIs(t, ch.Send(ctx, text(t, a, b, "x")), channel.ErrUnavailable)
	st, err := ch.State(ctx, b)
	require.NoError(t, err)
	assert.False(t, st.Available)

	ch.SetFailure(false)
	assert.NoError(t, ch.Send(ctx, text(t, a, b, "x")))
	st, err = ch.State(ctx, b)
	require.NoError(t, err)
	assert.True(t, st.Available)
	assert.Equal(t, device.NetworkLoopback, st.Network)
}

func TestLatencyRespectsContext(t *testing.T) {
	bus := NewBus()
	a, b := device.NewID(), device.NewID()
	ch := bus.Attach(a)
	ch.SetLatency(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := ch.Send(ctx, text(t, a, b, "slow"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	a, b := device.NewID(), device.NewID()
	chA := bus.Attach(a)
	chB := bus.Attach(b)
	require.NoError(t, chB.Start(ctx, &collector{}))

	require.NoError(t, chB.Close())
	require.NoError(t, chB.Close())

	// b detached, so the bus holds the message again.
	require.NoError(t, chA.Send(ctx, text(t, a, b, "later")))
	assert.Equal(t, 1, bus.Pending(b))

	require.NoError(t, chA.Close())
	assert.ErrorIs(t, chA.Send(ctx, text(t, a, b, "x")), channel.ErrClosed)
	assert.ErrorIs(t, chA.Start(ctx, &collector{}), channel.ErrClosed)
}

func TestPresence(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	a, b := device.NewID(), device.NewID()
	chA := bus.Attach(a)
	chB := bus.Attach(b)

	assert.False(t, chA.Present(b), "attached but not started")
	require.NoError(t, chB.Start(ctx, &collector{}))
	assert.True(t, chA.Present(b))

	require.NoError(t, chB.Close())
	assert.False(t, chA.Present(b))
}

func TestSentLogIsBounded(t *testing.T) {
	ctx := context.Background()
	bus := NewBus()
	a, b := device.NewID(), device.NewID()
	chA := bus.Attach(a)
	require.NoError(t, bus.Attach(b).Start(ctx, &collector{}))

	var last *message.Message
	for i := 0; i < sentLogSize+50; i++ {
		last = text(t, a, b, "tick")
		require.NoError(t, chA.Send(ctx, last))
	}

	sent := chA.Sent()
	assert.Len(t, sent, sentLogSize)
	assert.Equal(t, last.ID, sent[len(sent)-1].ID)
}
