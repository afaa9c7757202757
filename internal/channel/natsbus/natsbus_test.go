package natsbus

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/wire"
)

func TestSubject(t *testing.T) {
	id := device.ID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	assert.Equal(t, "xlink.device.01020304-0506-0708-090a-0b0c0d0e0f10", Subject(id))
}

func TestDispatchDecodesFrames(t *testing.T) {
	c := New(nil, device.NewID(), zerolog.Nop())

	m, err := message.NewText(device.NewID(), device.NewID(), "over nats", message.PriorityLow)
	require.NoError(t, err)
	data, err := wire.EncodeMessage(m)
	require.NoError(t, err)

	var got *message.Message
	h := channel.HandlerFunc(func(_ context.Context, in *message.Message) error {
		got = in
		return nil
	})

	c.dispatch(context.Background(), h, []byte("garbage"))
	assert.Nil(t, got)

	c.dispatch(context.Background(), h, data)
	require.NotNil(t, got)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "over nats", got.Payload.Text)
}

func TestConnectFailure(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", device.NewID(), zerolog.Nop())
	assert.Error(t, err)
}
