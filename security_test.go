package xlink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/audit"
)

func trust(t *testing.T, a, b *Client) {
	t.Helper()
	ka, err := a.PublicKey()
	require.NoError(t, err)
	kb, err := b.PublicKey()
	require.NoError(t, err)
	require.NoError(t, a.TrustPeer(b.DeviceID(), kb))
	require.NoError(t, b.TrustPeer(a.DeviceID(), ka))
}

func TestTrustedPeersExchangeText(t *testing.T) {
	bus := NewBus()
	a, b := newTestClient(t, bus), newTestClient(t, bus)
	ctx := context.Background()
	trust(t, a, b)
	assert.True(t, a.Trusted(b.DeviceID()))

	require.NoError(t, a.SendText(ctx, b.DeviceID(), "sealed hello"))
	assert.Equal(t, "sealed hello", receive(t, b).Payload.Text)

	require.NoError(t, b.SendText(ctx, a.DeviceID(), "sealed reply"))
	assert.Equal(t, "sealed reply", receive(t, a).Payload.Text)

	sent, _, err := a.SentMessages(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "sealed hello", sent[0].Payload.Text)
	assert.Empty(t, sent[0].Payload.Sealed)

	require.NoError(t, a.ForgetPeer(b.DeviceID()))
	assert.False(t, a.Trusted(b.DeviceID()))
}

func TestBroadcastSealsPerMember(t *testing.T) {
	bus := NewBus()
	a, b, c := newTestClient(t, bus), newTestClient(t, bus), newTestClient(t, bus)
	ctx := context.Background()
	trust(t, a, b)

	g, err := a.CreateGroup(ctx, "mixed", b.DeviceID(), c.DeviceID())
	require.NoError(t, err)

	res, err := a.Broadcast(ctx, g.ID, "to everyone", StrategyDirect, PriorityNormal)
	require.NoError(t, err)
	assert.ElementsMatch(t, []DeviceID{b.DeviceID(), c.DeviceID()}, res.Delivered)
	for _, member := range []*Client{b, c} {
		assert.Equal(t, "to everyone", receive(t, member).Payload.Text)
	}
}

func TestUntrustedSenderCannotBeRead(t *testing.T) {
	bus := NewBus()
	a, b := newTestClient(t, bus), newTestClient(t, bus)
	kb, err := b.PublicKey()
	require.NoError(t, err)
	require.NoError(t, a.TrustPeer(b.DeviceID(), kb))

	err = a.SendText(context.Background(), b.DeviceID(), "b cannot open this")
	assert.Error(t, err)
	assert.Empty(t, b.Messages())
}

func TestTrustPeerRejectsBadInput(t *testing.T) {
	c := newTestClient(t, NewBus())
	key, err := c.PublicKey()
	require.NoError(t, err)

	assert.Equal(t, StatusInvalidIdentifier, StatusOf(c.TrustPeer(c.DeviceID(), key)))
	assert.Equal(t, StatusInvalidIdentifier, StatusOf(c.TrustPeer(DeviceID{}, key)))
	assert.Equal(t, StatusInvalidArgument, StatusOf(c.TrustPeer(NewDeviceID(), PublicKey{})))

	parsed, err := ParsePublicKey(key.String())
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
}

func TestExportStateMovesDevice(t *testing.T) {
	bus := NewBus()
	a, b := newTestClient(t, bus), newTestClient(t, bus)
	trust(t, a, b)
	key, err := a.PublicKey()
	require.NoError(t, err)

	blob, err := a.ExportState()
	require.NoError(t, err)
	require.NoError(t, a.Close())

	moved := newTestClient(t, bus, WithDeviceID(a.DeviceID()), WithCryptoState(blob))
	got, err := moved.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, key, got)
	assert.True(t, moved.Trusted(b.DeviceID()))

	require.NoError(t, b.SendText(context.Background(), moved.DeviceID(), "welcome back"))
	assert.Equal(t, "welcome back", receive(t, moved).Payload.Text)
}

func TestImportState(t *testing.T) {
	bus := NewBus()
	a, b := newTestClient(t, bus), newTestClient(t, bus)
	trust(t, a, b)
	blob, err := a.ExportState()
	require.NoError(t, err)

	other := newTestClient(t, bus)
	before, err := other.PublicKey()
	require.NoError(t, err)
	err = other.ImportState([]byte("garbage"))
	assert.Equal(t, StatusInvalidArgument, StatusOf(err))
	after, err := other.PublicKey()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, other.ImportState(blob))
	assert.True(t, other.Trusted(b.DeviceID()))

	_, err = New(WithBus(bus), WithCryptoState([]byte{0x01}), WithHeartbeat(false), WithRetryInterval(0))
	assert.Equal(t, StatusInvalidArgument, StatusOf(err))
}

func TestAuditLog(t *testing.T) {
	bus := NewBus()
	a, b := newTestClient(t, bus), newTestClient(t, bus)
	ctx := context.Background()

	trust(t, a, b)
	_, err := a.CreateGroup(ctx, "audited", b.DeviceID())
	require.NoError(t, err)
	_, err = a.ExportState()
	require.NoError(t, err)

	entries := a.AuditLog(0)
	require.Len(t, entries, 4)
	assert.Equal(t, audit.ActionExported, entries[0].Action)
	assert.Equal(t, audit.ActionGroup, entries[1].Action)
	assert.Equal(t, audit.ActionPeerTrusted, entries[2].Action)
	assert.Contains(t, entries[2].Detail, b.DeviceID().String())
	assert.Equal(t, audit.ActionStarted, entries[3].Action)

	assert.Len(t, a.AuditLog(1), 1)

	var nilClient *Client
	assert.Nil(t, nilClient.AuditLog(0))
}
