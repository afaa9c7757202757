package inbound

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memcache "github.com/Kirky-X/xlink/internal/cache/memory"
	"github.com/Kirky-X/xlink/internal/capability"
	"github.com/Kirky-X/xlink/internal/channel/memory"
	"github.com/Kirky-X/xlink/internal/crypto"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/metrics"
	"github.com/Kirky-X/xlink/internal/ratelimit"
	memrepo "github.com/Kirky-X/xlink/internal/repository/memory"
	"github.com/Kirky-X/xlink/internal/routing"
	"github.com/Kirky-X/xlink/internal/service"
)

type node struct {
	id      device.ID
	caps    *capability.Manager
	metrics *metrics.Metrics
	msgs    service.MessageService
	groups  service.GroupService
	inbound *Handler
	ch      *memory.Channel
	crypto  *crypto.Engine
}

func newNode(t *testing.T, bus *memory.Bus, queue int, limit int) *node {
	t.Helper()
	n := &node{id: device.NewID(), metrics: metrics.New()}
	n.caps = capability.NewManager(device.Capabilities{ID: n.id}, 0)
	engine, err := crypto.New()
	require.NoError(t, err)
	n.crypto = engine

	ch := bus.Attach(n.id)
	n.ch = ch
	router := routing.New(n.caps, zerolog.Nop(), routing.WithCheckTTL(0))
	router.Register(ch)

	deps := service.Deps{
		Self:    n.id,
		Repo:    memrepo.NewRepository(),
		Router:  router,
		Caps:    n.caps,
		Metrics: n.metrics,
		Crypto:  n.crypto,
		Log:     zerolog.Nop(),
	}
	n.msgs = service.NewMessageService(deps, service.Settings{})
	n.groups = service.NewGroupService(deps, n.msgs, 0)

	var limiter *ratelimit.Limiter[device.ID]
	if limit > 0 {
		limiter = ratelimit.New[device.ID](limit)
	}
	n.inbound = New(Config{
		Self:      n.id,
		Messages:  n.msgs,
		Groups:    n.groups,
		Caps:      n.caps,
		Cache:     memcache.New(),
		Limiter:   limiter,
		Metrics:   n.metrics,
		Crypto:    n.crypto,
		Log:       zerolog.Nop(),
		QueueSize: queue,
	})
	require.NoError(t, ch.Start(context.Background(), n.inbound.For(device.ChannelMemory)))
	t.Cleanup(func() { _ = ch.Close() })
	return n
}

func receive(t *testing.T, n *node) *message.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m, err := n.inbound.Receive(ctx)
	require.NoError(t, err)
	return m
}

func TestTextIsQueued(t *testing.T) {
	bus := memory.NewBus()
	a, b := newNode(t, bus, 0, 0), newNode(t, bus, 0, 0)

	_, err := a.msgs.Send(context.Background(), b.id, "hello b", message.PriorityNormal)
	require.NoError(t, err)

	m := receive(t, b)
	assert.Equal(t, "hello b", m.Payload.Text)
	assert.Equal(t, a.id, m.Sender)
	assert.Equal(t, device.ChannelMemory, m.Channel)
	assert.Equal(t, uint64(1), b.metrics.Report().MessagesReceived)
}

func TestSealedTextIsOpened(t *testing.T) {
	bus := memory.NewBus()
	a, b := newNode(t, bus, 0, 0), newNode(t, bus, 0, 0)
	require.NoError(t, a.crypto.Establish(b.id, b.crypto.PublicKey()))
	require.NoError(t, b.crypto.Establish(a.id, a.crypto.PublicKey()))

	_, err := a.msgs.Send(context.Background(), b.id, "for your eyes", message.PriorityNormal)
	require.NoError(t, err)

	sent := a.ch.Sent()
	require.Len(t, sent, 1)
	assert.Empty(t, sent[0].Payload.Text)
	assert.NotEmpty(t, sent[0].Payload.Sealed)

	m := receive(t, b)
	assert.Equal(t, "for your eyes", m.Payload.Text)
	assert.Empty(t, m.Payload.Sealed)
}

func TestUnreadableSealedTextIsDropped(t *testing.T) {
	bus := memory.NewBus()
	a, b := newNode(t, bus, 0, 0), newNode(t, bus, 0, 0)
	// Only a trusts b, so b holds no key for a.
	require.NoError(t, a.crypto.Establish(b.id, b.crypto.PublicKey()))

	_, err := a.msgs.Send(context.Background(), b.id, "lost", message.PriorityNormal)
	require.ErrorIs(t, err, ErrUnreadable)

	assert.Empty(t, b.inbound.Messages())
	assert.Equal(t, uint64(1), b.metrics.Report().InboundDropped)

	plain := newNode(t, bus, 0, 0)
	plain.inbound.cfg.Crypto = nil
	m, err := message.NewText(a.id, plain.id, "x", message.PriorityNormal)
	require.NoError(t, err)
	m.Payload.Sealed = []byte("not really sealed")
	assert.ErrorIs(t, plain.inbound.HandleMessage(context.Background(), m), ErrUnreadable)
}

func TestDuplicatesAreDropped(t *testing.T) {
	bus := memory.NewBus()
	b := newNode(t, bus, 0, 0)
	sender := device.NewID()

	m, err := message.NewText(sender, b.id, "once", message.PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, b.inbound.HandleMessage(context.Background(), m))
	require.NoError(t, b.inbound.HandleMessage(context.Background(), m))

	assert.Len(t, b.inbound.Messages(), 1)
}

func TestPingIsAnsweredAndPongMeasured(t *testing.T) {
	bus := memory.NewBus()
	a, b := newNode(t, bus, 0, 0), newNode(t, bus, 0, 0)

	ping := message.NewControl(a.id, b.id, message.Payload{
		Kind:      message.KindPing,
		Timestamp: time.Now().Add(-20 * time.Millisecond).UnixMilli(),
	}, message.PriorityLow)
	require.NoError(t, a.msgs.Deliver(context.Background(), ping))

	st, ok := a.caps.State(b.id, device.ChannelMemory)
	require.True(t, ok)
	assert.True(t, st.Available)
	assert.GreaterOrEqual(t, st.RTTMillis, uint32(20))
	assert.False(t, st.LastHeartbeat.IsZero())

	assert.Empty(t, a.inbound.Messages())
	assert.Empty(t, b.inbound.Messages())
}

type pongs struct{ from []device.ID }

func (p *pongs) ObservePong(m *message.Message) {
	p.from = append(p.from, m.Sender)
}

func TestPongObserver(t *testing.T) {
	bus := memory.NewBus()
	a, b := newNode(t, bus, 0, 0), newNode(t, bus, 0, 0)
	obs := &pongs{}
	a.inbound.SetPongObserver(obs)

	ping := message.NewControl(a.id, b.id, message.Payload{Kind: message.KindPing, Timestamp: time.Now().UnixMilli()}, message.PriorityLow)
	require.NoError(t, a.msgs.Deliver(context.Background(), ping))
	assert.Equal(t, []device.ID{b.id}, obs.from)
}

func TestInviteAndAckRoundTrip(t *testing.T) {
	ctx := context.Background()
	bus := memory.NewBus()
	a, b := newNode(t, bus, 0, 0), newNode(t, bus, 0, 0)

	g, err := a.groups.Create(ctx, "pair", []device.ID{b.id})
	require.NoError(t, err)

	joined, err := b.groups.Get(g.ID)
	require.NoError(t, err)
	assert.Equal(t, "pair", joined.Name)
	assert.True(t, joined.IsMember(a.id))

	a.caps.UpdateState(b.id, device.ChannelMemory, device.ChannelState{Available: true, RTTMillis: 500, Network: device.NetworkEthernet})
	res, err := a.groups.Broadcast(ctx, g.ID, "to the group", service.StrategyDirect, message.PriorityNormal)
	require.NoError(t, err)

	m := receive(t, b)
	assert.Equal(t, "to the group", m.Payload.Text)
	require.NotNil(t, m.GroupID)
	assert.Equal(t, g.ID, *m.GroupID)

	got, ok := a.groups.Result(res.MessageID)
	require.True(t, ok)
	assert.Equal(t, []device.ID{b.id}, got.Acked)
	assert.Empty(t, got.PendingAck)

	member := joinedMember(t, b.groups, g.ID, a.id)
	assert.Equal(t, group.MemberOnline, member.Status)
}

func joinedMember(t *testing.T, groups service.GroupService, gid group.ID, id device.ID) *group.Member {
	t.Helper()
	g, err := groups.Get(gid)
	require.NoError(t, err)
	m, ok := g.Members[id]
	require.True(t, ok)
	return m
}

func TestFullQueueDrops(t *testing.T) {
	bus := memory.NewBus()
	b := newNode(t, bus, 1, 0)
	sender := device.NewID()

	for i := 0; i < 3; i++ {
		m, err := message.NewText(sender, b.id, "flood", message.PriorityNormal)
		require.NoError(t, err)
		require.NoError(t, b.inbound.HandleMessage(context.Background(), m))
	}
	assert.Len(t, b.inbound.Messages(), 1)
	assert.Equal(t, uint64(2), b.metrics.Report().InboundDropped)
}

func TestSenderRateLimit(t *testing.T) {
	bus := memory.NewBus()
	b := newNode(t, bus, 0, 2)
	sender := device.NewID()

	var errs []error
	for i := 0; i < 3; i++ {
		m, err := message.NewText(sender, b.id, "spam", message.PriorityNormal)
		require.NoError(t, err)
		errs = append(errs, b.inbound.HandleMessage(context.Background(), m))
	}
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.ErrorIs(t, errs[2], ErrRateLimited)
}

func TestForeignRecipientIgnored(t *testing.T) {
	bus := memory.NewBus()
	b := newNode(t, bus, 0, 0)
	m, err := message.NewText(device.NewID(), device.NewID(), "not yours", message.PriorityNormal)
	require.NoError(t, err)
	require.NoError(t, b.inbound.HandleMessage(context.Background(), m))
	assert.Empty(t, b.inbound.Messages())
}

func TestReceiveAfterClose(t *testing.T) {
	bus := memory.NewBus()
	b := newNode(t, bus, 0, 0)
	b.inbound.Close()
	b.inbound.Close()

	_, err := b.inbound.Receive(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}
