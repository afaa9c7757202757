package heartbeat

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/capability"
	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/channel/memory"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/metrics"
	"github.com/Kirky-X/xlink/internal/routing"
)

func TestInterval(t *testing.T) {
	tests := []struct {
		name  string
		state device.ChannelState
		want  time.Duration
	}{
		{"very close", device.ChannelState{DistanceM: 1}, 1280 * time.Millisecond},
		{"fast link", device.ChannelState{RTTMillis: 10}, 3830 * time.Millisecond},
		{"remote ethernet", device.ChannelState{RTTMillis: 500, Network: device.NetworkEthernet}, 52500 * time.Millisecond},
		{"remote bluetooth", device.ChannelState{RTTMillis: 300, Network: device.NetworkBluetooth}, 39 * time.Second},
		{"remote unknown", device.ChannelState{RTTMillis: 2000}, 57 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interval(tt.state))
		})
	}
}

func TestIntervalBounds(t *testing.T) {
	for _, rtt := range []uint32{0, 50, 99} {
		got := Interval(device.ChannelState{RTTMillis: rtt, DistanceM: 100, SignalDBm: -30})
		assert.GreaterOrEqual(t, got, NearMinInterval)
		assert.LessOrEqual(t, got, NearMaxInterval)
	}
	for _, rtt := range []uint32{100, 800, 60000} {
		got := Interval(device.ChannelState{RTTMillis: rtt, DistanceM: 100, SignalDBm: -90, Network: device.NetworkEthernet})
		assert.GreaterOrEqual(t, got, RemoteMinInterval)
		assert.LessOrEqual(t, got, RemoteMaxInterval)
	}
}

type fixture struct {
	self, peer device.ID
	caps       *capability.Manager
	metrics    *metrics.Metrics
	bus        *memory.Bus
	remote     *memory.Channel
	mgr        *Manager
	clock      time.Time
}

// newFixture links self and peer over a memory bus. The peer is attached
// either way. When answer is set it replies to every ping with a pong.
func newFixture(t *testing.T, answer bool) *fixture {
	t.Helper()
	f := &fixture{self: device.NewID(), peer: device.NewID(), metrics: metrics.New(), clock: time.Now()}
	f.caps = capability.NewManager(device.Capabilities{ID: f.self}, 0)
	f.caps.UpdateState(f.peer, device.ChannelMemory, device.ChannelState{Available: true, RTTMillis: 50, Network: device.NetworkLoopback})

	bus := memory.NewBus()
	local := bus.Attach(f.self)
	remote := bus.Attach(f.peer)
	f.bus, f.remote = bus, remote
	t.Cleanup(func() {
		_ = local.Close()
		_ = remote.Close()
	})

	router := routing.New(f.caps, zerolog.Nop(), routing.WithCheckTTL(0))
	router.Register(local)

	f.mgr = New(Config{Self: f.self, Caps: f.caps, Router: router, Metrics: f.metrics, Log: zerolog.Nop()})
	f.mgr.now = func() time.Time { return f.clock }

	require.NoError(t, local.Start(context.Background(), channel.HandlerFunc(func(_ context.Context, m *message.Message) error {
		if m.Payload.Kind == message.KindPong {
			m.Channel = device.ChannelMemory
			f.mgr.ObservePong(m)
		}
		return nil
	})))
	require.NoError(t, remote.Start(context.Background(), channel.HandlerFunc(func(ctx context.Context, m *message.Message) error {
		if !answer || m.Payload.Kind != message.KindPing {
			return nil
		}
		pong := message.NewControl(f.peer, m.Sender, message.Payload{
			Kind:      message.KindPong,
			Timestamp: m.Payload.Timestamp,
			AckFor:    m.ID,
		}, m.Priority)
		return remote.Send(ctx, pong)
	})))
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func TestTickPingsDueLinks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)

	assert.Equal(t, 1, f.mgr.Tick(ctx))

	st, ok := f.caps.State(f.peer, device.ChannelMemory)
	require.True(t, ok)
	assert.True(t, st.Available)
	assert.Zero(t, st.FailureCount)
	assert.False(t, st.LastHeartbeat.IsZero())
	// 70% of the previous 50ms plus 30% of a zero round trip.
	assert.Equal(t, uint32(35), st.RTTMillis)

	// Nothing is due right after a ping.
	assert.Zero(t, f.mgr.Tick(ctx))

	f.advance(NearMaxInterval + time.Second)
	assert.Equal(t, 1, f.mgr.Tick(ctx))
}

func TestUnansweredPingsMarkLinkDown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	// Each tick sends a ping and charges the one before it.
	for i := 0; i <= capability.DefaultFailureThreshold; i++ {
		require.Equal(t, 1, f.mgr.Tick(ctx))
		st, _ := f.caps.State(f.peer, device.ChannelMemory)
		assert.Equal(t, i, st.FailureCount)
		f.advance(NearMaxInterval + time.Second)
	}

	st, ok := f.caps.State(f.peer, device.ChannelMemory)
	require.True(t, ok)
	assert.False(t, st.Available)
	assert.Equal(t, capability.DefaultFailureThreshold, st.FailureCount)
}

func TestPingIsNotAFailureUntilTimeout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)

	require.Equal(t, 1, f.mgr.Tick(ctx))
	f.advance(pongTimeout - time.Millisecond)
	f.mgr.Tick(ctx)

	st, _ := f.caps.State(f.peer, device.ChannelMemory)
	assert.Zero(t, st.FailureCount)
	assert.True(t, st.Available)
}

func TestAbsentPeerIsNotPinged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	require.NoError(t, f.remote.Close())

	for i := 0; i < 2*capability.DefaultFailureThreshold; i++ {
		assert.Zero(t, f.mgr.Tick(ctx))
		f.advance(NearMaxInterval + time.Second)
	}

	st, ok := f.caps.State(f.peer, device.ChannelMemory)
	require.True(t, ok)
	assert.True(t, st.Available)
	assert.Zero(t, st.FailureCount)
	assert.Zero(t, f.bus.Pending(f.peer))
}

func TestUnroutedChannelsAreSkipped(t *testing.T) {
	f := newFixture(t, true)
	f.caps.UpdateState(f.peer, device.ChannelBluetoothLE, device.ChannelState{Available: true, RTTMillis: 20})

	assert.Equal(t, 1, f.mgr.Tick(context.Background()))
	st, _ := f.caps.State(f.peer, device.ChannelBluetoothLE)
	assert.Zero(t, st.FailureCount)
}

func TestObservePongWithoutPing(t *testing.T) {
	f := newFixture(t, false)
	f.caps.UpdateState(f.peer, device.ChannelMemory, device.UnknownState())

	pong := message.NewControl(f.peer, f.self, message.Payload{
		Kind:      message.KindPong,
		Timestamp: f.clock.Add(-40 * time.Millisecond).UnixMilli(),
	}, message.PriorityLow)
	pong.Channel = device.ChannelMemory
	f.mgr.ObservePong(pong)

	st, ok := f.caps.State(f.peer, device.ChannelMemory)
	require.True(t, ok)
	assert.True(t, st.Available)
	assert.Equal(t, uint32(40), st.RTTMillis)

	// A pong carrying neither a known ping nor a timestamp is ignored.
	f.caps.UpdateState(f.peer, device.ChannelMemory, device.UnknownState())
	blank := message.NewControl(f.peer, f.self, message.Payload{Kind: message.KindPong}, message.PriorityLow)
	blank.Channel = device.ChannelMemory
	f.mgr.ObservePong(blank)
	st, _ = f.caps.State(f.peer, device.ChannelMemory)
	assert.False(t, st.Available)
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, true)
	f.mgr.tick = 10 * time.Millisecond

	f.mgr.Start(context.Background())
	f.mgr.Start(context.Background())
	assert.True(t, f.mgr.Running())

	f.mgr.Stop()
	f.mgr.Stop()
	assert.False(t, f.mgr.Running())
}
