package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/capability"
	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
)

type fakeChannel struct {
	ct     device.ChannelType
	state  device.ChannelState
	err    error
	checks int
}

func (f *fakeChannel) Type() device.ChannelType                     { return f.ct }
func (f *fakeChannel) Send(context.Context, *message.Message) error { return nil }
func (f *fakeChannel) Start(context.Context, channel.Handler) error { return nil }
func (f *fakeChannel) Close() error                                 { return nil }
func (f *fakeChannel) State(context.Context, device.ID) (device.ChannelState, error) {
	f.checks++
	return f.state, f.err
}

func lan() *fakeChannel {
	return &fakeChannel{ct: device.ChannelLan, state: device.ChannelState{Available: true, RTTMillis: 5, Network: device.NetworkWiFi}}
}

func internet() *fakeChannel {
	return &fakeChannel{ct: device.ChannelInternet, state: device.ChannelState{Available: true, RTTMillis: 200, Network: device.NetworkEthernet}}
}

func newRouter(opts ...Option) (*Router, *capability.Manager) {
	caps := capability.NewManager(device.Capabilities{ID: device.NewID()}, 0)
	return New(caps, zerolog.Nop(), opts...), caps
}

func textTo(t *testing.T, to device.ID, p message.Priority) *message.Message {
	t.Helper()
	m, err := message.NewText(device.NewID(), to, "hello", p)
	require.NoError(t, err)
	return m
}

func TestScore(t *testing.T) {
	local := device.Capabilities{}
	perfect := device.ChannelState{Available: true, RTTMillis: 1, Network: device.NetworkLoopback}

	assert.InDelta(t, 1.0, Score(device.ChannelMemory, perfect, local, message.PriorityNormal), 1e-9)
	assert.Zero(t, Score(device.ChannelMemory, device.ChannelState{}, local, message.PriorityCritical))

	slow := device.ChannelState{Available: true, RTTMillis: 200, Network: device.NetworkEthernet}
	// 0.2*latency + 0.3*1 + 0.2*0.4 + 0.3*1
	want := 0.2*(1/(1+2.995732273553991)) + 0.3 + 0.08 + 0.3
	assert.InDelta(t, want, Score(device.ChannelInternet, slow, local, message.PriorityNormal), 1e-9)
}

func TestScoreCostAndPower(t *testing.T) {
	cell := device.ChannelState{Available: true, RTTMillis: 10, Network: device.NetworkCellular}
	normal := Score(device.ChannelInternet, cell, device.Capabilities{}, message.PriorityLow)
	frugal := Score(device.ChannelInternet, cell, device.Capabilities{DataCostSensitive: true}, message.PriorityLow)
	assert.Greater(t, normal, frugal)

	low := uint8(10)
	drained := Score(device.ChannelWiFiDirect, cell, device.Capabilities{BatteryPercent: &low}, message.PriorityLow)
	charging := Score(device.ChannelWiFiDirect, cell, device.Capabilities{BatteryPercent: &low, Charging: true}, message.PriorityLow)
	assert.Greater(t, charging, drained)
}

func TestSelectPicksBestScore(t *testing.T) {
	r, _ := newRouter()
	r.Register(internet())
	r.Register(lan())

	ch, err := r.Select(context.Background(), textTo(t, device.NewID(), message.PriorityNormal))
	require.NoError(t, err)
	assert.Equal(t, device.ChannelLan, ch.Type())
}

func TestSelectNoRoute(t *testing.T) {
	r, _ := newRouter()
	_, err := r.Select(context.Background(), textTo(t, device.NewID(), message.PriorityNormal))
	assert.ErrorIs(t, err, ErrNoRoute)

	down := lan()
	down.state.Available = false
	broken := internet()
	broken.err = errors.New("closed")
	r.Register(down)
	r.Register(broken)

	_, err = r.Select(context.Background(), textTo(t, device.NewID(), message.PriorityNormal))
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestPredictionPrefersHistory(t *testing.T) {
	r, _ := newRouter()
	r.Register(lan())
	r.Register(internet())
	target := device.NewID()

	for i := 0; i < 3; i++ {
		r.Record(textTo(t, target, message.PriorityNormal), device.ChannelInternet)
	}

	cands, err := r.Rank(context.Background(), textTo(t, target, message.PriorityNormal))
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, device.ChannelInternet, cands[0].Channel.Type())
	assert.Equal(t, device.ChannelLan, cands[1].Channel.Type())

	// Other targets are unaffected.
	cands, err = r.Rank(context.Background(), textTo(t, device.NewID(), message.PriorityNormal))
	require.NoError(t, err)
	assert.Equal(t, device.ChannelLan, cands[0].Channel.Type())
}

func TestPredictionIgnoredBelowFloor(t *testing.T) {
	r, _ := newRouter()
	weak := internet()
	weak.state.PacketLoss = 0.9
	weak.state.Network = device.NetworkCellular
	r.Register(lan())
	r.Register(weak)
	target := device.NewID()
	r.Record(textTo(t, target, message.PriorityLow), device.ChannelInternet)

	cands, err := r.Rank(context.Background(), textTo(t, target, message.PriorityLow))
	require.NoError(t, err)
	assert.Equal(t, device.ChannelLan, cands[0].Channel.Type())
}

func TestHistoryIsBounded(t *testing.T) {
	r, _ := newRouter()
	target := device.NewID()
	for i := 0; i < 25; i++ {
		r.Record(textTo(t, target, message.PriorityNormal), device.ChannelLan)
	}
	assert.Len(t, r.history[target], historySize)
}

func TestLinkChecksAreCached(t *testing.T) {
	r, caps := newRouter()
	ch := lan()
	r.Register(ch)
	target := device.NewID()

	for i := 0; i < 3; i++ {
		_, err := r.Select(context.Background(), textTo(t, target, message.PriorityNormal))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, ch.checks)

	st, ok := caps.State(target, device.ChannelLan)
	require.True(t, ok)
	assert.True(t, st.Available)
}

func TestCheckTTLZeroAlwaysChecks(t *testing.T) {
	r, _ := newRouter(WithCheckTTL(0))
	ch := lan()
	r.Register(ch)
	target := device.NewID()

	for i := 0; i < 3; i++ {
		_, err := r.Select(context.Background(), textTo(t, target, message.PriorityNormal))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, ch.checks)
}

func TestFailedLinkIsCheckedAgain(t *testing.T) {
	r, caps := newRouter(WithCheckTTL(20 * time.Millisecond))
	ch := lan()
	r.Register(ch)
	target := device.NewID()

	_, err := r.Select(context.Background(), textTo(t, target, message.PriorityNormal))
	require.NoError(t, err)
	for i := 0; i < capability.DefaultFailureThreshold; i++ {
		caps.MarkFailure(target, device.ChannelLan)
	}

	_, err = r.Select(context.Background(), textTo(t, target, message.PriorityNormal))
	assert.ErrorIs(t, err, ErrNoRoute)

	time.Sleep(30 * time.Millisecond)
	got, err := r.Select(context.Background(), textTo(t, target, message.PriorityNormal))
	require.NoError(t, err)
	assert.Equal(t, device.ChannelLan, got.Type())
	assert.Equal(t, 2, ch.checks)
}

func TestTrafficStats(t *testing.T) {
	r, _ := newRouter(WithTrafficThreshold(device.ChannelLan, 1))
	r.Register(lan())
	m := textTo(t, device.NewID(), message.PriorityNormal)

	_, err := r.Select(context.Background(), m)
	require.NoError(t, err)

	stats := r.TrafficStats()
	assert.Equal(t, uint64(m.Payload.Size()), stats[device.ChannelLan])

	r.Clear()
	assert.Empty(t, r.TrafficStats())
}

func TestRegisterReplacesSameType(t *testing.T) {
	r, _ := newRouter()
	r.Register(lan())
	second := lan()
	r.Register(second)

	chans := r.Channels()
	require.Len(t, chans, 1)
	assert.Same(t, second, chans[0])
}
