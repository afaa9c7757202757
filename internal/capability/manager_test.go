package capability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirky-X/xlink/internal/domain/device"
)

func newManager() (*Manager, device.ID) {
	self := device.NewID()
	return NewManager(device.Capabilities{ID: self, Name: "me"}, 0), self
}

func TestUpdateAndLookupState(t *testing.T) {
	m, _ := newManager()
	peer := device.NewID()

	_, ok := m.State(peer, device.ChannelLan)
	assert.False(t, ok)

	m.UpdateState(peer, device.ChannelLan, device.ChannelState{Available: true, RTTMillis: 12})
	st, ok := m.State(peer, device.ChannelLan)
	require.True(t, ok)
	assert.Equal(t, uint32(12), st.RTTMillis)

	e, ok := m.Lookup(peer, device.ChannelLan)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), e.UpdatedAt, time.Second)
	assert.Len(t, m.States(peer), 1)
}

func TestFailureThreshold(t *testing.T) {
	m, _ := newManager()
	peer := device.NewID()
	m.UpdateState(peer, device.ChannelLan, device.ChannelState{Available: true})

	assert.False(t, m.MarkFailure(peer, device.ChannelLan))
	assert.False(t, m.MarkFailure(peer, device.ChannelLan))
	assert.True(t, m.MarkFailure(peer, device.ChannelLan))

	st, _ := m.State(peer, device.ChannelLan)
	assert.False(t, st.Available)
	assert.Equal(t, 3, st.FailureCount)
}

func TestMarkFailureKeepsCheckTime(t *testing.T) {
	m, _ := newManager()
	peer := device.NewID()
	m.UpdateState(peer, device.ChannelLan, device.ChannelState{Available: true})
	before, _ := m.Lookup(peer, device.ChannelLan)

	time.Sleep(5 * time.Millisecond)
	m.MarkFailure(peer, device.ChannelLan)

	after, _ := m.Lookup(peer, device.ChannelLan)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, 1, after.State.FailureCount)

	// A failure on an unknown link creates it as already stale.
	other := device.NewID()
	m.MarkFailure(other, device.ChannelLan)
	e, ok := m.Lookup(other, device.ChannelLan)
	require.True(t, ok)
	assert.True(t, e.UpdatedAt.IsZero())
}

func TestMarkSuccessResetsStreak(t *testing.T) {
	m, _ := newManager()
	peer := device.NewID()
	m.UpdateState(peer, device.ChannelLan, device.ChannelState{Available: true})

	m.MarkFailure(peer, device.ChannelLan)
	m.MarkFailure(peer, device.ChannelLan)
	m.MarkSuccess(peer, device.ChannelLan)
	assert.False(t, m.MarkFailure(peer, device.ChannelLan))
}

func TestRecordHeartbeatRevivesLink(t *testing.T) {
	m, _ := newManager()
	peer := device.NewID()
	m.UpdateState(peer, device.ChannelLan, device.ChannelState{Available: true, RTTMillis: 40})
	for i := 0; i < 3; i++ {
		m.MarkFailure(peer, device.ChannelLan)
	}

	m.RecordHeartbeat(peer, device.ChannelLan, 25*time.Millisecond)

	st, _ := m.State(peer, device.ChannelLan)
	assert.True(t, st.Available)
	assert.Equal(t, uint32(25), st.RTTMillis)
	assert.Equal(t, uint32(15), st.JitterMillis)
	assert.Zero(t, st.FailureCount)
	assert.False(t, st.LastHeartbeat.IsZero())
}

func TestRemoteDevicesExcludesSelf(t *testing.T) {
	m, self := newManager()
	a, b := device.ID{0x01}, device.ID{0x02}

	m.UpdateState(b, device.ChannelLan, device.ChannelState{})
	m.SetRemote(device.Capabilities{ID: a})
	m.UpdateState(self, device.ChannelMemory, device.ChannelState{})

	assert.Equal(t, []device.ID{a, b}, m.RemoteDevices())
}

func TestForgetAndClear(t *testing.T) {
	m, _ := newManager()
	a, b := device.NewID(), device.NewID()
	m.UpdateState(a, device.ChannelLan, device.ChannelState{})
	m.UpdateState(b, device.ChannelLan, device.ChannelState{})
	m.SetRemote(device.Capabilities{ID: a})

	m.Forget(a)
	assert.Equal(t, []device.ID{b}, m.RemoteDevices())
	_, ok := m.Remote(a)
	assert.False(t, ok)

	m.Clear()
	assert.Empty(t, m.RemoteDevices())
}

func TestUpdateLocal(t *testing.T) {
	m, _ := newManager()
	lvl := uint8(20)
	m.UpdateLocal(&lvl, false)
	lvl = 90

	local := m.Local()
	require.NotNil(t, local.BatteryPercent)
	assert.Equal(t, uint8(20), *local.BatteryPercent)

	m.UpdateLocal(nil, true)
	assert.Nil(t, m.Local().BatteryPercent)
	assert.True(t, m.Local().Charging)
}
