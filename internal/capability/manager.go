// Package capability tracks what the local device can do and how well each
// remote device is reachable on each channel.
package capability

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/Kirky-X/xlink/internal/domain/device"
)

// DefaultFailureThreshold is the number of consecutive failures after which
// a link is considered down.
const DefaultFailureThreshold = 3

type key struct {
	id device.ID
	ch device.ChannelType
}

// Entry is a link state plus when it was last updated.
type Entry struct {
	State     device.ChannelState
	UpdatedAt time.Time
}

type Manager struct {
	mu        sync.RWMutex
	local     device.Capabilities
	remotes   map[device.ID]device.Capabilities
	states    map[key]Entry
	threshold int
}

func NewManager(local device.Capabilities, failureThreshold int) *Manager {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	return &Manager{
		local:     local,
		remotes:   make(map[device.ID]device.Capabilities),
		states:    make(map[key]Entry),
		threshold: failureThreshold,
	}
}

func (m *Manager) Local() device.Capabilities {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.local
}

// UpdateLocal records a new power situation for the local device.
func (m *Manager) UpdateLocal(battery *uint8, charging bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if battery != nil {
		b := *battery
		m.local.BatteryPercent = &b
	} else {
		m.local.BatteryPercent = nil
	}
	m.local.Charging = charging
}

// SetRemote stores the capabilities a peer advertised.
func (m *Manager) SetRemote(caps device.Capabilities) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remotes[caps.ID] = caps
}

func (m *Manager) Remote(id device.ID) (device.Capabilities, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.remotes[id]
	return c, ok
}

func (m *Manager) UpdateState(id device.ID, ch device.ChannelType, st device.ChannelState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key{id, ch}] = Entry{State: st, UpdatedAt: time.Now()}
}

func (m *Manager) Lookup(id device.ID, ch device.ChannelType) (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.states[key{id, ch}]
	return e, ok
}

func (m *Manager) State(id device.ID, ch device.ChannelType) (device.ChannelState, bool) {
	e, ok := m.Lookup(id, ch)
	return e.State, ok
}

// States returns every known link towards id.
func (m *Manager) States(id device.ID) map[device.ChannelType]device.ChannelState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[device.ChannelType]device.ChannelState)
	for k, e := range m.states {
		if k.id == id {
			out[k.ch] = e.State
		}
	}
	return out
}

// RemoteDevices lists every peer with a known link or advertised
// capabilities, in byte order. The local device is never included.
func (m *Manager) RemoteDevices() []device.ID {
	m.mu.RLock()
	seen := make(map[device.ID]struct{})
	for k := range m.states {
		seen[k.id] = struct{}{}
	}
	for id := range m.remotes {
		seen[id] = struct{}{}
	}
	self := m.local.ID
	m.mu.RUnlock()

	delete(seen, self)
	ids := make([]device.ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids
}

// MarkFailure counts a failed exchange. Once the threshold is reached the
// link is reported unavailable. It returns whether the link is now down.
// UpdatedAt is left alone so a stale link is still checked again.
func (m *Manager) MarkFailure(id device.ID, ch device.ChannelType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{id, ch}
	e, ok := m.states[k]
	if !ok {
		e.State = device.UnknownState()
	}
	e.State.FailureCount++
	if e.State.FailureCount >= m.threshold {
		e.State.Available = false
	}
	m.states[k] = e
	return !e.State.Available
}

// MarkSuccess resets the failure streak of a link.
func (m *Manager) MarkSuccess(id device.ID, ch device.ChannelType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{id, ch}
	e, ok := m.states[k]
	if !ok {
		return
	}
	e.State.FailureCount = 0
	m.states[k] = e
}

// RecordHeartbeat stores a measured round trip and marks the link up.
func (m *Manager) RecordHeartbeat(id device.ID, ch device.ChannelType, rtt time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{id, ch}
	e, ok := m.states[k]
	if !ok {
		e.State = device.ChannelState{Network: device.NetworkUnknown}
	}
	prev := e.State.RTTMillis
	now := uint32(rtt / time.Millisecond)
	if ok && prev != 0 && prev != 9999 {
		if now > prev {
			e.State.JitterMillis = now - prev
		} else {
			e.State.JitterMillis = prev - now
		}
	}
	e.State.Available = true
	e.State.RTTMillis = now
	e.State.PacketLoss = 0
	e.State.FailureCount = 0
	e.State.LastHeartbeat = time.Now()
	e.UpdatedAt = e.State.LastHeartbeat
	m.states[k] = e
}

// Forget drops everything known about a peer.
func (m *Manager) Forget(id device.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.remotes, id)
	for k := range m.states {
		if k.id == id {
			delete(m.states, k)
		}
	}
}

func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remotes = make(map[device.ID]device.Capabilities)
	m.states = make(map[key]Entry)
}
