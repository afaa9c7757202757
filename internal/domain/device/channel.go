package device

import (
	"strings"
	"time"
)

// ChannelType names a transport a device can be reached over.
type ChannelType string

const (
	ChannelBluetoothLE   ChannelType = "bluetooth_le"
	ChannelBluetoothMesh ChannelType = "bluetooth_mesh"
	ChannelWiFiDirect    ChannelType = "wifi_direct"
	ChannelLan           ChannelType = "lan"
	ChannelInternet      ChannelType = "internet"
	ChannelMemory        ChannelType = "memory"
)

// PowerCost is a relative energy cost of one transmission, 1 is cheapest.
func (c ChannelType) PowerCost() int {
	switch c {
	case ChannelBluetoothLE, ChannelMemory:
		return 1
	case ChannelBluetoothMesh, ChannelLan:
		return 2
	case ChannelWiFiDirect:
		return 3
	case ChannelInternet:
		return 5
	default:
		return 5
	}
}

// ParseChannelType accepts the canonical names used in config and mDNS TXT.
func ParseChannelType(s string) (ChannelType, bool) {
	ct := ChannelType(strings.ToLower(strings.TrimSpace(s)))
	switch ct {
	case ChannelBluetoothLE, ChannelBluetoothMesh, ChannelWiFiDirect,
		ChannelLan, ChannelInternet, ChannelMemory:
		return ct, true
	}
	return "", false
}

// NetworkType is the underlying link the channel rides on.
type NetworkType string

const (
	NetworkUnknown   NetworkType = "unknown"
	NetworkWiFi      NetworkType = "wifi"
	NetworkEthernet  NetworkType = "ethernet"
	NetworkCellular  NetworkType = "cellular"
	NetworkBluetooth NetworkType = "bluetooth"
	NetworkLoopback  NetworkType = "loopback"
)

// ChannelState is the last known quality of one (device, channel) link.
type ChannelState struct {
	Available     bool
	RTTMillis     uint32
	JitterMillis  uint32
	PacketLoss    float64 // 0..1
	Bandwidth     uint64  // bits per second
	SignalDBm     int     // 0 when not applicable
	DistanceM     float64 // 0 when unknown
	Network       NetworkType
	FailureCount  int
	LastHeartbeat time.Time
}

// UnknownState is what links start as before anything was observed.
func UnknownState() ChannelState {
	return ChannelState{
		Available:  false,
		RTTMillis:  9999,
		PacketLoss: 1.0,
		Network:    NetworkUnknown,
	}
}

// Near reports whether the peer looks physically or topologically close.
func (s ChannelState) Near() bool {
	if s.DistanceM > 0 && s.DistanceM <= 10 {
		return true
	}
	if s.SignalDBm != 0 && s.SignalDBm >= -60 {
		return true
	}
	return s.Available && s.RTTMillis < 100
}
