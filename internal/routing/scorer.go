// Package routing picks the channel a message should travel over.
package routing

import (
	"math"

	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
)

type weights struct {
	latency, reliability, power, cost float64
}

// Urgent traffic pays for speed; background traffic saves battery and data.
var priorityWeights = map[message.Priority]weights{
	message.PriorityCritical: {0.5, 0.4, 0.05, 0.05},
	message.PriorityHigh:     {0.4, 0.3, 0.1, 0.2},
	message.PriorityNormal:   {0.2, 0.3, 0.2, 0.3},
	message.PriorityLow:      {0.1, 0.2, 0.3, 0.4},
}

// Score rates a link between 0 (unusable) and 1.
func Score(ch device.ChannelType, st device.ChannelState, local device.Capabilities, p message.Priority) float64 {
	if !st.Available {
		return 0
	}
	w, ok := priorityWeights[p]
	if !ok {
		w = priorityWeights[message.PriorityNormal]
	}

	total := latencyScore(st.RTTMillis)*w.latency +
		reliabilityScore(st.PacketLoss)*w.reliability +
		powerScore(ch, local)*w.power +
		costScore(st.Network, local.DataCostSensitive)*w.cost

	return math.Max(0, math.Min(1, total))
}

// latencyScore is 1 up to 10ms and decays logarithmically after.
func latencyScore(rttMillis uint32) float64 {
	return 1 / (1 + math.Max(0, math.Log(float64(rttMillis)/10)))
}

func reliabilityScore(loss float64) float64 {
	return 1 - math.Max(0, math.Min(1, loss))
}

func powerScore(ch device.ChannelType, local device.Capabilities) float64 {
	if local.Charging {
		return 1
	}
	battery := local.BatteryFraction()
	switch ch.PowerCost() {
	case 1:
		return 1
	case 2:
		return 0.8 * (0.5 + 0.5*battery)
	case 3:
		return 0.6 * battery
	default:
		return 0.4 * battery
	}
}

func costScore(n device.NetworkType, dataCostSensitive bool) float64 {
	switch n {
	case device.NetworkWiFi, device.NetworkEthernet, device.NetworkLoopback, device.NetworkBluetooth:
		return 1
	case device.NetworkCellular:
		if dataCostSensitive {
			return 0.1
		}
		return 0.6
	default:
		return 0.5
	}
}
