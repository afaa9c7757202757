package device

// Type is the device class advertised to peers.
type Type string

const (
	TypeSmartphone Type = "smartphone"
	TypeLaptop     Type = "laptop"
	TypeServer     Type = "server"
	TypeIoT        Type = "iot"
)

// Capabilities describes what a device supports and its power situation.
type Capabilities struct {
	ID                ID
	Type              Type
	Name              string
	Channels          []ChannelType
	BatteryPercent    *uint8 // nil when mains powered
	Charging          bool
	DataCostSensitive bool
}

// Supports reports whether the device lists the channel.
func (c Capabilities) Supports(ct ChannelType) bool {
	for _, have := range c.Channels {
		if have == ct {
			return true
		}
	}
	return false
}

// BatteryFraction returns the battery level as 0..1, 1 when unknown.
func (c Capabilities) BatteryFraction() float64 {
	if c.BatteryPercent == nil {
		return 1
	}
	p := float64(*c.BatteryPercent)
	if p > 100 {
		p = 100
	}
	return p / 100
}
