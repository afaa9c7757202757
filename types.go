package xlink

import (
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/metrics"
	"github.com/Kirky-X/xlink/internal/service"
)

type (
	DeviceID     = device.ID
	GroupID      = group.ID
	Priority     = message.Priority
	Message      = message.Message
	Group        = group.Group
	Capabilities = device.Capabilities
	ChannelType  = device.ChannelType

	Strategy        = service.Strategy
	BroadcastResult = service.BroadcastResult
	MetricsReport   = metrics.Report
)

const (
	PriorityLow      = message.PriorityLow
	PriorityNormal   = message.PriorityNormal
	PriorityHigh     = message.PriorityHigh
	PriorityCritical = message.PriorityCritical

	StrategyDirect         = service.StrategyDirect
	StrategyFanOut         = service.StrategyFanOut
	StrategyPowerEfficient = service.StrategyPowerEfficient

	// TextSizeLimit is the exclusive upper bound on text size in bytes.
	TextSizeLimit = message.TextSizeLimit
)

// ParseDeviceID decodes the textual uuid form of a device id.
func ParseDeviceID(s string) (DeviceID, error) { return device.ParseID(s) }

// ParseGroupID decodes the textual uuid form of a group id.
func ParseGroupID(s string) (GroupID, error) { return group.ParseID(s) }

// NewDeviceID returns a random device id.
func NewDeviceID() DeviceID { return device.NewID() }

// ParsePriority accepts names ("high") or ordinals ("2"). Empty means normal.
func ParsePriority(s string) (Priority, error) { return message.ParsePriority(s) }

// ParseStrategy accepts direct, fan_out or power_efficient. Empty means
// direct.
func ParseStrategy(s string) (Strategy, error) { return service.ParseStrategy(s) }
