package message

import (
	"fmt"
	"strings"
)

// Priority orders messages by urgency. The numeric values are part of the
// C ABI and must not change.
type Priority int32

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) Valid() bool { return p >= PriorityLow && p <= PriorityCritical }

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int32(p))
	}
}

// ParsePriority accepts names ("high") or ordinals ("2"). Empty means normal.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "1":
		return PriorityNormal, nil
	case "low", "0":
		return PriorityLow, nil
	case "high", "2":
		return PriorityHigh, nil
	case "critical", "3":
		return PriorityCritical, nil
	}
	return PriorityNormal, fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}
