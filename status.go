package xlink

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/crypto"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/inbound"
	"github.com/Kirky-X/xlink/internal/routing"
	"github.com/Kirky-X/xlink/internal/service"
)

var (
	// ErrInvalidHandle is returned by every method called on a nil *Client.
	ErrInvalidHandle = errors.New("xlink: invalid client handle")
	// ErrClosed is returned by operations started after Close.
	ErrClosed = errors.New("xlink: client closed")
)

// Status is the stable integer result exposed across the C boundary.
// Zero means success; every failure is negative.
type Status int32

const (
	StatusOK                Status = 0
	StatusInvalidArgument   Status = -1
	StatusInvalidEncoding   Status = -2
	StatusSendFailed        Status = -3
	StatusInvalidIdentifier Status = -4
	StatusEmptyPayload      Status = -5
	StatusPayloadTooLarge   Status = -6
	StatusNoRoute           Status = -7
	StatusGroupNotFound     Status = -8
	StatusRateLimited       Status = -9
	StatusTimeout           Status = -10
	StatusHandleClosed      Status = -11
	StatusBroadcastFailed   Status = -12
	StatusUnavailable       Status = -13
)

var statusNames = map[Status]string{
	StatusOK:                "ok",
	StatusInvalidArgument:   "invalid argument",
	StatusInvalidEncoding:   "invalid encoding",
	StatusSendFailed:        "send failed",
	StatusInvalidIdentifier: "invalid identifier",
	StatusEmptyPayload:      "empty payload",
	StatusPayloadTooLarge:   "payload too large",
	StatusNoRoute:           "no route",
	StatusGroupNotFound:     "group not found",
	StatusRateLimited:       "rate limited",
	StatusTimeout:           "timeout",
	StatusHandleClosed:      "handle closed",
	StatusBroadcastFailed:   "broadcast failed",
	StatusUnavailable:       "unavailable",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

// statusTable is checked in order; the first matching sentinel wins.
var statusTable = []struct {
	err    error
	status Status
}{
	{ErrClosed, StatusHandleClosed},
	{inbound.ErrClosed, StatusHandleClosed},
	{channel.ErrClosed, StatusHandleClosed},
	{ErrInvalidHandle, StatusInvalidArgument},
	{message.ErrEmptyContent, StatusEmptyPayload},
	{message.ErrContentTooLong, StatusPayloadTooLarge},
	{message.ErrInvalidEncoding, StatusInvalidEncoding},
	{message.ErrInvalidPriority, StatusInvalidArgument},
	{service.ErrUnknownStrategy, StatusInvalidArgument},
	{group.ErrEmptyName, StatusInvalidArgument},
	{crypto.ErrInvalidKey, StatusInvalidArgument},
	{crypto.ErrState, StatusInvalidArgument},
	{device.ErrInvalidID, StatusInvalidIdentifier},
	{group.ErrInvalidID, StatusInvalidIdentifier},
	{service.ErrRateLimited, StatusRateLimited},
	{inbound.ErrRateLimited, StatusRateLimited},
	{group.ErrNotFound, StatusGroupNotFound},
	{service.ErrBroadcastFailed, StatusBroadcastFailed},
	{context.DeadlineExceeded, StatusTimeout},
	{channel.ErrUnavailable, StatusUnavailable},
	{routing.ErrNoRoute, StatusNoRoute},
}

// StatusOf maps an error returned by this package onto the status table.
// nil is StatusOK and errors outside the table are StatusSendFailed.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return StatusSendFailed
}
