package xlink

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kirky-X/xlink/internal/channel"
	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/routing"
	"github.com/Kirky-X/xlink/internal/service"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{"nil", nil, StatusOK},
		{"nil handle", ErrInvalidHandle, StatusInvalidArgument},
		{"closed", ErrClosed, StatusHandleClosed},
		{"channel closed", fmt.Errorf("relay: %w", channel.ErrClosed), StatusHandleClosed},
		{"empty", fmt.Errorf("send: %w", message.ErrEmptyContent), StatusEmptyPayload},
		{"too long", message.ErrContentTooLong, StatusPayloadTooLarge},
		{"utf8", message.ErrInvalidEncoding, StatusInvalidEncoding},
		{"priority", message.ErrInvalidPriority, StatusInvalidArgument},
		{"strategy", service.ErrUnknownStrategy, StatusInvalidArgument},
		{"group name", group.ErrEmptyName, StatusInvalidArgument},
		{"device id", fmt.Errorf("%w: short", device.ErrInvalidID), StatusInvalidIdentifier},
		{"group id", group.ErrInvalidID, StatusInvalidIdentifier},
		{"rate", service.ErrRateLimited, StatusRateLimited},
		{"no group", fmt.Errorf("broadcast: %w", group.ErrNotFound), StatusGroupNotFound},
		{"broadcast", service.ErrBroadcastFailed, StatusBroadcastFailed},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), StatusTimeout},
		{"unavailable", fmt.Errorf("memory: %w", channel.ErrUnavailable), StatusUnavailable},
		{"no route", routing.ErrNoRoute, StatusNoRoute},
		{"all channels down", fmt.Errorf("%w: 2 channel(s) down: %w", routing.ErrNoRoute, channel.ErrUnavailable), StatusUnavailable},
		{"joined", errors.Join(errors.New("webhook: 502"), context.DeadlineExceeded), StatusTimeout},
		{"unknown", errors.New("boom"), StatusSendFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestStatusValuesAreStable(t *testing.T) {
	assert.EqualValues(t, 0, StatusOK)
	assert.EqualValues(t, -1, StatusInvalidArgument)
	assert.EqualValues(t, -2, StatusInvalidEncoding)
	assert.EqualValues(t, -3, StatusSendFailed)
	assert.EqualValues(t, -4, StatusInvalidIdentifier)
	assert.EqualValues(t, -13, StatusUnavailable)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", StatusOK.String())
	assert.Equal(t, "group not found", StatusGroupNotFound.String())
	assert.Equal(t, "status(42)", Status(42).String())
}
