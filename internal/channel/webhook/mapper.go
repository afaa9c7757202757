package webhook

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/request"
	"github.com/Kirky-X/xlink/internal/wire"
)

// ErrBadPayload is returned for inbound relay payloads that do not decode.
var ErrBadPayload = errors.New("invalid relay payload")

// ToRequest maps a message onto the relay JSON format. Group invites and
// sealed text do not fit the flat JSON shape and travel as a CBOR frame.
func ToRequest(m *message.Message) (request.WebhookRequest, error) {
	req := request.WebhookRequest{
		ID:         m.ID.String(),
		From:       m.Sender.String(),
		To:         m.Recipient.String(),
		Kind:       string(m.Payload.Kind),
		Content:    m.Payload.Text,
		Priority:   int32(m.Priority),
		Timestamp:  m.Payload.Timestamp,
		RequireAck: m.RequireAck,
	}
	if m.GroupID != nil {
		req.Group = m.GroupID.String()
	}
	if m.Payload.AckFor != uuid.Nil {
		req.AckFor = m.Payload.AckFor.String()
	}
	if m.Payload.Invite != nil || len(m.Payload.Sealed) > 0 {
		frame, err := wire.EncodeMessage(m)
		if err != nil {
			return req, err
		}
		req.Frame = frame
	}
	return req, nil
}

// FromRequest is the inverse of ToRequest.
func FromRequest(req request.WebhookRequest) (*message.Message, error) {
	if len(req.Frame) > 0 {
		m, err := wire.DecodeMessage(req.Frame)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
		return m, nil
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: id", ErrBadPayload)
	}
	from, err := device.ParseID(req.From)
	if err != nil {
		return nil, fmt.Errorf("%w: from", ErrBadPayload)
	}
	to, err := device.ParseID(req.To)
	if err != nil {
		return nil, fmt.Errorf("%w: to", ErrBadPayload)
	}
	prio := message.Priority(req.Priority)
	if !prio.Valid() {
		return nil, fmt.Errorf("%w: priority", ErrBadPayload)
	}
	if req.Kind == "" {
		return nil, fmt.Errorf("%w: kind", ErrBadPayload)
	}

	now := time.Now()
	m := &message.Message{
		ID:        id,
		Sender:    from,
		Recipient: to,
		Payload: message.Payload{
			Kind:      message.Kind(req.Kind),
			Text:      req.Content,
			Timestamp: req.Timestamp,
		},
		Priority:   prio,
		RequireAck: req.RequireAck,
		Status:     message.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Group != "" {
		gid, err := group.ParseID(req.Group)
		if err != nil {
			return nil, fmt.Errorf("%w: group", ErrBadPayload)
		}
		m.GroupID = &gid
	}
	if req.AckFor != "" {
		ack, err := uuid.Parse(req.AckFor)
		if err != nil {
			return nil, fmt.Errorf("%w: ackFor", ErrBadPayload)
		}
		m.Payload.AckFor = ack
	}
	return m, nil
}
