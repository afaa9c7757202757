package messagegorm

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/wire"
)

// toDomain maps a GORM MessageModel to a domain-level Message.
// Control payloads other than plain text are restored from the CBOR frame.
func toDomain(m *MessageModel) (*message.Message, error) {
	var out *message.Message
	if len(m.Frame) > 0 {
		decoded, err := wire.DecodeMessage(m.Frame)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", m.ID, err)
		}
		out = decoded
	} else {
		out = &message.Message{
			ID:        m.ID,
			Sender:    device.ID(m.Sender),
			Recipient: device.ID(m.Recipient),
			Payload:   message.Payload{Kind: message.Kind(m.Kind), Text: m.Content},
		}
		if m.GroupID != nil {
			gid := group.ID(*m.GroupID)
			out.GroupID = &gid
		}
	}

	out.Priority = message.Priority(m.Priority)
	out.RequireAck = m.RequireAck
	out.Status = message.Status(m.Status)
	out.Attempts = m.Attempts
	out.LastError = m.LastError
	out.Channel = device.ChannelType(m.Channel)
	out.SentAt = m.SentAt
	out.CreatedAt = m.CreatedAt
	out.UpdatedAt = m.UpdatedAt
	return out, nil
}

// toDomainMany maps a slice of MessageModel to a slice of domain Messages.
func toDomainMany(models []MessageModel) ([]*message.Message, error) {
	out := make([]*message.Message, len(models))
	for i := range models {
		m, err := toDomain(&models[i])
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// fromDomain maps a domain-level Message to a GORM MessageModel.
func fromDomain(d *message.Message) (*MessageModel, error) {
	model := &MessageModel{
		ID:         d.ID,
		Sender:     uuid.UUID(d.Sender),
		Recipient:  uuid.UUID(d.Recipient),
		Kind:       string(d.Payload.Kind),
		Content:    d.Payload.Text,
		Priority:   int32(d.Priority),
		RequireAck: d.RequireAck,
		Status:     string(d.Status),
		Attempts:   d.Attempts,
		LastError:  d.LastError,
		Channel:    string(d.Channel),
		SentAt:     d.SentAt,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
	if d.GroupID != nil {
		gid := uuid.UUID(*d.GroupID)
		model.GroupID = &gid
	}
	if d.Payload.Kind != message.KindText {
		frame, err := wire.EncodeMessage(d)
		if err != nil {
			return nil, err
		}
		model.Frame = frame
	}
	return model, nil
}
