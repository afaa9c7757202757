package wire

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
	"github.com/Kirky-X/xlink/internal/domain/message"
)

// Envelope is the on-the-wire form of a message.
type Envelope struct {
	ID         []byte  `cbor:"1,keyasint"`
	Sender     []byte  `cbor:"2,keyasint"`
	Recipient  []byte  `cbor:"3,keyasint"`
	Group      []byte  `cbor:"4,keyasint,omitempty"`
	Kind       string  `cbor:"5,keyasint"`
	Text       string  `cbor:"6,keyasint,omitempty"`
	Timestamp  int64   `cbor:"7,keyasint,omitempty"`
	AckFor     []byte  `cbor:"8,keyasint,omitempty"`
	Invite     *Invite `cbor:"9,keyasint,omitempty"`
	Priority   int32   `cbor:"10,keyasint"`
	RequireAck bool    `cbor:"11,keyasint,omitempty"`
	CreatedAt  int64   `cbor:"12,keyasint"` // unix nanoseconds
	Sealed     []byte  `cbor:"13,keyasint,omitempty"`
}

type Invite struct {
	Group   []byte   `cbor:"1,keyasint"`
	Name    string   `cbor:"2,keyasint"`
	Owner   []byte   `cbor:"3,keyasint"`
	Members [][]byte `cbor:"4,keyasint"`
}

// Record is an envelope plus local delivery state, used by storage.
type Record struct {
	Envelope  Envelope `cbor:"1,keyasint"`
	Status    string   `cbor:"2,keyasint"`
	Attempts  int      `cbor:"3,keyasint,omitempty"`
	LastError string   `cbor:"4,keyasint,omitempty"`
	Channel   string   `cbor:"5,keyasint,omitempty"`
	SentAt    int64    `cbor:"6,keyasint,omitempty"`
	UpdatedAt int64    `cbor:"7,keyasint"`
}

// Validate checks the fields every envelope must carry.
func (e *Envelope) Validate() error {
	if len(e.ID) != 16 {
		return fmt.Errorf("%w: id", ErrMalformed)
	}
	if len(e.Sender) != device.IDSize || len(e.Recipient) != device.IDSize {
		return fmt.Errorf("%w: sender or recipient", ErrMalformed)
	}
	if e.Group != nil && len(e.Group) != device.IDSize {
		return fmt.Errorf("%w: group", ErrMalformed)
	}
	if e.Kind == "" {
		return fmt.Errorf("%w: kind", ErrMalformed)
	}
	if !message.Priority(e.Priority).Valid() {
		return fmt.Errorf("%w: priority %d", ErrMalformed, e.Priority)
	}
	return nil
}

// FromMessage converts a domain message to its envelope.
func FromMessage(m *message.Message) Envelope {
	e := Envelope{
		ID:         m.ID[:],
		Sender:     m.Sender.Bytes(),
		Recipient:  m.Recipient.Bytes(),
		Kind:       string(m.Payload.Kind),
		Text:       m.Payload.Text,
		Timestamp:  m.Payload.Timestamp,
		Priority:   int32(m.Priority),
		RequireAck: m.RequireAck,
		CreatedAt:  m.CreatedAt.UnixNano(),
		Sealed:     m.Payload.Sealed,
	}
	if m.GroupID != nil {
		e.Group = m.GroupID.Bytes()
	}
	if m.Payload.AckFor != uuid.Nil {
		e.AckFor = m.Payload.AckFor[:]
	}
	if inv := m.Payload.Invite; inv != nil {
		members := make([][]byte, len(inv.Members))
		for i, id := range inv.Members {
			members[i] = id.Bytes()
		}
		e.Invite = &Invite{
			Group:   inv.GroupID.Bytes(),
			Name:    inv.Name,
			Owner:   inv.Owner.Bytes(),
			Members: members,
		}
	}
	return e
}

// ToMessage converts a validated envelope back to a domain message.
func (e *Envelope) ToMessage() (*message.Message, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	id, err := uuid.FromBytes(e.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %v", ErrMalformed, err)
	}
	sender, _ := device.IDFromBytes(e.Sender)
	recipient, _ := device.IDFromBytes(e.Recipient)

	created := time.Unix(0, e.CreatedAt)
	m := &message.Message{
		ID:        id,
		Sender:    sender,
		Recipient: recipient,
		Payload: message.Payload{
			Kind:      message.Kind(e.Kind),
			Text:      e.Text,
			Timestamp: e.Timestamp,
			Sealed:    e.Sealed,
		},
		Priority:   message.Priority(e.Priority),
		RequireAck: e.RequireAck,
		Status:     message.StatusPending,
		CreatedAt:  created,
		UpdatedAt:  created,
	}

	if e.Group != nil {
		gid, _ := group.IDFromBytes(e.Group)
		m.GroupID = &gid
	}
	if e.AckFor != nil {
		ack, err := uuid.FromBytes(e.AckFor)
		if err != nil {
			return nil, fmt.Errorf("%w: ack id: %v", ErrMalformed, err)
		}
		m.Payload.AckFor = ack
	}
	if e.Invite != nil {
		inv, err := e.Invite.toDomain()
		if err != nil {
			return nil, err
		}
		m.Payload.Invite = inv
	}
	return m, nil
}

func (i *Invite) toDomain() (*message.Invite, error) {
	gid, err := group.IDFromBytes(i.Group)
	if err != nil {
		return nil, fmt.Errorf("%w: invite group", ErrMalformed)
	}
	owner, err := device.IDFromBytes(i.Owner)
	if err != nil {
		return nil, fmt.Errorf("%w: invite owner", ErrMalformed)
	}
	members := make([]device.ID, 0, len(i.Members))
	for _, b := range i.Members {
		id, err := device.IDFromBytes(b)
		if err != nil {
			return nil, fmt.Errorf("%w: invite member", ErrMalformed)
		}
		members = append(members, id)
	}
	return &message.Invite{GroupID: gid, Name: i.Name, Owner: owner, Members: members}, nil
}

// EncodeMessage encodes a message for transmission.
func EncodeMessage(m *message.Message) ([]byte, error) {
	e := FromMessage(m)
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return Marshal(&e)
}

// DecodeMessage decodes a received frame.
func DecodeMessage(data []byte) (*message.Message, error) {
	var e Envelope
	if err := Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return e.ToMessage()
}

// EncodeRecord encodes a message together with its delivery state.
func EncodeRecord(m *message.Message) ([]byte, error) {
	r := Record{
		Envelope:  FromMessage(m),
		Status:    string(m.Status),
		Attempts:  m.Attempts,
		LastError: m.LastError,
		Channel:   string(m.Channel),
		UpdatedAt: m.UpdatedAt.UnixNano(),
	}
	if m.SentAt != nil {
		r.SentAt = m.SentAt.UnixNano()
	}
	if err := r.Envelope.Validate(); err != nil {
		return nil, fmt.Errorf("invalid record: %w", err)
	}
	return Marshal(&r)
}

// DecodeRecord is the inverse of EncodeRecord.
func DecodeRecord(data []byte) (*message.Message, error) {
	var r Record
	if err := Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	m, err := r.Envelope.ToMessage()
	if err != nil {
		return nil, err
	}
	m.Status = message.Status(r.Status)
	m.Attempts = r.Attempts
	m.LastError = r.LastError
	m.Channel = device.ChannelType(r.Channel)
	m.UpdatedAt = time.Unix(0, r.UpdatedAt)
	if r.SentAt != 0 {
		sent := time.Unix(0, r.SentAt)
		m.SentAt = &sent
	}
	return m, nil
}
