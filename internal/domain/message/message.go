// Package message holds the domain model and invariants for messages.
package message

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/group"
)

const (
	// TextSizeLimit bounds text payloads in bytes. A payload of exactly
	// TextSizeLimit bytes is already rejected.
	TextSizeLimit = 32 * 1024
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

var (
	// ErrEmptyContent is returned when the text is empty or only whitespace.
	ErrEmptyContent = errors.New("message content is required")
	// ErrContentTooLong is returned when the text reaches TextSizeLimit.
	ErrContentTooLong = errors.New("message content exceeds maximum length")
	// ErrInvalidEncoding is returned when the text is not valid UTF-8.
	ErrInvalidEncoding = errors.New("message content is not valid UTF-8")
	// ErrInvalidPriority is returned for priorities outside Low..Critical.
	ErrInvalidPriority = errors.New("invalid message priority")
	// ErrNotFound is returned by repositories for unknown message ids.
	ErrNotFound = errors.New("message not found")
)

// Kind tells what a payload carries.
type Kind string

const (
	KindText        Kind = "text"
	KindPing        Kind = "ping"
	KindPong        Kind = "pong"
	KindAck         Kind = "ack"
	KindGroupInvite Kind = "group_invite"
)

// Invite carries enough of a group for the receiver to register it.
type Invite struct {
	GroupID group.ID
	Name    string
	Owner   device.ID
	Members []device.ID
}

type Payload struct {
	Kind Kind
	Text string
	// Timestamp is the sender clock in unix milliseconds, used by ping/pong.
	Timestamp int64
	// AckFor is the acknowledged message id.
	AckFor uuid.UUID
	Invite *Invite
	// Sealed is the encrypted form of Text while the message is on the
	// wire. Text is empty until the receiver opens it.
	Sealed []byte
}

// Size approximates the number of bytes the payload occupies on the wire.
func (p Payload) Size() int {
	n := len(p.Kind) + 8
	n += len(p.Text) + len(p.Sealed)
	if p.Invite != nil {
		n += len(p.Invite.Name) + device.IDSize*(2+len(p.Invite.Members))
	}
	return n
}

// Message is the core domain entity exchanged between devices.
type Message struct {
	ID         uuid.UUID
	Sender     device.ID
	Recipient  device.ID
	GroupID    *group.ID
	Payload    Payload
	Priority   Priority
	RequireAck bool
	Status     Status
	Attempts   int
	LastError  string
	Channel    device.ChannelType
	SentAt     *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateText enforces the text payload rules.
func ValidateText(text string) error {
	if !utf8.ValidString(text) {
		return ErrInvalidEncoding
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyContent
	}
	if len(text) >= TextSizeLimit {
		return ErrContentTooLong
	}
	return nil
}

// NewText constructs a new pending text Message and enforces basic domain rules.
// The text is kept byte for byte.
func NewText(sender, recipient device.ID, text string, priority Priority) (*Message, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}
	return newMessage(sender, recipient, Payload{Kind: KindText, Text: text}, priority), nil
}

// NewControl builds a non-text message (ping, pong, ack, invite).
func NewControl(sender, recipient device.ID, p Payload, priority Priority) *Message {
	return newMessage(sender, recipient, p, priority)
}

func newMessage(sender, recipient device.ID, p Payload, priority Priority) *Message {
	now := time.Now()
	return &Message{
		ID:        uuid.New(),
		Sender:    sender,
		Recipient: recipient,
		Payload:   p,
		Priority:  priority,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// InGroup tags the message as one leg of a group broadcast.
func (m *Message) InGroup(id group.ID) *Message {
	gid := id
	m.GroupID = &gid
	return m
}

// IsControl reports whether the message is protocol traffic rather than
// user content.
func (m *Message) IsControl() bool {
	switch m.Payload.Kind {
	case KindPing, KindPong, KindAck:
		return true
	}
	return false
}

// MarkSent marks the message as delivered to the transport.
func (m *Message) MarkSent(ch device.ChannelType) {
	now := time.Now()
	m.SentAt = &now
	m.Status = StatusSent
	m.Channel = ch
	m.LastError = ""
	m.UpdatedAt = now
}

// RecordFailure counts a failed attempt and keeps the message pending.
func (m *Message) RecordFailure(reason string) {
	m.Attempts++
	m.Status = StatusPending
	m.LastError = reason
	m.UpdatedAt = time.Now()
}

// MarkFailed gives up on the message.
func (m *Message) MarkFailed(reason string) {
	m.Status = StatusFailed
	m.LastError = reason
	m.UpdatedAt = time.Now()
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	c := *m
	if m.GroupID != nil {
		gid := *m.GroupID
		c.GroupID = &gid
	}
	if m.SentAt != nil {
		t := *m.SentAt
		c.SentAt = &t
	}
	if inv := m.Payload.Invite; inv != nil {
		ci := *inv
		ci.Members = append([]device.ID(nil), inv.Members...)
		c.Payload.Invite = &ci
	}
	return &c
}
