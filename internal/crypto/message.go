package crypto

import (
	"fmt"
	"unicode/utf8"

	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/domain/message"
)

// SealMessage returns a copy of m carrying its text sealed for the
// recipient. m itself is left untouched so the stored copy keeps the text.
// Messages without text go out as they are.
func (e *Engine) SealMessage(m *message.Message) (*message.Message, error) {
	if m.Payload.Kind != message.KindText || len(m.Payload.Sealed) > 0 {
		return m, nil
	}
	sealed, err := e.Seal(m.Recipient, []byte(m.Payload.Text), associated(m))
	if err != nil {
		return nil, fmt.Errorf("seal message %s: %w", m.ID, err)
	}
	out := *m
	out.Payload.Text = ""
	out.Payload.Sealed = sealed
	return &out, nil
}

// OpenMessage restores the text of a sealed message from its sender in
// place.
func (e *Engine) OpenMessage(m *message.Message) error {
	if len(m.Payload.Sealed) == 0 {
		return nil
	}
	pt, err := e.Open(m.Sender, m.Payload.Sealed, associated(m))
	if err != nil {
		return fmt.Errorf("open message %s: %w", m.ID, err)
	}
	if !utf8.Valid(pt) {
		return fmt.Errorf("open message %s: %w", m.ID, message.ErrInvalidEncoding)
	}
	m.Payload.Text = string(pt)
	m.Payload.Sealed = nil
	return nil
}

// associated binds the ciphertext to the message id and both ends.
func associated(m *message.Message) []byte {
	ad := make([]byte, 0, len(m.ID)+2*device.IDSize)
	ad = append(ad, m.ID[:]...)
	ad = append(ad, m.Sender.Bytes()...)
	ad = append(ad, m.Recipient.Bytes()...)
	return ad
}
