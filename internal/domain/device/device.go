// Package device holds device identity, capabilities and per-channel link state.
package device

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// IDSize is the wire size of a device identifier.
const IDSize = 16

var (
	// ErrInvalidID is returned when an identifier cannot be decoded.
	ErrInvalidID = errors.New("invalid device identifier")
)

// ID identifies a single device. It is a plain 16-byte value so it can be
// compared with == and used as a map key. No value is reserved; the
// all-zero id is an ordinary device.
type ID [IDSize]byte

// NewID returns a random (v4) device identifier.
func NewID() ID {
	return ID(uuid.New())
}

// ParseID decodes the textual uuid form.
func ParseID(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return ID(u), nil
}

// IDFromBytes copies a 16-byte slice into an ID.
func IDFromBytes(b []byte) (ID, error) {
	if len(b) != IDSize {
		return ID{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidID, IDSize, len(b))
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

func (id ID) String() string { return uuid.UUID(id).String() }

// Bytes returns a copy of the raw identifier.
func (id ID) Bytes() []byte {
	b := make([]byte, IDSize)
	copy(b, id[:])
	return b
}

// IsZero reports whether every byte is zero. Informational only.
func (id ID) IsZero() bool { return id == ID{} }

// MarshalText encodes the id in uuid form for JSON and YAML.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes the uuid form.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
