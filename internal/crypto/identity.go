// Package crypto seals message text between two devices that exchanged
// X25519 public keys.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the size of X25519 keys and derived session keys.
const KeySize = 32

// ErrInvalidKey is returned for public or private keys of the wrong size or
// low order.
var ErrInvalidKey = errors.New("invalid key")

// PublicKey is an X25519 public key.
type PublicKey [KeySize]byte

func (k PublicKey) String() string { return hex.EncodeToString(k[:]) }

// Fingerprint returns a short, stable digest of the key for display.
func (k PublicKey) Fingerprint() string {
	sum := sha256.Sum256(k[:])
	return hex.EncodeToString(sum[:10])
}

// ParsePublicKey decodes a hex encoded public key.
func ParsePublicKey(s string) (PublicKey, error) {
	var k PublicKey
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != KeySize {
		return k, fmt.Errorf("%w: want %d hex encoded bytes", ErrInvalidKey, KeySize)
	}
	copy(k[:], b)
	return k, nil
}

// Identity is the long-term key pair of a device.
type Identity struct {
	private [KeySize]byte
	Public  PublicKey
}

// NewIdentity returns a fresh key pair. The private key is clamped per
// RFC 7748.
func NewIdentity() (*Identity, error) {
	var priv [KeySize]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, fmt.Errorf("generate identity: %w", err)
	}
	return identityFrom(priv)
}

func identityFrom(priv [KeySize]byte) (*Identity, error) {
	clamp(&priv)
	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	id := &Identity{private: priv}
	copy(id.Public[:], pub)
	return id, nil
}

// shared computes the X25519 Diffie-Hellman secret with peer. Low order
// points are rejected by curve25519 and reported as ErrInvalidKey.
func (id *Identity) shared(peer PublicKey) ([]byte, error) {
	secret, err := curve25519.X25519(id.private[:], peer[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return secret, nil
}

func clamp(k *[KeySize]byte) {
	k[0] &= 248
	k[31] &= 127
	k[31] |= 64
}

// zero overwrites b.
func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
