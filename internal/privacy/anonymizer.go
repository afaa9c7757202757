// Package privacy keeps raw device identifiers out of logs.
package privacy

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/Kirky-X/xlink/internal/domain/device"
)

// Anonymizer turns device ids into stable, keyed pseudonyms. The same id
// maps to the same pseudonym for the lifetime of the key.
type Anonymizer struct {
	enabled bool
	key     []byte
}

// New builds an anonymizer. An empty key is replaced by a random one, which
// keeps pseudonyms stable within the process only.
func New(enabled bool, key string) (*Anonymizer, error) {
	a := &Anonymizer{enabled: enabled}
	if !enabled {
		return a, nil
	}

	k := []byte(key)
	if len(k) == 0 {
		k = make([]byte, 32)
		if _, err := rand.Read(k); err != nil {
			return nil, fmt.Errorf("generate anonymizer key: %w", err)
		}
	}
	if len(k) > blake2b.Size {
		sum := blake2b.Sum512(k)
		k = sum[:]
	}
	a.key = k
	return a, nil
}

// Disabled returns an anonymizer that passes ids through.
func Disabled() *Anonymizer { return &Anonymizer{} }

// Device returns the log representation of id.
func (a *Anonymizer) Device(id device.ID) string {
	if a == nil || !a.enabled {
		return id.String()
	}
	h, _ := blake2b.New256(a.key)
	h.Write(id[:])
	return "anon-" + hex.EncodeToString(h.Sum(nil)[:8])
}

func (a *Anonymizer) Enabled() bool { return a != nil && a.enabled }
