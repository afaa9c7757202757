package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/Kirky-X/xlink/internal/domain/device"
	"github.com/Kirky-X/xlink/internal/wire"
)

// SessionTTL is how long a session key is used before the peer has to be
// trusted again.
const SessionTTL = 24 * time.Hour

const (
	nonceSize   = chacha20poly1305.NonceSize
	sessionInfo = "xlink|session|v1"
)

var (
	// ErrNoSession is returned when no key was agreed with the peer.
	ErrNoSession = errors.New("no session with peer")
	// ErrSessionExpired is returned once a session outlived SessionTTL. The
	// session is dropped.
	ErrSessionExpired = errors.New("session expired")
	// ErrCiphertext is returned for sealed text that does not authenticate.
	ErrCiphertext = errors.New("ciphertext rejected")
	// ErrState is returned by Import for a state blob that does not decode.
	ErrState = errors.New("invalid crypto state")
)

type session struct {
	peer    PublicKey
	key     [KeySize]byte
	created time.Time
	expires time.Time
}

// Engine holds the device identity and one session per trusted peer. It is
// safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	id       *Identity
	sessions map[device.ID]*session
	now      func() time.Time
}

// New returns an engine with a fresh identity and no sessions.
func New() (*Engine, error) {
	id, err := NewIdentity()
	if err != nil {
		return nil, err
	}
	return &Engine{id: id, sessions: make(map[device.ID]*session), now: time.Now}, nil
}

// Restore builds an engine from a blob written by Export.
func Restore(data []byte) (*Engine, error) {
	e := &Engine{sessions: make(map[device.ID]*session), now: time.Now}
	if err := e.Import(data); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) PublicKey() PublicKey {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.id.Public
}

// Establish derives the session key shared with peer from its public key.
// An existing session with peer is replaced.
func (e *Engine) Establish(peer device.ID, key PublicKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	secret, err := e.id.shared(key)
	if err != nil {
		return err
	}
	defer zero(secret)

	s := &session{peer: key, created: e.now()}
	s.expires = s.created.Add(SessionTTL)
	if err := derive(secret, e.id.Public, key, s.key[:]); err != nil {
		return err
	}
	if old, ok := e.sessions[peer]; ok {
		zero(old.key[:])
	}
	e.sessions[peer] = s
	return nil
}

// HasSession reports whether a session with peer was established, expired
// or not. Text for such a peer is sealed or not sent at all.
func (e *Engine) HasSession(peer device.ID) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.sessions[peer]
	return ok
}

// Peers returns how many sessions are held.
func (e *Engine) Peers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

// Forget drops the session with peer.
func (e *Engine) Forget(peer device.ID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.drop(peer)
}

// Clear drops every session and keeps the identity.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.sessions {
		e.drop(id)
	}
}

func (e *Engine) drop(peer device.ID) {
	if s, ok := e.sessions[peer]; ok {
		zero(s.key[:])
		delete(e.sessions, peer)
	}
}

// Seal encrypts plaintext for peer. The output is the random nonce followed
// by the ChaCha20-Poly1305 ciphertext; ad is authenticated but not sent.
func (e *Engine) Seal(peer device.ID, plaintext, ad []byte) ([]byte, error) {
	key, err := e.key(peer)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, nonceSize, nonceSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return aead.Seal(out, out, plaintext, ad), nil
}

// Open is the inverse of Seal for text received from peer.
func (e *Engine) Open(peer device.ID, sealed, ad []byte) ([]byte, error) {
	if len(sealed) < nonceSize+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: %d bytes is too short", ErrCiphertext, len(sealed))
	}
	key, err := e.key(peer)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], ad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	return pt, nil
}

// key returns a copy of the session key with peer.
func (e *Engine) key(peer device.ID) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[peer]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSession, peer)
	}
	if !e.now().Before(s.expires) {
		e.drop(peer)
		return nil, fmt.Errorf("%w: %s", ErrSessionExpired, peer)
	}
	return bytes.Clone(s.key[:]), nil
}

// derive runs HKDF-SHA256 over the DH secret. Both public keys go into the
// info string in byte order so the two ends derive the same key.
func derive(secret []byte, a, b PublicKey, out []byte) error {
	lo, hi := a, b
	if bytes.Compare(lo[:], hi[:]) > 0 {
		lo, hi = hi, lo
	}
	info := make([]byte, 0, len(sessionInfo)+2*KeySize)
	info = append(info, sessionInfo...)
	info = append(info, lo[:]...)
	info = append(info, hi[:]...)

	r := hkdf.New(sha256.New, secret, nil, info)
	if _, err := io.ReadFull(r, out); err != nil {
		return fmt.Errorf("derive session key: %w", err)
	}
	return nil
}

type state struct {
	Private  []byte         `cbor:"1,keyasint"`
	Sessions []sessionState `cbor:"2,keyasint,omitempty"`
}

type sessionState struct {
	Peer    []byte `cbor:"1,keyasint"`
	Public  []byte `cbor:"2,keyasint"`
	Key     []byte `cbor:"3,keyasint"`
	Created int64  `cbor:"4,keyasint"`
	Expires int64  `cbor:"5,keyasint"`
}

// Export writes the identity and every session to a CBOR blob for moving
// the device. The blob holds private keys in the clear.
func (e *Engine) Export() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := state{Private: bytes.Clone(e.id.private[:])}
	defer zero(st.Private)
	for id, s := range e.sessions {
		st.Sessions = append(st.Sessions, sessionState{
			Peer:    id.Bytes(),
			Public:  bytes.Clone(s.peer[:]),
			Key:     bytes.Clone(s.key[:]),
			Created: s.created.UnixNano(),
			Expires: s.expires.UnixNano(),
		})
	}
	data, err := wire.Marshal(&st)
	for _, s := range st.Sessions {
		zero(s.Key)
	}
	if err != nil {
		return nil, fmt.Errorf("export crypto state: %w", err)
	}
	return data, nil
}

// Import replaces the identity and sessions with those in data. Nothing
// changes when data is invalid.
func (e *Engine) Import(data []byte) error {
	var st state
	if err := wire.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("%w: %v", ErrState, err)
	}
	if len(st.Private) != KeySize {
		return fmt.Errorf("%w: private key", ErrState)
	}
	var priv [KeySize]byte
	copy(priv[:], st.Private)
	zero(st.Private)
	id, err := identityFrom(priv)
	zero(priv[:])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrState, err)
	}

	sessions := make(map[device.ID]*session, len(st.Sessions))
	for _, ss := range st.Sessions {
		peer, err := device.IDFromBytes(ss.Peer)
		if err != nil || len(ss.Public) != KeySize || len(ss.Key) != KeySize {
			return fmt.Errorf("%w: session", ErrState)
		}
		s := &session{created: time.Unix(0, ss.Created), expires: time.Unix(0, ss.Expires)}
		copy(s.peer[:], ss.Public)
		copy(s.key[:], ss.Key)
		zero(ss.Key)
		sessions[peer] = s
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for peer := range e.sessions {
		e.drop(peer)
	}
	if e.id != nil {
		zero(e.id.private[:])
	}
	e.id = id
	e.sessions = sessions
	return nil
}
