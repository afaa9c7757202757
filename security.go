package xlink

import (
	"fmt"

	"github.com/Kirky-X/xlink/internal/audit"
	"github.com/Kirky-X/xlink/internal/crypto"
	"github.com/Kirky-X/xlink/internal/domain/device"
)

type (
	// PublicKey is the X25519 key a device shares with its peers.
	PublicKey  = crypto.PublicKey
	AuditEntry = audit.Entry
)

// DefaultAuditLimit is how many entries AuditLog returns for a limit of zero.
const DefaultAuditLimit = 100

// ParsePublicKey decodes the hex form printed by PublicKey.String.
func ParsePublicKey(s string) (PublicKey, error) { return crypto.ParsePublicKey(s) }

// PublicKey returns the local device key. Peers pass it to TrustPeer.
func (c *Client) PublicKey() (PublicKey, error) {
	if err := c.acquire(); err != nil {
		return PublicKey{}, err
	}
	defer c.release()
	return c.crypto.PublicKey(), nil
}

// TrustPeer agrees a session key with peer. From then on text to peer is
// sealed, and sealed text from peer can be read. Both sides have to trust
// each other.
func (c *Client) TrustPeer(peer DeviceID, key PublicKey) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	if peer.IsZero() || peer == c.self {
		return fmt.Errorf("trust peer: %w", device.ErrInvalidID)
	}
	if err := c.crypto.Establish(peer, key); err != nil {
		return fmt.Errorf("trust peer: %w", err)
	}
	c.audit.Record(audit.ActionPeerTrusted, fmt.Sprintf("peer=%s key=%s", peer, key.Fingerprint()))
	return nil
}

// ForgetPeer drops the session with peer. Text to peer goes out in the
// clear again.
func (c *Client) ForgetPeer(peer DeviceID) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	c.crypto.Forget(peer)
	c.audit.Record(audit.ActionPeerRemoved, "peer="+peer.String())
	return nil
}

// Trusted reports whether a session with peer is held.
func (c *Client) Trusted(peer DeviceID) bool {
	if c.acquire() != nil {
		return false
	}
	defer c.release()
	return c.crypto.HasSession(peer)
}

// ExportState returns the device key pair and every peer session, for
// moving this device identity to another client with WithCryptoState or
// ImportState. The blob holds private keys in the clear.
func (c *Client) ExportState() ([]byte, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()
	data, err := c.crypto.Export()
	if err != nil {
		return nil, err
	}
	c.audit.Record(audit.ActionExported, fmt.Sprintf("peers=%d", c.crypto.Peers()))
	return data, nil
}

// ImportState replaces the device key pair and sessions with an exported
// blob. The current state is kept when the blob is invalid.
func (c *Client) ImportState(data []byte) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	if err := c.crypto.Import(data); err != nil {
		return fmt.Errorf("import state: %w", err)
	}
	c.audit.Record(audit.ActionImported, fmt.Sprintf("peers=%d key=%s", c.crypto.Peers(), c.crypto.PublicKey().Fingerprint()))
	return nil
}

// AuditLog returns up to limit audit entries, newest first. Zero or less
// means DefaultAuditLimit.
func (c *Client) AuditLog(limit int) []AuditEntry {
	if c == nil {
		return nil
	}
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	return c.audit.Export(limit)
}
