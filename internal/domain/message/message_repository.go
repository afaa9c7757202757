package message

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository stores outgoing messages until they are delivered and for the
// retention window afterwards. Implementations live under
// internal/repository.
type Repository interface {
	Save(ctx context.Context, m *Message) error

	// Get returns a message by id or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (*Message, error)

	// GetPending returns up to limit messages that are still waiting to be
	// sent, highest priority first and oldest first within a priority.
	GetPending(ctx context.Context, limit int) ([]*Message, error)

	// GetSent pages through sent messages newest first. page starts at 1.
	// The count is the total over all pages.
	GetSent(ctx context.Context, page, limit int) ([]*Message, int64, error)

	// UpdateStatus writes status, attempts, channel, error and sent time.
	UpdateStatus(ctx context.Context, m *Message) error

	// Delete removes a message. Unknown ids are not an error.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteOlderThan removes messages created before cutoff that are no
	// longer pending and reports how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	Close() error
}
