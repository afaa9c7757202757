// Package memory is a process-local message repository.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kirky-X/xlink/internal/domain/message"
)

// Repository keeps messages in a map guarded by a mutex. Returned messages
// are copies.
type Repository struct {
	mu       sync.RWMutex
	messages map[uuid.UUID]*message.Message
}

func NewRepository() *Repository {
	return &Repository{messages: make(map[uuid.UUID]*message.Message)}
}

func (r *Repository) Save(_ context.Context, m *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.ID] = m.Clone()
	return nil
}

func (r *Repository) Get(_ context.Context, id uuid.UUID) (*message.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, message.ErrNotFound
	}
	return m.Clone(), nil
}

func (r *Repository) GetPending(_ context.Context, limit int) ([]*message.Message, error) {
	out := r.filter(message.StatusPending)
	message.SortPending(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) GetSent(_ context.Context, page, limit int) ([]*message.Message, int64, error) {
	out := r.filter(message.StatusSent)
	message.SortSent(out)
	return message.Page(out, page, limit), int64(len(out)), nil
}

func (r *Repository) UpdateStatus(_ context.Context, m *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.messages[m.ID]
	if !ok {
		return message.ErrNotFound
	}
	cur.Status = m.Status
	cur.Attempts = m.Attempts
	cur.LastError = m.LastError
	cur.Channel = m.Channel
	cur.SentAt = m.Clone().SentAt
	cur.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *Repository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, id)
	return nil
}

func (r *Repository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, m := range r.messages {
		if m.Status != message.StatusPending && m.CreatedAt.Before(cutoff) {
			delete(r.messages, id)
			n++
		}
	}
	return n, nil
}

func (r *Repository) Close() error { return nil }

func (r *Repository) filter(status message.Status) []*message.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*message.Message, 0)
	for _, m := range r.messages {
		if m.Status == status {
			out = append(out, m.Clone())
		}
	}
	return out
}

// compile-time interface check
var _ message.Repository = (*Repository)(nil)
