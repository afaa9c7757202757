// Package badger stores messages in an embedded Badger database so pending
// messages survive restarts without an external server.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/Kirky-X/xlink/internal/domain/message"
	"github.com/Kirky-X/xlink/internal/wire"
)

var keyPrefix = []byte("msg/")

// Repository is a Badger-backed implementation of message.Repository.
// Records are CBOR encoded under "msg/<uuid>".
type Repository struct {
	db *badgerdb.DB
}

// Open opens (or creates) the database in dir. An empty dir keeps
// everything in memory.
func Open(dir string) (*Repository, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", dir, err)
	}
	return &Repository{db: db}, nil
}

func key(id uuid.UUID) []byte {
	return append(append([]byte{}, keyPrefix...), id.String()...)
}

func (r *Repository) Save(ctx context.Context, m *message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := wire.EncodeRecord(m)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key(m.ID), data)
	})
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *message.Message
	err := r.db.View(func(txn *badgerdb.Txn) error {
		m, err := get(txn, id)
		out = m
		return err
	})
	return out, err
}

func get(txn *badgerdb.Txn, id uuid.UUID) (*message.Message, error) {
	item, err := txn.Get(key(id))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, message.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return wire.DecodeRecord(data)
}

func (r *Repository) GetPending(ctx context.Context, limit int) ([]*message.Message, error) {
	out, err := r.scan(ctx, func(m *message.Message) bool { return m.Status == message.StatusPending })
	if err != nil {
		return nil, err
	}
	message.SortPending(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Repository) GetSent(ctx context.Context, page, limit int) ([]*message.Message, int64, error) {
	out, err := r.scan(ctx, func(m *message.Message) bool { return m.Status == message.StatusSent })
	if err != nil {
		return nil, 0, err
	}
	message.SortSent(out)
	return message.Page(out, page, limit), int64(len(out)), nil
}

func (r *Repository) UpdateStatus(ctx context.Context, m *message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badgerdb.Txn) error {
		cur, err := get(txn, m.ID)
		if err != nil {
			return err
		}
		cur.Status = m.Status
		cur.Attempts = m.Attempts
		cur.LastError = m.LastError
		cur.Channel = m.Channel
		cur.SentAt = m.SentAt
		cur.UpdatedAt = m.UpdatedAt
		data, err := wire.EncodeRecord(cur)
		if err != nil {
			return err
		}
		return txn.Set(key(m.ID), data)
	})
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(key(id))
	})
}

func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	old, err := r.scan(ctx, func(m *message.Message) bool {
		return m.Status != message.StatusPending && m.CreatedAt.Before(cutoff)
	})
	if err != nil {
		return 0, err
	}
	if len(old) == 0 {
		return 0, nil
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()
	for _, m := range old {
		if err := wb.Delete(key(m.ID)); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(old), nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// scan decodes every stored record and keeps the ones accepted by keep.
func (r *Repository) scan(ctx context.Context, keep func(*message.Message) bool) ([]*message.Message, error) {
	out := make([]*message.Message, 0)
	err := r.db.View(func(txn *badgerdb.Txn) error {
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			m, err := wire.DecodeRecord(data)
			if err != nil {
				return fmt.Errorf("record %s: %w", it.Item().Key(), err)
			}
			if keep(m) {
				out = append(out, m)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// compile-time interface check
var _ message.Repository = (*Repository)(nil)
