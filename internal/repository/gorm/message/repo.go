// Package messagegorm stores messages in Postgres through GORM.
package messagegorm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Kirky-X/xlink/internal/db"
	"github.com/Kirky-X/xlink/internal/domain/message"
)

var _ message.Repository = (*Repository)(nil)

type Repository struct {
	db *gorm.DB
}

// NewRepository expects d to wrap a *gorm.DB.
func NewRepository(d db.DB) *Repository {
	return &Repository{db: d.Conn().(*gorm.DB)}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&MessageModel{})
}

func withStatus(s message.Status) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", string(s))
	}
}

func paginate(offset, limit int) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Offset(offset).Limit(limit)
	}
}

func (r *Repository) Save(ctx context.Context, msg *message.Message) error {
	row, err := fromDomain(msg)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	var row MessageModel
	switch err := r.db.WithContext(ctx).Take(&row, "id = ?", id).Error; {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, message.ErrNotFound
	case err != nil:
		return nil, err
	}
	return toDomain(&row)
}

// GetPending locks the rows it returns with SKIP LOCKED so that two
// gateways sharing the database never pick up the same message.
func (r *Repository) GetPending(ctx context.Context, limit int) ([]*message.Message, error) {
	var rows []MessageModel
	err := r.db.WithContext(ctx).
		Scopes(withStatus(message.StatusPending)).
		Order("priority DESC").Order("created_at ASC").
		Limit(limit).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainMany(rows)
}

func (r *Repository) GetSent(ctx context.Context, page, limit int) ([]*message.Message, int64, error) {
	sent := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&MessageModel{}).Scopes(withStatus(message.StatusSent))
	}

	var total int64
	if err := sent().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset, ok := message.Offset(page, limit)
	if !ok || int64(offset) >= total {
		return []*message.Message{}, total, nil
	}

	var rows []MessageModel
	if err := sent().Scopes(paginate(offset, limit)).Order("sent_at DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out, err := toDomainMany(rows)
	return out, total, err
}

func (r *Repository) UpdateStatus(ctx context.Context, m *message.Message) error {
	res := r.db.WithContext(ctx).
		Model(&MessageModel{ID: m.ID}).
		Select("status", "attempts", "last_error", "channel", "sent_at", "updated_at").
		Updates(&MessageModel{
			Status:    string(m.Status),
			Attempts:  m.Attempts,
			LastError: m.LastError,
			Channel:   string(m.Channel),
			SentAt:    m.SentAt,
			UpdatedAt: m.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return message.ErrNotFound
	}
	return nil
}

// Delete bypasses the soft-delete column.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&MessageModel{}, "id = ?", id).Error
}

func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res := r.db.WithContext(ctx).Unscoped().
		Where("status <> ?", string(message.StatusPending)).
		Where("created_at < ?", cutoff).
		Delete(&MessageModel{})
	return int(res.RowsAffected), res.Error
}

// Close shuts the connection pool.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
