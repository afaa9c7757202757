package messagegorm

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageModel is one row of the messages table. Frame holds the encoded
// wire frame of non-text kinds. The dispatch index serves GetPending.
type MessageModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Sender     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Recipient  uuid.UUID  `gorm:"type:uuid;not null;index"`
	GroupID    *uuid.UUID `gorm:"type:uuid;index"`
	Kind       string     `gorm:"size:20;not null"`
	Content    string     `gorm:"type:text"`
	Frame      []byte     `gorm:"type:bytea"`
	Priority   int32      `gorm:"not null;index:idx_messages_dispatch,priority:1"`
	RequireAck bool       `gorm:"not null;default:false"`
	Status     string     `gorm:"size:20;not null;index"`
	Attempts   int        `gorm:"not null;default:0"`
	LastError  string     `gorm:"type:text"`
	Channel    string     `gorm:"size:20"`
	SentAt     *time.Time `gorm:"index"`
	CreatedAt  time.Time  `gorm:"not null;index:idx_messages_dispatch,priority:2"`
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (MessageModel) TableName() string {
	return "messages"
}

func (m *MessageModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
