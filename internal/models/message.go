package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a persisted chat message. It is never updated after creation.
type Message struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	SenderID   string    `gorm:"type:varchar(36);not null;index" json:"senderId"`
	ChatViewID string    `gorm:"type:varchar(36);not null;index:idx_chatview_created" json:"chatViewId"`
	CreatedAt  time.Time `gorm:"index:idx_chatview_created" json:"createdAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return nil
}
