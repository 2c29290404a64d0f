package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnedBy scopes a query to one user. Every chat and message read in the
// system goes through this; there are no unscoped lookups.
type OwnedBy struct {
	UserID uuid.UUID
}

func (s OwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// TitleIsNull matches chats whose title has not been derived yet.
type TitleIsNull struct{}

func (s TitleIsNull) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("title IS NULL")
}

// ByChatID filters messages by their owning chat.
type ByChatID struct {
	ChatID uuid.UUID
}

func (s ByChatID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_id = ?", s.ChatID)
}
