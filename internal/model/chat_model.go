package model

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	Id     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId uuid.UUID `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	Title  *string   `gorm:"type:text"`                // null until derived from the first exchange
	// CreatedAt is re-stamped to the completion time of the chat's first
	// exchange so the sidebar groups by first-activity time. Not a strict
	// row-creation timestamp.
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	IsPinned  bool      `gorm:"not null;default:false"`

	Messages []Message `gorm:"foreignKey:ChatId;constraint:OnDelete:CASCADE"`
}

func (Chat) TableName() string {
	return "chats"
}
