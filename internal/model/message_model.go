package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Message id is supplied by the producing engine (user input or model
// response), never generated by the store, so a replay of the same finished
// exchange upserts instead of duplicating.
type Message struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ChatId        uuid.UUID      `gorm:"type:uuid;not null;index"`
	Content       datatypes.JSON `gorm:"not null"` // full message object: role + parts
	AttachmentIds datatypes.JSON
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (Message) TableName() string {
	return "messages"
}
