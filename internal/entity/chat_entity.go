package entity

import (
	"time"

	"github.com/google/uuid"
)

type Chat struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Title     *string
	CreatedAt time.Time
	UpdatedAt *time.Time
	IsPinned  bool

	// Populated by list queries only.
	MessageCount int
}

// Scratch reports whether the chat is an untouched placeholder eligible for
// reuse by the new-chat entry point.
func (c *Chat) Scratch() bool {
	return c.Title == nil && c.MessageCount == 0
}
