package dto

import (
	"time"

	"github.com/google/uuid"
)

type NewChatResponse struct {
	Id uuid.UUID `json:"id"`
	// Reused signals that an existing scratch chat was handed back instead
	// of a fresh row.
	Reused bool `json:"reused"`
}

type ChatListItem struct {
	Id           uuid.UUID `json:"id"`
	Title        *string   `json:"title"`
	IsPinned     bool      `json:"is_pinned"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

type ChatGroup struct {
	Label string         `json:"label"`
	Chats []ChatListItem `json:"chats"`
}

type ListChatsResponse struct {
	Groups []ChatGroup `json:"groups"`
}

type MessagePartResponse struct {
	Type         string `json:"type"`
	Text         string `json:"text,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	AttachmentId string `json:"attachment_id,omitempty"`
}

type MessageResponse struct {
	Id            uuid.UUID             `json:"id"`
	Role          string                `json:"role"`
	Parts         []MessagePartResponse `json:"parts"`
	AttachmentIds []string              `json:"attachment_ids,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

type ShowChatResponse struct {
	Id        uuid.UUID         `json:"id"`
	Title     *string           `json:"title"`
	IsPinned  bool              `json:"is_pinned"`
	CreatedAt time.Time         `json:"created_at"`
	Messages  []MessageResponse `json:"messages"`
}

// ChatIntentRequest is the form-encoded mutation payload. Title is required
// for rename, IsPinned for pin; delete carries nothing extra.
type ChatIntentRequest struct {
	Intent   string `form:"intent" validate:"required,oneof=rename pin delete"`
	Title    string `form:"title"`
	IsPinned *bool  `form:"isPinned"`
	// Current is the chat id the client has open, so a delete of the open
	// chat can answer with a redirect target.
	Current string `form:"current"`
}

type ChatIntentResponse struct {
	Id uuid.UUID `json:"id"`
	// Redirect is set when the deleted chat is the one the client has open.
	Redirect string `json:"redirect,omitempty"`
}

type StreamChatRequest struct {
	// MessageId lets the client supply the optimistic message's id so a
	// retried submission upserts instead of duplicating.
	MessageId     *uuid.UUID `json:"message_id"`
	Text          string     `json:"text"`
	ModelId       string     `json:"model_id" validate:"required"`
	AttachmentIds []string   `json:"attachment_ids"`
}

type StopChatResponse struct {
	Id        uuid.UUID `json:"id"`
	Persisted int       `json:"persisted"`
}

// ChatExchangeCompletedEvent rides the internal bus after a first exchange
// finishes, triggering best-effort title derivation.
type ChatExchangeCompletedEvent struct {
	ChatId        uuid.UUID `json:"chat_id"`
	UserId        uuid.UUID `json:"user_id"`
	FirstUserText string    `json:"first_user_text"`
	CompletedAt   time.Time `json:"completed_at"`
}

// ThreadEvent is the cross-device invalidation payload pushed over NATS and
// relayed to websocket clients.
type ThreadEvent struct {
	Type   string    `json:"type"`
	UserId uuid.UUID `json:"user_id"`
	ChatId uuid.UUID `json:"chat_id"`
}
