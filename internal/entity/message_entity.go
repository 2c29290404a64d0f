package entity

import (
	"time"

	"github.com/google/uuid"
)

// Role is the tagged discriminator of a transcript message. Keeping it a
// closed set lets render and persistence paths switch exhaustively instead of
// carrying a loosely typed union around.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
	PartFile  PartType = "file"
)

// MessagePart is one structured chunk of a message body. Text parts carry the
// rendered text; image/file parts carry the inline payload sent to the model.
type MessagePart struct {
	Type         PartType `json:"type"`
	Text         string   `json:"text,omitempty"`
	MimeType     string   `json:"mimeType,omitempty"`
	Data         []byte   `json:"data,omitempty"`
	AttachmentId string   `json:"attachmentId,omitempty"`
}

type Message struct {
	Id            uuid.UUID
	ChatId        uuid.UUID
	Role          Role
	Parts         []MessagePart
	AttachmentIds []string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// Text concatenates the message's text parts, which is what title derivation
// and the provider wire format need.
func (m *Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}
