package mapper

import (
	"encoding/json"
	"time"

	"t3chat-be/internal/entity"
	"t3chat-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Chat Mappers

func (m *ChatMapper) ChatToEntity(c *model.Chat) *entity.Chat {
	if c == nil {
		return nil
	}

	var updatedAt *time.Time
	if !c.UpdatedAt.IsZero() {
		t := c.UpdatedAt
		updatedAt = &t
	}

	return &entity.Chat{
		Id:        c.Id,
		UserId:    c.UserId,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: updatedAt,
		IsPinned:  c.IsPinned,
	}
}

func (m *ChatMapper) ChatToModel(c *entity.Chat) *model.Chat {
	if c == nil {
		return nil
	}

	var updatedAt time.Time
	if c.UpdatedAt != nil {
		updatedAt = *c.UpdatedAt
	}

	return &model.Chat{
		Id:        c.Id,
		UserId:    c.UserId,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: updatedAt,
		IsPinned:  c.IsPinned,
	}
}

// Message Mappers
//
// The content column stores the full message object (role + parts) as JSON,
// so the stored shape survives round trips even if columns never change.

type messageContent struct {
	Role  entity.Role          `json:"role"`
	Parts []entity.MessagePart `json:"parts"`
}

func (m *ChatMapper) MessageToEntity(msg *model.Message) (*entity.Message, error) {
	if msg == nil {
		return nil, nil
	}

	var content messageContent
	if err := json.Unmarshal(msg.Content, &content); err != nil {
		return nil, err
	}

	var attachmentIds []string
	if len(msg.AttachmentIds) > 0 {
		if err := json.Unmarshal(msg.AttachmentIds, &attachmentIds); err != nil {
			return nil, err
		}
	}

	var updatedAt *time.Time
	if !msg.UpdatedAt.IsZero() {
		t := msg.UpdatedAt
		updatedAt = &t
	}

	return &entity.Message{
		Id:            msg.Id,
		ChatId:        msg.ChatId,
		Role:          content.Role,
		Parts:         content.Parts,
		AttachmentIds: attachmentIds,
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     updatedAt,
	}, nil
}

func (m *ChatMapper) MessageToModel(msg *entity.Message) (*model.Message, error) {
	if msg == nil {
		return nil, nil
	}

	content, err := json.Marshal(messageContent{
		Role:  msg.Role,
		Parts: msg.Parts,
	})
	if err != nil {
		return nil, err
	}

	var attachmentIds []byte
	if len(msg.AttachmentIds) > 0 {
		attachmentIds, err = json.Marshal(msg.AttachmentIds)
		if err != nil {
			return nil, err
		}
	}

	var updatedAt time.Time
	if msg.UpdatedAt != nil {
		updatedAt = *msg.UpdatedAt
	}

	return &model.Message{
		Id:            msg.Id,
		ChatId:        msg.ChatId,
		Content:       content,
		AttachmentIds: attachmentIds,
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     updatedAt,
	}, nil
}
