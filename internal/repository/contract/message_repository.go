package contract

import (
	"context"

	"t3chat-be/internal/entity"
	"t3chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	// UpsertBatch writes a finished exchange keyed by message id. Replaying
	// the same batch overwrites instead of duplicating.
	UpsertBatch(ctx context.Context, messages []*entity.Message) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	CountByChatId(ctx context.Context, chatId uuid.UUID) (int64, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
