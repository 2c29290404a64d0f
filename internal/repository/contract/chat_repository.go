package contract

import (
	"context"

	"t3chat-be/internal/entity"
	"t3chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error
	Update(ctx context.Context, chat *entity.Chat) error
	// Delete removes the chat row; message rows follow via the store's
	// cascade constraint.
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chat, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error)
	// FindAllWithMessageCounts returns the user's chats with MessageCount
	// populated, which the sidebar needs to exclude empty chats.
	FindAllWithMessageCounts(ctx context.Context, userId uuid.UUID) ([]*entity.Chat, error)
	// FindScratch returns one title-less, message-less chat for reuse, or nil.
	FindScratch(ctx context.Context, userId uuid.UUID) (*entity.Chat, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
