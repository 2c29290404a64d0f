package contract

import (
	"context"

	"t3chat-be/internal/entity"
	"t3chat-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type UserProviderRepository interface {
	Create(ctx context.Context, provider *entity.UserProvider) error
	FindByProvider(ctx context.Context, providerName, providerUserId string) (*entity.UserProvider, error)
}

type UserRefreshTokenRepository interface {
	Create(ctx context.Context, token *entity.UserRefreshToken) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context) error
}
