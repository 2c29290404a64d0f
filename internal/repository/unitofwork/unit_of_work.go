package unitofwork

import (
	"context"

	"t3chat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	UserProviderRepository() contract.UserProviderRepository
	UserRefreshTokenRepository() contract.UserRefreshTokenRepository

	ChatRepository() contract.ChatRepository
	MessageRepository() contract.MessageRepository
}
