package implementation

import (
	"context"
	"errors"

	"t3chat-be/internal/entity"
	"t3chat-be/internal/mapper"
	"t3chat-be/internal/model"
	"t3chat-be/internal/repository/contract"
	"t3chat-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatRepository(db *gorm.DB) contract.ChatRepository {
	return &ChatRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatRepositoryImpl) Create(ctx context.Context, chat *entity.Chat) error {
	m := r.mapper.ChatToModel(chat)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*chat = *r.mapper.ChatToEntity(m)
	return nil
}

func (r *ChatRepositoryImpl) Update(ctx context.Context, chat *entity.Chat) error {
	m := r.mapper.ChatToModel(chat)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*chat = *r.mapper.ChatToEntity(m)
	return nil
}

func (r *ChatRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Chat{}, id).Error
}

func (r *ChatRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Chat, error) {
	var m model.Chat
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ChatToEntity(&m), nil
}

func (r *ChatRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chat, error) {
	var models []*model.Chat
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Chat, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatToEntity(m)
	}
	return entities, nil
}

type chatWithCount struct {
	model.Chat
	MessageCount int
}

func (r *ChatRepositoryImpl) FindAllWithMessageCounts(ctx context.Context, userId uuid.UUID) ([]*entity.Chat, error) {
	var rows []chatWithCount
	err := r.db.WithContext(ctx).
		Model(&model.Chat{}).
		Select("chats.*, count(messages.id) AS message_count").
		Joins("LEFT JOIN messages ON messages.chat_id = chats.id").
		Where("chats.user_id = ?", userId).
		Group("chats.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entities := make([]*entity.Chat, len(rows))
	for i, row := range rows {
		e := r.mapper.ChatToEntity(&row.Chat)
		e.MessageCount = row.MessageCount
		entities[i] = e
	}
	return entities, nil
}

func (r *ChatRepositoryImpl) FindScratch(ctx context.Context, userId uuid.UUID) (*entity.Chat, error) {
	var row chatWithCount
	err := r.db.WithContext(ctx).
		Model(&model.Chat{}).
		Select("chats.*, count(messages.id) AS message_count").
		Joins("LEFT JOIN messages ON messages.chat_id = chats.id").
		Where("chats.user_id = ? AND chats.title IS NULL", userId).
		Group("chats.id").
		Having("count(messages.id) = 0").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.Chat.Id == uuid.Nil {
		return nil, nil
	}
	return r.mapper.ChatToEntity(&row.Chat), nil
}

func (r *ChatRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Chat{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
