package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"t3chat-be/internal/constant"
	"t3chat-be/internal/dto"
	"t3chat-be/internal/entity"
	"t3chat-be/internal/pkg/logger"
	"t3chat-be/internal/pkg/serverutils"
	"t3chat-be/internal/repository/memory"
	"t3chat-be/internal/repository/specification"
	"t3chat-be/internal/repository/unitofwork"
	"t3chat-be/pkg/blob"
	"t3chat-be/pkg/chat/session"
	"t3chat-be/pkg/chat/threadlist"
	"t3chat-be/pkg/llm"
	pktNats "t3chat-be/pkg/nats"
)

type IChatService interface {
	NewChat(ctx context.Context, userId uuid.UUID) (*dto.NewChatResponse, error)
	List(ctx context.Context, userId uuid.UUID, query string) (*dto.ListChatsResponse, error)
	Show(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ShowChatResponse, error)
	ApplyIntent(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, req *dto.ChatIntentRequest) (*dto.ChatIntentResponse, error)
	// Stream runs one submission end to end: optimistic append, inference
	// relay through onChunk, then batch persistence. It returns once the
	// stream finishes, fails, or is stopped from another request.
	Stream(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, req *dto.StreamChatRequest, onChunk func(chunk string) error) error
	Stop(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.StopChatResponse, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	llmProvider      llm.LLMProvider
	blobStore        blob.Store
	engines          *memory.EngineRegistry
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	log              logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	blobStore blob.Store,
	engines *memory.EngineRegistry,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:       uowFactory,
		llmProvider:      llmProvider,
		blobStore:        blobStore,
		engines:          engines,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		log:              log,
	}
}

// NewChat reuses the user's scratch chat when one exists, otherwise inserts
// a fresh row. At most one scratch chat per user survives this way.
func (s *chatService) NewChat(ctx context.Context, userId uuid.UUID) (*dto.NewChatResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	scratch, err := uow.ChatRepository().FindScratch(ctx, userId)
	if err != nil {
		return nil, err
	}
	if scratch != nil {
		return &dto.NewChatResponse{Id: scratch.Id, Reused: true}, nil
	}

	chat := &entity.Chat{
		Id:        uuid.New(),
		UserId:    userId,
		CreatedAt: time.Now(),
	}
	if err := uow.ChatRepository().Create(ctx, chat); err != nil {
		return nil, err
	}
	return &dto.NewChatResponse{Id: chat.Id}, nil
}

func (s *chatService) List(ctx context.Context, userId uuid.UUID, query string) (*dto.ListChatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chats, err := uow.ChatRepository().FindAllWithMessageCounts(ctx, userId)
	if err != nil {
		return nil, err
	}

	base := make([]entity.Chat, 0, len(chats))
	for _, c := range chats {
		base = append(base, *c)
	}

	sync := threadlist.NewSynchronizer()
	sync.SetBase(base)

	groups := sync.Render(time.Now(), query)
	res := &dto.ListChatsResponse{Groups: make([]dto.ChatGroup, 0, len(groups))}
	for _, g := range groups {
		items := make([]dto.ChatListItem, 0, len(g.Chats))
		for _, c := range g.Chats {
			items = append(items, dto.ChatListItem{
				Id:           c.Id,
				Title:        c.Title,
				IsPinned:     c.IsPinned,
				CreatedAt:    c.CreatedAt,
				MessageCount: c.MessageCount,
			})
		}
		res.Groups = append(res.Groups, dto.ChatGroup{Label: g.Label, Chats: items})
	}
	return res, nil
}

func (s *chatService) Show(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.ShowChatResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := s.findOwnedChat(ctx, uow, userId, chatId)
	if err != nil {
		return nil, err
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	res := &dto.ShowChatResponse{
		Id:        chat.Id,
		Title:     chat.Title,
		IsPinned:  chat.IsPinned,
		CreatedAt: chat.CreatedAt,
		Messages:  make([]dto.MessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		parts := make([]dto.MessagePartResponse, 0, len(m.Parts))
		for _, p := range m.Parts {
			parts = append(parts, dto.MessagePartResponse{
				Type:         string(p.Type),
				Text:         p.Text,
				MimeType:     p.MimeType,
				AttachmentId: p.AttachmentId,
			})
		}
		res.Messages = append(res.Messages, dto.MessageResponse{
			Id:            m.Id,
			Role:          string(m.Role),
			Parts:         parts,
			AttachmentIds: m.AttachmentIds,
			CreatedAt:     m.CreatedAt,
		})
	}
	return res, nil
}

func (s *chatService) ApplyIntent(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, req *dto.ChatIntentRequest) (*dto.ChatIntentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := s.findOwnedChat(ctx, uow, userId, chatId)
	if err != nil {
		return nil, err
	}

	res := &dto.ChatIntentResponse{Id: chat.Id}

	switch req.Intent {
	case constant.ChatIntentRename:
		title := strings.TrimSpace(req.Title)
		if title == "" {
			return nil, &serverutils.ValidationError{Fields: map[string]string{
				"title": "must not be empty",
			}}
		}
		chat.Title = &title
		if err := uow.ChatRepository().Update(ctx, chat); err != nil {
			return nil, err
		}

	case constant.ChatIntentPin:
		if req.IsPinned == nil {
			return nil, &serverutils.ValidationError{Fields: map[string]string{
				"isPinned": "must be provided",
			}}
		}
		chat.IsPinned = *req.IsPinned
		if err := uow.ChatRepository().Update(ctx, chat); err != nil {
			return nil, err
		}

	case constant.ChatIntentDelete:
		if err := uow.ChatRepository().Delete(ctx, chatId); err != nil {
			return nil, err
		}
		if req.Current == chatId.String() {
			res.Redirect = "/chat"
		}

	default:
		return nil, serverutils.ErrInvalidIntent
	}

	s.publishThreadEvent(userId, chatId, "threads.invalidate")
	return res, nil
}

func (s *chatService) Stream(ctx context.Context, userId uuid.UUID, chatId uuid.UUID, req *dto.StreamChatRequest, onChunk func(chunk string) error) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	chat, err := s.findOwnedChat(ctx, uow, userId, chatId)
	if err != nil {
		return err
	}

	prior, err := uow.MessageRepository().FindAll(ctx,
		specification.ByChatID{ChatID: chatId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return err
	}
	transcript := make([]entity.Message, 0, len(prior))
	for _, m := range prior {
		transcript = append(transcript, *m)
	}

	userMsg, err := s.buildUserMessage(ctx, userId, req)
	if err != nil {
		return err
	}

	engine := session.NewEngine(chatId, userId, transcript)
	if err := engine.Submit(userMsg, req.ModelId); err != nil {
		switch {
		case errors.Is(err, session.ErrEmptyMessage):
			return &serverutils.ValidationError{Fields: map[string]string{
				"text": "message needs text or attachments",
			}}
		case errors.Is(err, session.ErrUnknownModel):
			return &serverutils.ValidationError{Fields: map[string]string{
				"model_id": "unknown model",
			}}
		}
		return err
	}

	s.engines.Put(chatId, engine)
	defer s.engines.Delete(chatId)

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	engine.SetAbort(cancel)

	history := historyForProvider(engine.History())

	_, err = s.llmProvider.ChatStream(streamCtx, history, func(chunk string) error {
		if err := engine.AppendChunk(chunk); err != nil {
			return err
		}
		return onChunk(chunk)
	}, llm.WithModel(req.ModelId))
	if err != nil {
		engine.Fail(err)
		s.log.Error("ChatService", "inference stream failed", map[string]interface{}{
			"chat_id": chatId,
			"error":   err.Error(),
		})
		return err
	}

	batch, err := engine.Complete(time.Now())
	if errors.Is(err, session.ErrNoActiveStream) {
		// Stopped from another request; that request persisted the batch.
		return nil
	}
	if err != nil {
		return err
	}

	return s.persistBatch(ctx, chat, batch)
}

func (s *chatService) Stop(ctx context.Context, userId uuid.UUID, chatId uuid.UUID) (*dto.StopChatResponse, error) {
	engine, ok := s.engines.Get(chatId)
	if !ok || engine.UserId() != userId {
		return nil, serverutils.ErrNotFound
	}

	batch, err := engine.Stop(time.Now())
	if err != nil {
		return nil, serverutils.ErrNotFound
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	chat, err := s.findOwnedChat(ctx, uow, userId, chatId)
	if err != nil {
		return nil, err
	}
	if err := s.persistBatch(ctx, chat, batch); err != nil {
		return nil, err
	}

	return &dto.StopChatResponse{Id: chatId, Persisted: len(batch.Messages)}, nil
}

func (s *chatService) findOwnedChat(ctx context.Context, uow unitofwork.UnitOfWork, userId, chatId uuid.UUID) (*entity.Chat, error) {
	chat, err := uow.ChatRepository().FindOne(ctx,
		specification.ByID{ID: chatId},
		specification.OwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, serverutils.ErrNotFound
	}
	return chat, nil
}

// buildUserMessage assembles the optimistic user message, resolving each
// attachment reference to an inline payload. Any resolution failure fails the
// whole submission before anything is sent.
func (s *chatService) buildUserMessage(ctx context.Context, userId uuid.UUID, req *dto.StreamChatRequest) (entity.Message, error) {
	msg := entity.Message{
		Role:      entity.RoleUser,
		CreatedAt: time.Now(),
	}
	if req.MessageId != nil {
		msg.Id = *req.MessageId
	}
	if text := strings.TrimSpace(req.Text); text != "" {
		msg.Parts = append(msg.Parts, entity.MessagePart{Type: entity.PartText, Text: text})
	}

	for _, id := range req.AttachmentIds {
		obj, err := s.blobStore.Get(ctx, id, userId.String())
		if err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				return entity.Message{}, serverutils.ErrNotFound
			}
			return entity.Message{}, err
		}

		partType := entity.PartFile
		if strings.HasPrefix(obj.ContentType, "image/") {
			partType = entity.PartImage
		}
		msg.Parts = append(msg.Parts, entity.MessagePart{
			Type:         partType,
			MimeType:     obj.ContentType,
			Data:         obj.Data,
			AttachmentId: id,
		})
		msg.AttachmentIds = append(msg.AttachmentIds, id)
	}
	return msg, nil
}

// persistBatch writes a finished exchange in one transaction. On the first
// exchange it also re-stamps the chat's createdAt to the completion time and
// queues title derivation.
func (s *chatService) persistBatch(ctx context.Context, chat *entity.Chat, batch *session.Batch) error {
	if len(batch.Messages) == 0 {
		return nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	messages := make([]*entity.Message, 0, len(batch.Messages))
	for i := range batch.Messages {
		messages = append(messages, &batch.Messages[i])
	}
	if err := uow.MessageRepository().UpsertBatch(ctx, messages); err != nil {
		return err
	}

	if batch.FirstExchange {
		chat.CreatedAt = batch.CompletedAt
		if err := uow.ChatRepository().Update(ctx, chat); err != nil {
			return err
		}
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	if batch.FirstExchange {
		s.queueTitleDerivation(ctx, chat, batch)
	}
	s.publishThreadEvent(chat.UserId, chat.Id, "threads.invalidate")
	return nil
}

func (s *chatService) queueTitleDerivation(ctx context.Context, chat *entity.Chat, batch *session.Batch) {
	var firstUserText string
	for i := range batch.Messages {
		if batch.Messages[i].Role == entity.RoleUser {
			firstUserText = batch.Messages[i].Text()
			break
		}
	}

	payload, err := json.Marshal(dto.ChatExchangeCompletedEvent{
		ChatId:        chat.Id,
		UserId:        chat.UserId,
		FirstUserText: firstUserText,
		CompletedAt:   batch.CompletedAt,
	})
	if err != nil {
		s.log.Error("ChatService", "failed to marshal exchange event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	// Best effort: a lost event just leaves the chat untitled.
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		s.log.Error("ChatService", "failed to publish exchange event", map[string]interface{}{
			"chat_id": chat.Id,
			"error":   err.Error(),
		})
	}
}

func (s *chatService) publishThreadEvent(userId, chatId uuid.UUID, eventType string) {
	if s.eventPublisher == nil {
		return
	}
	subject := constant.ThreadEventsSubjectPrefix + userId.String()
	err := s.eventPublisher.Publish(subject, dto.ThreadEvent{
		Type:   eventType,
		UserId: userId,
		ChatId: chatId,
	})
	if err != nil {
		s.log.Warn("ChatService", "failed to publish thread event", map[string]interface{}{
			"subject": subject,
			"error":   err.Error(),
		})
	}
}

// historyForProvider flattens typed transcript messages into the provider's
// wire shape: text joined per message, binary parts as inline files.
func historyForProvider(transcript []entity.Message) []llm.Message {
	out := make([]llm.Message, 0, len(transcript))
	for i := range transcript {
		m := &transcript[i]
		wire := llm.Message{
			Role:    string(m.Role),
			Content: m.Text(),
		}
		for _, p := range m.Parts {
			if p.Type == entity.PartText || len(p.Data) == 0 {
				continue
			}
			wire.Files = append(wire.Files, llm.File{
				MimeType: p.MimeType,
				Data:     p.Data,
			})
		}
		out = append(out, wire)
	}
	return out
}
