package service

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"t3chat-be/internal/constant"
	"t3chat-be/internal/dto"
	"t3chat-be/internal/pkg/logger"
	"t3chat-be/internal/repository/specification"
	"t3chat-be/internal/repository/unitofwork"
	"t3chat-be/pkg/chat/title"
	pktNats "t3chat-be/pkg/nats"
)

type ITitleConsumerService interface {
	Consume(ctx context.Context) error
}

// titleConsumerService listens for completed first exchanges and derives a
// short title for the chat. Derivation is best effort; on any failure the
// chat simply stays untitled and the message is acked.
type titleConsumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	generator      *title.Generator
	eventPublisher *pktNats.Publisher
	log            logger.ILogger
}

func NewTitleConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	generator *title.Generator,
	eventPublisher *pktNats.Publisher,
	log logger.ILogger,
) ITitleConsumerService {
	return &titleConsumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		generator:      generator,
		eventPublisher: eventPublisher,
		log:            log,
	}
}

func (cs *titleConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *titleConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.ChatExchangeCompletedEvent
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("TitleConsumer", "failed to unmarshal exchange event", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	chat, err := uow.ChatRepository().FindOne(ctx,
		specification.ByID{ID: payload.ChatId},
		specification.OwnedBy{UserID: payload.UserId},
	)
	if err != nil || chat == nil {
		return
	}
	// Another exchange or device may have titled the chat already.
	if chat.Title != nil {
		return
	}

	derived, err := cs.generator.Derive(ctx, payload.FirstUserText)
	if err != nil {
		cs.log.Warn("TitleConsumer", "title derivation failed", map[string]interface{}{
			"chat_id": payload.ChatId,
			"error":   err.Error(),
		})
		return
	}

	chat.Title = &derived
	if err := uow.ChatRepository().Update(ctx, chat); err != nil {
		cs.log.Error("TitleConsumer", "failed to save derived title", map[string]interface{}{
			"chat_id": payload.ChatId,
			"error":   err.Error(),
		})
		return
	}

	if cs.eventPublisher != nil {
		subject := constant.ThreadEventsSubjectPrefix + payload.UserId.String()
		_ = cs.eventPublisher.Publish(subject, dto.ThreadEvent{
			Type:   "threads.invalidate",
			UserId: payload.UserId,
			ChatId: payload.ChatId,
		})
	}
}
