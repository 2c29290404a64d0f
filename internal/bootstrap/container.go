package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"t3chat-be/internal/config"
	"t3chat-be/internal/constant"
	"t3chat-be/internal/controller"
	"t3chat-be/internal/pkg/logger"
	"t3chat-be/internal/repository/memory"
	"t3chat-be/internal/repository/unitofwork"
	"t3chat-be/internal/service"
	"t3chat-be/internal/websocket"
	"t3chat-be/pkg/blob"
	"t3chat-be/pkg/chat/title"
	"t3chat-be/pkg/llm/factory"
	pktNats "t3chat-be/pkg/nats"
)

type Container struct {
	// Controllers
	AuthController       controller.IAuthController
	OAuthController      controller.IOAuthController
	ChatController       controller.IChatController
	AttachmentController controller.IAttachmentController
	WsController         controller.IWsController

	// Background services (exposed for main.go to run)
	TitleConsumerService service.ITitleConsumerService

	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. LLM provider
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.OpenRouterURL,
		cfg.Ai.OpenRouterAPIKey,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaModel,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s", cfg.Ai.LLMProvider)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	attachmentStore := blob.NewRedisStore(rdb, time.Duration(cfg.Attachment.TTLDays)*24*time.Hour)
	engineRegistry := memory.NewEngineRegistry()

	// WebSocket hub fed by NATS thread events
	wsLogger := logger.NewIsolatedLogger("logs/threads.log")
	wsHub := websocket.NewHub(wsLogger)
	go wsHub.Run()
	if natsSub != nil {
		if err := wsHub.AttachSubscriber(natsSub); err != nil {
			log.Printf("[WARN] Failed to attach hub to NATS: %v", err)
		}
	}

	// 5. Services
	publisherService := service.NewPublisherService(constant.ChatExchangeCompletedTopic, pubSub)
	titleGenerator := title.NewGenerator(llmProvider, cfg.Ai.TitleModel)
	titleConsumerService := service.NewTitleConsumerService(
		pubSub,
		constant.ChatExchangeCompletedTopic,
		uowFactory,
		titleGenerator,
		natsPub,
		sysLogger,
	)

	authService := service.NewAuthService(
		uowFactory,
		cfg.Auth.JwtSecret,
		cfg.Auth.AccessTokenTTLMin,
		cfg.Auth.RefreshTokenTTLDay,
	)
	oauthService := service.NewOAuthService(
		uowFactory,
		authService,
		cfg.Auth.GoogleClientID,
		cfg.Auth.GoogleClientSecret,
		cfg.App.BaseURL+"/api/oauth/v1/google/callback",
	)
	chatService := service.NewChatService(
		uowFactory,
		llmProvider,
		attachmentStore,
		engineRegistry,
		publisherService,
		natsPub,
		sysLogger,
	)
	attachmentService := service.NewAttachmentService(
		attachmentStore,
		cfg.Attachment.MaxFileBytes,
		cfg.Attachment.MaxFileCount,
	)

	// 6. Controllers
	return &Container{
		AuthController:       controller.NewAuthController(authService),
		OAuthController:      controller.NewOAuthController(oauthService),
		ChatController:       controller.NewChatController(chatService),
		AttachmentController: controller.NewAttachmentController(attachmentService),
		WsController:         controller.NewWsController(wsHub),
		TitleConsumerService: titleConsumerService,
		WebSocketHub:         wsHub,
	}
}
