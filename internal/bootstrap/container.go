package bootstrap

import (
	"context"
	"log"

	"ai-text-editor-be/internal/config"
	"ai-text-editor-be/internal/controller"
	"ai-text-editor-be/internal/pkg/inflight"
	"ai-text-editor-be/internal/pkg/logger"
	"ai-text-editor-be/internal/repository/memory"
	"ai-text-editor-be/internal/repository/unitofwork"
	"ai-text-editor-be/internal/service"
	editEvents "ai-text-editor-be/pkg/editing/events"
	"ai-text-editor-be/pkg/editing/gateway"
	"ai-text-editor-be/pkg/editing/message"
	"ai-text-editor-be/pkg/editing/state"
	"ai-text-editor-be/pkg/ingest"
	"ai-text-editor-be/pkg/llm"
	"ai-text-editor-be/pkg/llm/factory"
	"ai-text-editor-be/pkg/proposal"

	pktNats "ai-text-editor-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	EditorController controller.IEditorController
	EditController   controller.IEditController

	// Background Services (Exposed for main.go to run)
	RevisionConsumer service.IRevisionConsumer
	EventAudit       service.IEventAuditService

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. LLM
	llmProvider, err := factory.NewLLMProvider(context.Background(), factory.ProviderConfig{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  providerBaseURL(cfg),
		APIKey:   providerAPIKey(cfg),
		Timeout:  cfg.Ai.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	editGateway := gateway.NewLLMGateway(llmProvider, sysLogger,
		llm.WithTemperature(cfg.Ai.Temperature),
		llm.WithMaxTokens(cfg.Ai.MaxTokens),
	)

	// 4. Editing engine
	keep, err := proposal.ParseStripRule(cfg.Editor.DriftStripRule)
	if err != nil {
		log.Fatalf("[FATAL] Invalid drift strip rule: %v", err)
	}
	applier := proposal.NewApplier(proposal.WithDriftResolver(
		proposal.NewDriftResolver(keep, cfg.Editor.DriftMinBaseLength),
	))
	messages := message.NewFactory(nil)
	manager := state.NewManager(applier, messages, sysLogger)
	ingester := ingest.NewIngester(cfg.Editor.MaxDocumentBytes, cfg.Editor.AllowedExtensions,
		ingest.WithNFC(cfg.Editor.NormalizeNFC))
	sessionRepo := memory.NewSessionRepository(cfg.Editor.SessionTTL)

	// 5. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	c := &Container{Logger: sysLogger}
	if natsPub != nil {
		c.closers = append(c.closers, natsPub.Close)
	}
	if natsSub != nil {
		c.closers = append(c.closers, natsSub.Close)
	}
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	guard := newBusyGuard(cfg, c)

	// 6. Services
	revisionPublisher := service.NewRevisionPublisher(cfg.Editor.RevisionTopic, pubSub)
	c.RevisionConsumer = service.NewRevisionConsumer(
		pubSub,
		cfg.Editor.RevisionTopic,
		uowFactory,
		sysLogger,
	)

	editorService := service.NewEditorService(
		uowFactory,
		sessionRepo,
		guard,
		editGateway,
		manager,
		messages,
		ingester,
		revisionPublisher,
		editEvents.NewNatsPublisher(natsPub, sysLogger),
		sysLogger,
		service.EditorOptions{
			PreviewWidth:     cfg.Editor.PreviewWidth,
			DiffContextLines: cfg.Editor.DiffContextLines,
			DiffMaxLines:     cfg.Editor.DiffMaxLines,
		},
	)
	editService := service.NewEditService(editGateway)

	auditLogger := logger.NewIsolatedLogger(cfg.App.EventLogFilePath)
	c.EventAudit = service.NewEventAuditService(natsSub, auditLogger)

	// 7. Controllers
	c.EditorController = controller.NewEditorController(editorService)
	c.EditController = controller.NewEditController(editService)

	return c
}

// Close releases broker connections.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newBusyGuard(cfg *config.Config, c *Container) inflight.Guard {
	if cfg.App.BusyGuard != "redis" {
		return inflight.NewMemoryGuard(cfg.Editor.BusyTTL)
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
		log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-memory busy guard", err)
		_ = rdb.Close()
		return inflight.NewMemoryGuard(cfg.Editor.BusyTTL)
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })
	return inflight.NewRedisGuard(rdb, cfg.Editor.BusyTTL)
}

func providerAPIKey(cfg *config.Config) string {
	switch cfg.Ai.LLMProvider {
	case "gemini":
		return cfg.Keys.GoogleGemini
	case "openai":
		return cfg.Keys.OpenAI
	}
	return ""
}

func providerBaseURL(cfg *config.Config) string {
	switch cfg.Ai.LLMProvider {
	case "ollama":
		return cfg.Ai.OllamaBaseURL
	case "openai":
		return cfg.Ai.OpenAIBaseURL
	}
	return ""
}
