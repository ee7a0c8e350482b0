package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/maestro/internal/common"
	"github.com/ternarybob/maestro/internal/handlers"
	"github.com/ternarybob/maestro/internal/interfaces"
	"github.com/ternarybob/maestro/internal/services/assistant"
	"github.com/ternarybob/maestro/internal/services/conversation"
	"github.com/ternarybob/maestro/internal/services/decision"
	"github.com/ternarybob/maestro/internal/services/embeddings"
	"github.com/ternarybob/maestro/internal/services/ingest"
	"github.com/ternarybob/maestro/internal/services/llm"
	"github.com/ternarybob/maestro/internal/services/retrieval"
	"github.com/ternarybob/maestro/internal/services/scheduler"
	"github.com/ternarybob/maestro/internal/services/vector"
	"github.com/ternarybob/maestro/internal/services/whatsapp"
	"github.com/ternarybob/maestro/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Core services
	ConversationService *conversation.Service
	LLMService          *llm.ProviderFactory
	DecisionService     *decision.Service
	EmbeddingService    *embeddings.Service
	VectorIndex         *vector.Index
	RetrievalService    *retrieval.Service

	// AssistantService delivers replies over WhatsApp; AskService only returns them
	AssistantService *assistant.Service
	AskService       *assistant.Service

	// Supporting services
	WhatsAppClient   *whatsapp.Client
	IngestService    *ingest.Service
	SchedulerService interfaces.SchedulerService

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	WebhookHandler   *handlers.WebhookHandler
	AskHandler       *handlers.AskHandler
	SchedulerHandler *handlers.SchedulerHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().Msg("Application initialization complete")
	return app, nil
}

func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Bool("in_memory", a.Config.Storage.Badger.InMemory).
		Msg("Storage layer initialized")

	return nil
}

func (a *App) initServices() error {
	cfg := a.Config

	// 1. Conversation store
	a.ConversationService = conversation.NewService(
		a.StorageManager.ListStorage(),
		conversation.NewConfig(&cfg.Conversation),
		a.Logger,
	)

	// 2. LLM providers (generation + classification oracles)
	a.LLMService = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, a.Logger)

	// 3. Turn-completion decision engine
	a.DecisionService = decision.NewService(a.LLMService, decision.NewConfig(&cfg.Decision), a.Logger)

	// 4. Knowledge base: embeddings, vector index, retrieval
	a.EmbeddingService = embeddings.NewService(&cfg.Embeddings, cfg.Gemini.APIKey, a.Logger)
	a.VectorIndex = vector.NewIndex(a.StorageManager.ChunkStorage(), a.EmbeddingService, a.Logger)
	a.RetrievalService = retrieval.NewService(a.VectorIndex, retrieval.NewConfig(&cfg.Retrieval), a.Logger)

	// 5. Response assemblers sharing one turn lock
	var assistantOpts []assistant.Option
	if cfg.Assistant.SerializeTurns {
		assistantOpts = append(assistantOpts, assistant.WithTurnLock(assistant.NewTurnLock()))
	}

	webhookOpts := append([]assistant.Option{}, assistantOpts...)
	if cfg.WhatsApp.AccessToken != "" && cfg.WhatsApp.PhoneNumberID != "" {
		a.WhatsAppClient = whatsapp.NewClientFromConfig(&cfg.WhatsApp, a.Logger)
		webhookOpts = append(webhookOpts,
			assistant.WithMediaFetcher(a.WhatsAppClient),
			assistant.WithSink(whatsapp.NewSink(a.WhatsAppClient, cfg.WhatsApp.FormatMarkdown, a.Logger)),
		)
	} else {
		a.Logger.Warn().Msg("WhatsApp access token or phone number id not configured - replies will not be delivered")
	}

	assistantConfig := assistant.NewConfig(&cfg.Assistant)
	a.AssistantService = assistant.NewService(
		a.ConversationService, a.DecisionService, a.LLMService, a.RetrievalService,
		assistantConfig, a.Logger, webhookOpts...,
	)
	a.AskService = assistant.NewService(
		a.ConversationService, a.DecisionService, a.LLMService, a.RetrievalService,
		assistantConfig, a.Logger, assistantOpts...,
	)

	// 6. Corpus ingestion
	a.IngestService = ingest.NewService(a.StorageManager.ChunkStorage(), a.VectorIndex, &cfg.Ingest, a.Logger)

	// 7. Maintenance scheduler (started by the serve command)
	schedulerService := scheduler.NewService(a.Logger)
	if err := scheduler.RegisterMaintenanceJobs(schedulerService, a.StorageManager, &cfg.Scheduler); err != nil {
		return fmt.Errorf("failed to register maintenance jobs: %w", err)
	}
	a.SchedulerService = schedulerService

	a.Logger.Info().
		Str("provider", string(cfg.LLM.DefaultProvider)).
		Bool("serialize_turns", cfg.Assistant.SerializeTurns).
		Bool("question_fast_path", cfg.Decision.QuestionFastPath).
		Bool("whatsapp_delivery", a.WhatsAppClient != nil).
		Msg("Services initialized")

	return nil
}

func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.Logger)
	a.WebhookHandler = handlers.NewWebhookHandler(a.Config.WhatsApp.VerifyToken, a.AssistantService, a.Logger)
	a.AskHandler = handlers.NewAskHandler(a.AskService, a.Logger)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService, a.Logger)
}

// StartScheduler starts maintenance jobs when enabled in config
func (a *App) StartScheduler() error {
	if !a.Config.Scheduler.Enabled {
		a.Logger.Info().Msg("Scheduler disabled")
		return nil
	}
	return a.SchedulerService.Start()
}

// Close stops background work and closes all resources
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	// Let accepted webhook turns finish before storage goes away
	if a.WebhookHandler != nil {
		a.WebhookHandler.Wait()
	}

	if a.LLMService != nil {
		if err := a.LLMService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
