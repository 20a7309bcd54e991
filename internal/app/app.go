package app

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/common"
	"github.com/ternarybob/genero/internal/handlers"
	"github.com/ternarybob/genero/internal/interfaces"
	"github.com/ternarybob/genero/internal/queue"
	"github.com/ternarybob/genero/internal/services/events"
	"github.com/ternarybob/genero/internal/services/generation"
	"github.com/ternarybob/genero/internal/services/providers"
	badgerstore "github.com/ternarybob/genero/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService

	Registry          *providers.Registry
	UsageTracker      *providers.Tracker
	HealthChecker     *providers.Checker
	GenerationService *generation.Service

	Coordinator *queue.Coordinator

	// HTTP handlers
	JobHandler      *handlers.JobHandler
	QueueHandler    *handlers.QueueHandler
	ProviderHandler *handlers.ProviderHandler
	StatusHandler   *handlers.StatusHandler
	WSHandler       *handlers.WebSocketHandler

	cleanupCron *cron.Cron
}

// New initializes the application with all dependencies
func New(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Storage
	storageManager, err := badgerstore.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.StorageManager = storageManager

	// Events
	app.EventService = events.NewService(logger)
	app.EventService.SubscribeAll(events.NewLoggerSubscriber(logger))
	app.WSHandler = handlers.NewWebSocketHandler(app.EventService, logger)

	// Providers
	app.Registry = providers.NewRegistry(logger)
	app.UsageTracker = providers.NewTracker(logger,
		providers.WithFailureThreshold(cfg.Usage.FailureThreshold),
		providers.WithCooldownWindow(common.ParseDurationOr(cfg.Usage.CooldownWindow, providers.DefaultCooldownWindow)),
	)
	if err := app.registerProviders(ctx); err != nil {
		return nil, fmt.Errorf("failed to register providers: %w", err)
	}
	app.HealthChecker = providers.NewChecker(app.Registry, app.EventService, cfg.Health.Schedule, logger)

	// Generation
	app.GenerationService = generation.NewService(app.Registry, app.UsageTracker, storageManager.AssetSink(), logger)

	// Queues
	app.Coordinator = queue.NewCoordinator(storageManager.JobStorage(), app.EventService, cfg.Queues, logger)
	app.registerJobHandlers()

	// HTTP handlers
	app.JobHandler = handlers.NewJobHandler(app.Coordinator, logger)
	app.QueueHandler = handlers.NewQueueHandler(app.Coordinator, logger)
	app.ProviderHandler = handlers.NewProviderHandler(app.Registry, app.UsageTracker, app.HealthChecker, logger)
	app.StatusHandler = handlers.NewStatusHandler(app.Coordinator, app.Registry, logger)

	// Retention sweep
	app.cleanupCron = cron.New()
	grace := common.ParseDurationOr(cfg.Cleanup.GracePeriod, handlers.DefaultCleanGrace)
	if _, err := app.cleanupCron.AddFunc(cfg.Cleanup.Schedule, func() {
		if _, err := app.Coordinator.CleanAll(context.Background(), grace); err != nil {
			logger.Warn().Err(err).Msg("Retention sweep failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	return app, nil
}

// registerProviders loads descriptor files and builds a driver for each
func (a *App) registerProviders(ctx context.Context) error {
	descriptors, err := providers.LoadDescriptors(a.Config.Providers.Dir, a.Logger)
	if err != nil {
		return err
	}
	if len(descriptors) == 0 {
		a.Logger.Warn().
			Str("dir", a.Config.Providers.Dir).
			Msg("No provider descriptors found, generation jobs will fail")
	}

	for _, desc := range descriptors {
		var provider interfaces.Provider
		switch desc.Driver {
		case "claude":
			provider = generation.NewClaudeProvider(desc, a.Logger)
		case "gemini":
			provider, err = generation.NewGeminiProvider(ctx, desc, a.Logger)
			if err != nil {
				a.Logger.Warn().
					Err(err).
					Str("provider", desc.Name).
					Msg("Failed to initialize gemini provider, skipping")
				continue
			}
		case "relay":
			provider = generation.NewRelayProvider(desc, a.Logger)
		default:
			a.Logger.Warn().
				Str("provider", desc.Name).
				Str("driver", desc.Driver).
				Msg("Unknown provider driver, skipping")
			continue
		}

		if err := a.Registry.Register(desc, provider); err != nil {
			return err
		}
		a.UsageTracker.Track(desc.Name, desc.RateLimit)
	}
	return nil
}

// Start starts the background components: worker pools, health sweeps and
// the retention cron
func (a *App) Start(ctx context.Context) error {
	if err := a.Coordinator.Start(ctx); err != nil {
		return fmt.Errorf("failed to start queue coordinator: %w", err)
	}
	if err := a.HealthChecker.Start(); err != nil {
		return fmt.Errorf("failed to start health checker: %w", err)
	}
	a.cleanupCron.Start()

	a.Logger.Info().
		Int("queues", len(a.Config.Queues)).
		Int("providers", len(a.Registry.List())).
		Msg("Application started")
	return nil
}

// Stop shuts the background components down in dependency order and closes
// storage last
func (a *App) Stop() {
	cronCtx := a.cleanupCron.Stop()
	<-cronCtx.Done()

	a.HealthChecker.Stop()
	a.Coordinator.Stop()

	if err := a.StorageManager.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close storage")
	}

	a.Logger.Info().Msg("Application stopped")
}
