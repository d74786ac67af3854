// Package container provides dependency injection for all singleton services
package container

import (
	"fmt"

	"github.com/ecowell/eco-engine-go/internal/application/services"
	"github.com/ecowell/eco-engine-go/internal/domain/entities/engagement"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/caching/stores"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/email"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/messaging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/logging"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/observability/performance"
	persistenceAnalytics "github.com/ecowell/eco-engine-go/internal/infrastructure/persistence/analytics"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/persistence/database"
	persistenceUser "github.com/ecowell/eco-engine-go/internal/infrastructure/persistence/user"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/scheduler"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/security"
	"github.com/ecowell/eco-engine-go/internal/infrastructure/storage"
	"github.com/ecowell/eco-engine-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Observability
	Logger *logging.ChanneledLogger
	Perf   *performance.Tracker

	// Infrastructure
	DB          *database.DB
	Durable     storage.Adapter
	Ephemeral   storage.Adapter
	Sessions    *stores.SessionsStore
	Broadcaster *messaging.PromptBroadcaster
	Clock       scheduler.Clock
	EventRepo   *persistenceAnalytics.SQLEventRepository

	// Engine Services
	IdentityService  *services.IdentityService
	LimitService     *services.LimitService
	StreakService    *services.StreakService
	TriggerService   *services.TriggerService
	AnalyticsService *services.AnalyticsService
	StateService     *services.StateService
	AuthService      *services.AuthService
}

// NewContainer creates and wires all singleton services
func NewContainer() (*Container, error) {
	logCfg := logging.DefaultLoggerConfig()
	logCfg.LogDirectory = config.LogDirectory
	logger, err := logging.NewChanneledLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	perf := performance.NewTracker(performance.DefaultTrackerConfig())

	if config.JWTSecret == "" {
		secret, err := security.GenerateSecureKey(64)
		if err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		config.JWTSecret = secret
		logger.Startup().Warn("JWT_SECRET not configured, generated an ephemeral secret; issued tokens will not survive restarts")
	}

	dsn := config.DBPath
	if config.DBDriver == "libsql" {
		if err := database.TestLibsqlConnection(config.DBPath, config.DBAuthToken); err != nil {
			return nil, fmt.Errorf("libsql preflight failed: %w", err)
		}
		if config.DBAuthToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", config.DBPath, config.DBAuthToken)
		}
	}

	db, err := database.NewConnectionWithLogger(config.DBDriver, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)

	if err := database.CreateTables(db, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	clock := scheduler.SystemClock{}
	durable := storage.NewSQLAdapter(db, config.AESKey, logger)
	ephemeral := storage.NewMemoryAdapter()
	sessions := stores.NewSessionsStore(logger)
	broadcaster := messaging.NewPromptBroadcaster(config.MaxSessionConnections, logger)

	guestRepo := persistenceUser.NewSQLGuestRepository(db, logger)
	leadRepo := persistenceUser.NewSQLLeadRepository(db, logger)
	eventRepo := persistenceAnalytics.NewSQLEventRepository(db, logger)

	triggerCfg := engagement.TriggerConfig{
		TimeLimit:        config.TriggerTimeLimit,
		InteractionLimit: config.TriggerInteractionLimit,
		Cooldown:         config.TriggerPromptCooldown,
	}

	identity := services.NewIdentityService(durable, ephemeral, guestRepo, sessions, clock, logger, perf)
	analytics := services.NewAnalyticsService(config.AnalyticsBufferSize, eventRepo, logger, perf)
	limits := services.NewLimitService(durable, broadcaster, analytics, clock, logger, perf)
	streaks := services.NewStreakService(durable, clock, logger, perf)
	trigger := services.NewTriggerService(sessions, durable, broadcaster, triggerCfg, clock, logger, perf)
	state := services.NewStateService(trigger, streaks, analytics, clock, logger, perf)

	var mailer email.Service
	if config.ResendAPIKey != "" {
		mailer, err = email.NewService()
		if err != nil {
			logger.Startup().Warn("Email service unavailable", "error", err.Error())
		}
	}
	auth := services.NewAuthService(leadRepo, guestRepo, trigger, mailer, clock, logger, perf)

	return &Container{
		Logger:      logger,
		Perf:        perf,
		DB:          db,
		Durable:     durable,
		Ephemeral:   ephemeral,
		Sessions:    sessions,
		Broadcaster: broadcaster,
		Clock:       clock,
		EventRepo:   eventRepo,

		IdentityService:  identity,
		LimitService:     limits,
		StreakService:    streaks,
		TriggerService:   trigger,
		AnalyticsService: analytics,
		StateService:     state,
		AuthService:      auth,
	}, nil
}

// Close releases container-held resources.
func (c *Container) Close() error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return err
		}
	}
	if c.Logger != nil {
		return c.Logger.Close()
	}
	return nil
}
