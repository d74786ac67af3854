// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/ecowell/eco-engine-go/internal/application/container"
	"github.com/ecowell/eco-engine-go/internal/presentation/http/handlers"
	"github.com/ecowell/eco-engine-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	identityHandlers := handlers.NewIdentityHandlers(container.IdentityService, container.Logger, container.Perf)
	limitHandlers := handlers.NewLimitHandlers(container.LimitService, container.Logger, container.Perf)
	streakHandlers := handlers.NewStreakHandlers(container.StreakService, container.Logger, container.Perf)
	stateHandlers := handlers.NewStateHandlers(
		container.StateService,
		container.LimitService,
		container.StreakService,
		container.TriggerService,
		container.IdentityService,
		container.EventRepo,
		container.Clock,
		container.Logger,
		container.Perf,
	)
	triggerHandlers := handlers.NewTriggerHandlers(
		container.TriggerService,
		container.IdentityService,
		container.Broadcaster,
		container.Logger,
		container.Perf,
	)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.Perf)
	healthHandlers := handlers.NewHealthHandlers(container.IdentityService, container.AnalyticsService, container.Sessions, container.Perf)

	r.GET("/health", healthHandlers.GetHealth)
	r.GET("/api/v1/health", healthHandlers.GetHealth)

	api := r.Group("/api/v1")
	api.Use(middleware.OptionalAuthMiddleware(container.AuthService))
	api.Use(middleware.IdentityMiddleware(container.IdentityService))
	{
		// Identity
		identity := api.Group("/identity")
		{
			identity.POST("/ensure", identityHandlers.PostEnsure)
			identity.POST("/reset", identityHandlers.PostReset)
		}

		// Aggregate state and event ingestion
		api.GET("/state", stateHandlers.GetState)
		api.POST("/state", stateHandlers.PostState)

		// Daily limits
		limits := api.Group("/limits")
		{
			limits.GET("/:feature", limitHandlers.GetLimit)
			limits.POST("/:feature/increment", limitHandlers.PostIncrement)
		}

		// Streak
		streak := api.Group("/streak")
		{
			streak.GET("", streakHandlers.GetStreak)
			streak.POST("/complete", streakHandlers.PostComplete)
			streak.POST("/reset", streakHandlers.PostReset)
		}

		// Conversion trigger
		trigger := api.Group("/trigger")
		{
			trigger.GET("", triggerHandlers.GetTrigger)
			trigger.POST("/dismiss", triggerHandlers.PostDismiss)
			trigger.GET("/sse", triggerHandlers.GetSSE)
			trigger.GET("/heartbeat", triggerHandlers.GetHeartbeat)
		}

		// Authentication
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandlers.PostRegister)
			auth.POST("/login", authHandlers.PostLogin)
			auth.GET("/status", authHandlers.GetStatus)
		}
	}

	return r
}
