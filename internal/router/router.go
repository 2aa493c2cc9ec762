package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"focusrooms/backend/internal/handler"
	"focusrooms/backend/internal/middleware"
	"focusrooms/backend/internal/service"
)

type Handlers struct {
	Auth      *handler.AuthHandler
	Session   *handler.SessionHandler
	Rooms     *handler.RoomHandler
	Goals     *handler.GoalHandler
	Timer     *handler.TimerHandler
	Analytics *handler.AnalyticsHandler
	Pages     *handler.PageHandler
	Live      *handler.LiveHandler
}

// HealthCheck reports whether the backing stores are reachable.
type HealthCheck func(ctx context.Context) error

func New(
	authService *service.AuthService,
	handlers Handlers,
	health HealthCheck,
	corsOrigins []string,
) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		if health != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	entry := engine.Group("", middleware.PageGuard(false))
	entry.GET("/", handlers.Pages.Landing)
	entry.GET("/auth/login", handlers.Pages.Login)
	entry.GET("/auth/signup", handlers.Pages.Signup)

	pages := engine.Group("", middleware.PageGuard(true))
	pages.GET("/dashboard", handlers.Pages.Dashboard)
	pages.GET("/room/:id", handlers.Pages.Room)
	pages.GET("/analytics", handlers.Pages.Analytics)

	engine.POST("/auth/callback", handlers.Session.Callback)
	engine.POST("/auth/logout", handlers.Session.Logout)

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", handlers.Auth.Register)
	auth.POST("/login", handlers.Auth.Login)
	auth.POST("/refresh", handlers.Auth.Refresh)

	protected := api.Group("")
	protected.Use(middleware.Auth(authService))

	rooms := protected.Group("/rooms")
	rooms.GET("", handlers.Rooms.List)
	rooms.POST("", handlers.Rooms.Create)
	rooms.GET("/:id", handlers.Rooms.Get)
	rooms.POST("/:id/join", handlers.Rooms.Join)
	rooms.POST("/:id/leave", handlers.Rooms.Leave)
	rooms.GET("/:id/participants", handlers.Rooms.Participants)
	rooms.GET("/:id/live", handlers.Live.Serve)

	rooms.GET("/:id/goals", handlers.Goals.List)
	rooms.POST("/:id/goals", handlers.Goals.Create)

	rooms.GET("/:id/timer", handlers.Timer.Get)
	rooms.POST("/:id/timer/start", handlers.Timer.Start)
	rooms.POST("/:id/timer/pause", handlers.Timer.Pause)
	rooms.POST("/:id/timer/reset", handlers.Timer.Reset)
	rooms.POST("/:id/timer/phase", handlers.Timer.SelectPhase)

	goals := protected.Group("/goals")
	goals.POST("/:goalId/toggle", handlers.Goals.Toggle)
	goals.DELETE("/:goalId", handlers.Goals.Delete)

	protected.GET("/analytics", handlers.Analytics.Get)

	return engine
}
