package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"focusrooms/backend/internal/backend"
	"focusrooms/backend/internal/config"
	"focusrooms/backend/internal/handler"
	"focusrooms/backend/internal/logging"
	"focusrooms/backend/internal/pomodoro"
	"focusrooms/backend/internal/router"
	"focusrooms/backend/internal/service"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if cfg.Env != config.EnvDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := backend.Shared(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("open backend")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logging.Error().Err(err).Msg("close backend")
		}
	}()

	engines := pomodoro.NewManager(client.Sessions, pomodoro.Config{
		Interval:       cfg.TickInterval,
		CloseAbandoned: cfg.CloseAbandonedSessions,
	})

	authService := service.NewAuthService(client, cfg.JWTSecret, cfg.TokenTTL, cfg.RefreshTTL)
	roomService := service.NewRoomService(client)
	goalService := service.NewGoalService(client, roomService)
	timerService := service.NewTimerService(roomService, engines)
	analyticsService := service.NewAnalyticsService(client)

	engine := router.New(authService, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Session:   handler.NewSessionHandler(authService, cfg.SecureCookies()),
		Rooms:     handler.NewRoomHandler(roomService),
		Goals:     handler.NewGoalHandler(goalService),
		Timer:     handler.NewTimerHandler(timerService),
		Analytics: handler.NewAnalyticsHandler(analyticsService),
		Pages:     handler.NewPageHandler(roomService),
		Live:      handler.NewLiveHandler(roomService, goalService, client, client.Feed, cfg.CORSOrigins),
	}, client.Ping, cfg.CORSOrigins)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.Port).Str("env", cfg.Env).Bool("redis", client.Redis != nil).Msg("backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("run server")
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown server")
	}
	engines.Close(shutdownCtx)
}
