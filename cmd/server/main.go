// Server receives YouTube WebSub push notifications for a channel and
// announces new uploads and scheduled livestreams to a Discord webhook.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ytnotify/youtube-discord-notifier/internal/config"
	"github.com/ytnotify/youtube-discord-notifier/internal/discord"
	"github.com/ytnotify/youtube-discord-notifier/internal/handler"
	"github.com/ytnotify/youtube-discord-notifier/internal/service"
	"github.com/ytnotify/youtube-discord-notifier/internal/store"
	"github.com/ytnotify/youtube-discord-notifier/internal/youtube"
	"github.com/ytnotify/youtube-discord-notifier/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	logger.Log.Info("database opened", zap.String("path", cfg.Database.Path))

	fetcher, err := youtube.NewClient(ctx, cfg.YouTube.APIKey)
	if err != nil {
		return fmt.Errorf("init youtube client: %w", err)
	}

	notifier := discord.NewNotifier(&http.Client{Timeout: 10 * time.Second}, cfg.Discord.WebhookURL)

	hub := service.NewHubClient(
		&http.Client{Timeout: 10 * time.Second},
		cfg.WebSub.HubURL,
		cfg.WebSub.TopicURL(cfg.YouTube.ChannelID),
		cfg.WebSub.CallbackURL,
	)

	tokens := service.NewTokenManager(hub, cfg.WebSub.RotationPeriod)
	go tokens.Run(ctx)

	scheduler := service.NewRecheckScheduler(db, fetcher, notifier, cfg.Discord.RoleID, cfg.Recheck.RetryInterval)
	defer scheduler.Stop()
	scheduler.Resume(ctx)

	events := service.NewEventService(db, fetcher, notifier, scheduler, cfg.Discord.RoleID)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      newRouter(events, tokens, db),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("channel_id", cfg.YouTube.ChannelID),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		logger.Log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop rotations and tell the hub to stop delivering before the
	// listener goes away.
	cancel()
	tokens.Shutdown(shutdownCtx)
	scheduler.Stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Log.Info("server stopped gracefully")
	return nil
}

func newRouter(events *service.EventService, tokens *service.TokenManager, db *store.Store) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	webhooks := handler.NewWebhookHandler(events, tokens)
	health := handler.NewHealthHandler(db, tokens)

	router.GET("/webhook", webhooks.HandleVerification)
	router.POST("/webhook", webhooks.HandleNotification)
	router.GET("/health/live", health.LivenessProbe)
	router.GET("/health/ready", health.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
