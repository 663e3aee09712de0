// Package main boots the companion chat HTTP service and wires application dependencies.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/easeaico/companion-chat/internal/access"
	"github.com/easeaico/companion-chat/internal/api"
	"github.com/easeaico/companion-chat/internal/character"
	"github.com/easeaico/companion-chat/internal/chat"
	"github.com/easeaico/companion-chat/internal/config"
	"github.com/easeaico/companion-chat/internal/conversation"
	"github.com/easeaico/companion-chat/internal/emotion"
	"github.com/easeaico/companion-chat/internal/models"
	"github.com/easeaico/companion-chat/internal/storage"
	"github.com/easeaico/companion-chat/internal/user"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	slog.Info("configuration loaded",
		"port", cfg.Port,
		"database_driver", cfg.DatabaseDriver,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
		"context_limit", cfg.ContextLimit,
		"timezone", cfg.Timezone,
	)
	if cfg.SlogLevel() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()
	if err := store.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	slog.Info("database ready", "driver", cfg.DatabaseDriver)

	provider, err := models.NewProvider(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to create completion provider: %v", err)
	}
	slog.Info("completion provider ready", "provider", provider.Name())

	authz := access.NewAuthorizer(store.Characters, store.Conversations, store.Messages)
	router := api.NewRouter(api.Services{
		Characters: character.NewService(store.Characters, authz, provider, character.Options{
			MaxPerUser:         cfg.MaxCharactersPerUser,
			DefaultTemperature: cfg.DefaultTemperature,
			DefaultMaxTokens:   cfg.DefaultMaxTokens,
			CompletionTimeout:  cfg.CompletionTimeout,
		}),
		Conversations: conversation.NewService(store.Conversations, store.Messages, authz),
		Chat: chat.NewService(authz, store.Characters, store.Messages, store.Conversations, provider, chat.Options{
			ContextLimit:      cfg.ContextLimit,
			CompletionTimeout: cfg.CompletionTimeout,
		}),
		Emotions: emotion.NewService(authz, store.Emotions, store.Messages, emotion.Options{
			TrendDays: cfg.TrendDays,
			Location:  cfg.Location(),
		}),
		Users: user.NewService(store.Users),
		Ping:  store.Ping,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err.Error())
	}
}
