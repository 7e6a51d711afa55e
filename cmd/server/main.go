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

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/todo-web/internal/config"
	"github.com/yukikurage/todo-web/internal/database"
	"github.com/yukikurage/todo-web/internal/logging"
	"github.com/yukikurage/todo-web/internal/repository"
	"github.com/yukikurage/todo-web/internal/server"
	"github.com/yukikurage/todo-web/internal/services"
	"github.com/yukikurage/todo-web/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", "err", err)
	}

	logger := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Timestamp: true,
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", "err", err)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg, logging.GormLogger(logger))
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	logger.Info("Database ready", "driver", cfg.DBDriver)

	var redisClient *redis.Client
	if cfg.LoginLimiter == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, login throttling fails open", "addr", cfg.RedisAddr(), "err", err)
		}
	}

	limiter, err := newLoginLimiter(cfg, redisClient)
	if err != nil {
		return err
	}

	var suggestions *services.SuggestionService
	if cfg.OpenAIAPIKey != "" {
		suggestions = services.NewSuggestionService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	} else {
		logger.Info("OPENAI_API_KEY not set, task suggestions disabled")
	}

	authService := services.NewAuthService(repository.NewUserRepository(db), limiter, cfg.BcryptCost)
	taskService := services.NewTaskService(repository.NewTaskRepository(db), suggestions)

	secret := cfg.SessionSecret
	if secret == "" {
		secret, err = utils.GenerateSecret(32)
		if err != nil {
			return fmt.Errorf("failed to generate session secret: %w", err)
		}
		logger.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	store, err := server.NewSessionStore(cfg, []byte(secret))
	if err != nil {
		return err
	}

	r, err := server.New(server.Deps{
		Logger:       logger,
		DB:           db,
		SessionStore: store,
		AuthService:  authService,
		TaskService:  taskService,

		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Shutdown complete")
	return nil
}

func newLoginLimiter(cfg *config.Config, client *redis.Client) (services.LoginLimiter, error) {
	switch cfg.LoginLimiter {
	case "off":
		return nil, nil
	case "", "memory":
		return services.NewMemoryLoginLimiter(cfg.LoginMaxAttempts, cfg.LoginWindow), nil
	case "redis":
		return services.NewRedisLoginLimiter(client, cfg.LoginMaxAttempts, cfg.LoginWindow), nil
	default:
		return nil, fmt.Errorf("unsupported login limiter %q", cfg.LoginLimiter)
	}
}
