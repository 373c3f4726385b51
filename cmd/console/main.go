package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/client"
	"github.com/stemsi/qbank-console/internal/config"
	"github.com/stemsi/qbank-console/internal/database"
	"github.com/stemsi/qbank-console/internal/handler"
	"github.com/stemsi/qbank-console/internal/logger"
	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/router"
	"github.com/stemsi/qbank-console/internal/session"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/workspace"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("upstream", cfg.APIBaseURL).
		Msg("Starting question bank console")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Session Storage ───────────────────────────────────────────────
	// Redis keeps operator sessions across restarts. Without REDIS_URL
	// they live in memory.
	var rdb *redis.Client
	stores := memoryStores()
	if cfg.RedisURL != "" {
		var err error
		rdb, err = database.NewSessionRedis(ctx, cfg.RedisURL, database.RedisOptions{}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		stores = func(id string) session.Store {
			return session.NewRedisStore(rdb, config.CacheKey.ConsoleSessionKey(id))
		}
	} else {
		log.Warn().Msg("REDIS_URL is empty; sessions are kept in memory")
	}

	// ─── Workspace Registry ────────────────────────────────────────────
	sessions := workspace.NewRegistry(workspace.UpstreamFactory(
		cfg.APIBaseURL,
		stores,
		workspace.Config{
			PageSize:     cfg.PageSize,
			LoadAttempts: 2,
			LoadBackoff:  cfg.ListRetryBackoff,
		},
		log,
		client.WithTimeout(cfg.UpstreamTimeout),
	))

	// ─── Initialize Handlers ──────────────────────────────────────────
	var health redis.Cmdable
	if rdb != nil {
		health = rdb
	}
	handlers := &router.Handlers{
		Auth:   handler.NewAuthHandler(sessions),
		Screen: handler.NewScreenHandler(),
		Paper:  handler.NewPaperHandler(),
		WS:     handler.NewWSHandler(log, cfg.AllowedOrigins),
		System: handler.NewSystemHandler(health, sessions, cfg.APIBaseURL, log),
	}
	loginLimiter := middleware.NewRateLimiter(ctx, cfg.LoginRatePerMin, time.Minute)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(sessions, handlers, loginLimiter, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// Hijacked WebSocket connections are not tracked by Shutdown.
	srv.RegisterOnShutdown(sessions.CloseAll)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

func memoryStores() workspace.StoreFunc {
	var (
		mu     sync.Mutex
		stores = make(map[string]session.Store)
	)
	return func(id string) session.Store {
		mu.Lock()
		defer mu.Unlock()
		s, ok := stores[id]
		if !ok {
			s = session.NewMemoryStore()
			stores[id] = s
		}
		return s
	}
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
