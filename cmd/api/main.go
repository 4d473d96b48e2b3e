// cmd/api/main.go
// Entry point: bootstraps every component and runs the server until a
// shutdown signal arrives.

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/duetapp/duet-backend/internal/ai/gemini"
	"github.com/duetapp/duet-backend/internal/auth"
	"github.com/duetapp/duet-backend/internal/common/database"
	"github.com/duetapp/duet-backend/internal/common/utils"
	"github.com/duetapp/duet-backend/internal/config"
	"github.com/duetapp/duet-backend/internal/logger"
	"github.com/duetapp/duet-backend/internal/matching"
	"github.com/duetapp/duet-backend/internal/taste"
	"github.com/duetapp/duet-backend/internal/users"
)

func main() {
	// 1. Environment and configuration. A missing .env file is fine:
	// plain environment variables carry production config.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	// 2. Logger.
	zapLogger, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("starting duet backend",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	// 3. PostgreSQL.
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()
	zapLogger.Info("connected to postgres")

	// 4. Redis (optional; only backs the refill advisory lock).
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Warn("redis unavailable, refills run without advisory locks", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
			zapLogger.Info("connected to redis")
		}
	}

	// 5. Migrations.
	if err := runMigrations(db); err != nil {
		zapLogger.Fatal("failed to run migrations", zap.Error(err))
	}
	zapLogger.Info("database migrations completed")

	// 6. Shared infrastructure.
	rootCtx, stopRoot := context.WithCancel(context.Background())
	defer stopRoot()

	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)

	// 7. Domain wiring.
	userRepo := users.NewPostgresRepository(db)
	userService := users.NewService(userRepo)
	userHandler := users.NewHandler(userService)

	musicSource, err := taste.NewSource(cfg.MusicProvider)
	if err != nil {
		zapLogger.Fatal("invalid music provider", zap.Error(err))
	}
	tasteRepo := taste.NewPostgresRepository(db)
	tasteService := taste.NewService(tasteRepo, musicSource)
	tasteHandler := taste.NewHandler(tasteService)

	matchingRepo := matching.NewPostgresRepository(db)
	scorer := matching.NewScorer()

	// The external rescorer is optional: without an API key the local
	// score is authoritative.
	var rescorer *matching.RescorePool
	if cfg.GeminiAPIKey != "" {
		generator, err := gemini.NewGenerator(rootCtx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			zapLogger.Warn("gemini client unavailable, rescoring disabled", zap.Error(err))
		} else {
			geminiScorer := gemini.NewScorer(generator, zapLogger.Named("gemini"), 0)
			rescorer = matching.NewRescorePool(matchingRepo, geminiScorer, zapLogger.Named("rescorer"), matching.RescoreConfig{
				Workers:   cfg.RescoreWorkers,
				QueueSize: cfg.RescoreQueueSize,
				TopK:      cfg.RescoreTopK,
				Delay:     cfg.RescoreDelay,
				Timeout:   cfg.RescoreTimeout,
			})
			zapLogger.Info("gemini rescoring enabled", zap.String("model", generator.Model()))
		}
	} else {
		zapLogger.Info("gemini api key not set, local scores are authoritative")
	}

	queueManager := matching.NewQueueManager(matchingRepo, scorer, rescorer, redisClient, zapLogger.Named("queue"), matching.QueueConfig{
		DefaultCount:       cfg.SuggestionDefault,
		LowWaterMultiplier: cfg.LowWaterMultiplier,
		RefillBatchSize:    cfg.RefillBatchSize,
		LockTTL:            cfg.RefillLockTTL,
		TriggerSize:        cfg.RefillTriggerSize,
	})

	hub := matching.NewHub(zapLogger.Named("hub"))
	go hub.Run(rootCtx)

	swipeEngine := matching.NewSwipeEngine(matchingRepo, queueManager, hub, zapLogger.Named("swipe"))
	matchingService := matching.NewService(queueManager, swipeEngine)
	matchingHandler := matching.NewHandler(matchingService, matching.HandlerConfig{
		DefaultCount: cfg.SuggestionDefault,
		MaxCount:     cfg.SuggestionMax,
	})

	// 8. Router.
	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	users.RegisterRoutes(router, userHandler, authMiddleware)
	taste.RegisterRoutes(router, tasteHandler, authMiddleware)
	matching.RegisterRoutes(router, matchingHandler, hub, authMiddleware)

	// 9. HTTP server.
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// 10. Graceful shutdown: stop accepting requests, then drain the
	// background workers in dependency order.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("http server shutdown failed", zap.Error(err))
	}

	queueManager.Close()
	if rescorer != nil {
		rescorer.Close()
	}
	stopRoot()

	zapLogger.Info("shutdown complete")
}

// runMigrations applies the schema. Every statement is idempotent, so
// repeated startups are harmless.
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			age INT NOT NULL,
			gender TEXT NOT NULL,
			orientation TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS taste_profiles (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
			genres TEXT[] NOT NULL DEFAULT '{}',
			artists TEXT[] NOT NULL DEFAULT '{}',
			songs TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS swipes (
			id BIGSERIAL PRIMARY KEY,
			from_user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			to_user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			liked BOOLEAN NOT NULL,
			matched BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (from_user_id, to_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS match_queue (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			suggested_user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			score DOUBLE PRECISION NOT NULL,
			position BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, suggested_user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_swipes_to_user_liked
			ON swipes (to_user_id) WHERE liked`,
		`CREATE INDEX IF NOT EXISTS idx_match_queue_ranking
			ON match_queue (user_id, score DESC, position ASC)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
