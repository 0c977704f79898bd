package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/config"
	"github.com/boddenberg/bank-ledger-go/internal/handler"
	"github.com/boddenberg/bank-ledger-go/internal/infra/identity"
	"github.com/boddenberg/bank-ledger-go/internal/infra/memstore"
	"github.com/boddenberg/bank-ledger-go/internal/infra/observability"
	"github.com/boddenberg/bank-ledger-go/internal/infra/postgres"
	"github.com/boddenberg/bank-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/bank-ledger-go/internal/port"
	"github.com/boddenberg/bank-ledger-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("postgres", cfg.DatabaseURL != ""),
		zap.Int32("db_max_conns", cfg.DBMaxConns),
		zap.Int("max_concurrency", cfg.MaxConcurrency),
		zap.Int("conflict_max_attempts", cfg.ConflictMaxAttempts),
		zap.Durations("conflict_backoff", cfg.ConflictBackoff),
		zap.String("clock_location", cfg.ClockLocation.String()),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Bool("dev_auth", cfg.DevAuth),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "bank-ledger")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	var store port.LedgerStore
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		pg, err := postgres.Connect(ctx, postgres.Options{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			Connect: resilience.Config{
				MaxRetries:     cfg.DBConnectRetries,
				InitialBackoff: cfg.DBInitialBackoff,
			},
		}, metrics, logger)
		if err != nil {
			cancel()
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			cancel()
			logger.Fatal("failed to apply schema", zap.Error(err))
		}
		cancel()
		defer pg.Close()
		store = pg
		logger.Info("using PostgreSQL ledger store")
	} else {
		store = memstore.New()
		logger.Warn("DATABASE_URL not set, using in-memory ledger store")
	}

	// --- Services ---
	ledger := service.NewLedgerService(
		store,
		service.SystemClock{},
		service.UUIDGenerator{},
		identity.ContextProvider{},
		service.LedgerConfig{
			Conflict: resilience.ConflictPolicy{
				MaxAttempts: cfg.ConflictMaxAttempts,
				Backoff:     cfg.ConflictBackoff,
			},
			MaxConcurrency:    cfg.MaxConcurrency,
			SecretCost:        cfg.CardSecretCost,
			DefaultDailyLimit: cfg.DefaultDailyLimit,
			Location:          cfg.ClockLocation,
		},
		metrics,
		logger,
	)
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	if cfg.DevAuth {
		logger.Warn("development auth enabled: POST /v1/dev/token issues tokens for any user id")
	}

	// --- Router ---
	router := handler.NewRouter(ledger, tokens, metrics, handler.RouterOptions{DevAuth: cfg.DevAuth}, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
