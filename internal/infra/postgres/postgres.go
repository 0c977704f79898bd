// Package postgres implements port.LedgerStore on PostgreSQL through a pgx
// connection pool. Entity updates are compare-and-swap on the version
// column; a changeset is written in one database transaction.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/domain"
	"github.com/boddenberg/bank-ledger-go/internal/infra/observability"
	"github.com/boddenberg/bank-ledger-go/internal/infra/resilience"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("postgres")

//go:embed schema.sql
var schemaSQL string

const storeName = "postgres"

// SQLSTATE codes the store translates into ledger errors.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// Options configures the connection pool.
type Options struct {
	URL      string
	MaxConns int32
	Connect  resilience.Config
}

// Store is the PostgreSQL ledger store.
type Store struct {
	pool    *pgxpool.Pool
	cb      *gobreaker.CircuitBreaker
	metrics *observability.Metrics
	logger  *zap.Logger
}

// Connect opens the pool and pings it with retry and backoff.
func Connect(ctx context.Context, opts Options, metrics *observability.Metrics, logger *zap.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	attempt := 0
	err = resilience.RetryWithBackoff(ctx, opts.Connect, func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("postgres: ping failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	logger.Info("postgres: connected",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database),
		zap.Int32("max_conns", cfg.MaxConns),
	)
	return New(pool, metrics, logger), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, metrics *observability.Metrics, logger *zap.Logger) *Store {
	return &Store{
		pool:    pool,
		cb:      resilience.NewCircuitBreaker(storeName, healthyOutcome),
		metrics: metrics,
		logger:  logger,
	}
}

// EnsureSchema creates the ledger tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Postgres.EnsureSchema")
	defer span.End()

	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Ping checks connectivity through the breaker.
func (s *Store) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", func(ctx context.Context) error {
		return s.pool.Ping(ctx)
	})
}

// ============================================================
// Breaker and error translation
// ============================================================

// healthyOutcome keeps ledger outcomes (not found, duplicate, version
// conflict) and caller cancellation from tripping the breaker.
func healthyOutcome(err error) bool {
	return err == nil ||
		domain.KindOf(err) != domain.KindUnknown ||
		errors.Is(err, context.Canceled)
}

// do runs fn through the circuit breaker and translates its error.
func (s *Store) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := s.cb.Execute(func() (any, error) {
		return nil, translate(fn(ctx))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: storeName}
	case healthyOutcome(err):
		return err
	}

	s.metrics.IncrStoreError(storeName)
	s.logger.Error("postgres: query failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("postgres %s: %w", op, err)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return &domain.ErrDuplicate{Resource: pgErr.TableName, Key: pgErr.ConstraintName}
		case codeSerializationFailure, codeDeadlockDetected:
			return &domain.ErrVersionConflict{Resource: pgErr.TableName}
		}
	}
	return err
}

// ============================================================
// Value helpers
// ============================================================

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode %s %q: %w", field, raw, err)
	}
	return d, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func notFound(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return err
}
