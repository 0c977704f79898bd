// Package service provides the business logic layer (use cases).
// LedgerService owns the money-movement operations, the registration and
// administration of ledger entities, and the read-only summaries built on
// spend accounting.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/domain"
	"github.com/boddenberg/bank-ledger-go/internal/infra/observability"
	"github.com/boddenberg/bank-ledger-go/internal/infra/resilience"
	"github.com/boddenberg/bank-ledger-go/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ledgerTracer = otel.Tracer("service/ledger")

// LedgerConfig tunes the ledger's policies.
type LedgerConfig struct {
	Conflict          resilience.ConflictPolicy
	MaxConcurrency    int
	SecretCost        int
	DefaultDailyLimit decimal.Decimal
	Location          *time.Location
}

// DefaultLedgerConfig mirrors the configuration defaults.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		Conflict:          resilience.DefaultConflictPolicy(),
		MaxConcurrency:    50,
		SecretCost:        bcrypt.DefaultCost,
		DefaultDailyLimit: domain.DefaultDailyLimit,
		Location:          time.UTC,
	}
}

// LedgerService orchestrates ledger use cases over a port.LedgerStore.
type LedgerService struct {
	store    port.LedgerStore
	clock    port.Clock
	ids      port.IDGenerator
	identity port.IdentityProvider
	cfg      LedgerConfig
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewLedgerService creates the ledger service with all dependencies injected.
func NewLedgerService(
	store port.LedgerStore,
	clock port.Clock,
	ids port.IDGenerator,
	identity port.IdentityProvider,
	cfg LedgerConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LedgerService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if !cfg.DefaultDailyLimit.IsPositive() {
		cfg.DefaultDailyLimit = domain.DefaultDailyLimit
	}
	if cfg.SecretCost == 0 {
		cfg.SecretCost = bcrypt.DefaultCost
	}
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 50
	}
	return &LedgerService{
		store:    store,
		clock:    clock,
		ids:      ids,
		identity: identity,
		cfg:      cfg,
		bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
		metrics:  metrics,
		logger:   logger,
	}
}

// Ping checks the backing store.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Location is the time zone of day and month windows.
func (s *LedgerService) Location() *time.Location { return s.cfg.Location }

// now is the injected clock's time in the ledger's location.
func (s *LedgerService) now() time.Time {
	return s.clock.Now().In(s.cfg.Location)
}

// ============================================================
// Concurrency guard
// ============================================================

// guarded runs fn under the bulkhead and the conflict-retry loop. Each
// attempt re-reads and re-validates from scratch; only version conflicts
// are retried. Exhaustion surfaces as *domain.ErrConflict.
func (s *LedgerService) guarded(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer s.bulkhead.Release()

	isConflict := func(err error) bool { return domain.IsKind(err, domain.KindVersionConflict) }
	onRetry := func(attempt int, wait time.Duration, err error) {
		s.metrics.IncrConflictRetry(op)
		s.logger.Warn("write conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	}

	err := resilience.RetryOnConflict(ctx, s.cfg.Conflict, isConflict, onRetry,
		func(ctx context.Context, attempt int) error { return fn(ctx) })

	var exhausted *resilience.ExhaustedError
	if errors.As(err, &exhausted) {
		s.metrics.IncrConflictExhausted(op)
		s.logger.Warn("write conflict retries exhausted",
			zap.String("operation", op),
			zap.Int("attempts", exhausted.Attempts),
		)
		err = &domain.ErrConflict{}
	}

	s.metrics.RecordOperation(op, outcomeOf(err), time.Since(start))
	return err
}

func outcomeOf(err error) string {
	switch domain.KindOf(err) {
	case domain.KindUnknown:
		if err == nil {
			return observability.OutcomeSuccess
		}
		return observability.OutcomeError
	case domain.KindConcurrencyConflict:
		return observability.OutcomeConflict
	case domain.KindCircuitOpen:
		return observability.OutcomeError
	default:
		return observability.OutcomeRejected
	}
}

// recordSpan marks the span failed for anything but a success.
func recordSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(domain.KindOf(err)))
	}
}

// ============================================================
// Clock / id generator adapters
// ============================================================

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// UUIDGenerator issues random (v4) UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }
