package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/domain"
	"github.com/boddenberg/bank-ledger-go/internal/infra/observability"
	"github.com/boddenberg/bank-ledger-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// RouterOptions toggles optional surfaces.
type RouterOptions struct {
	// DevAuth mounts POST /v1/dev/token, which signs a token for any user id.
	DevAuth bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(ledger *service.LedgerService, tokens *service.TokenService, metrics *observability.Metrics, opts RouterOptions, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(ledger, logger))
	r.Get("/readyz", readyzHandler(ledger, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/ledger", ledgerMetricsHandler(metrics, logger))

		if opts.DevAuth {
			r.Post("/dev/token", devTokenHandler(tokens, logger))
		}

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(tokens, logger))

			// =============================================
			// Registration
			// =============================================
			r.Post("/customers", createCustomerHandler(ledger, logger))
			r.Post("/accounts", createAccountHandler(ledger, logger))
			r.Post("/debit-cards", createDebitCardHandler(ledger, logger))
			r.Post("/credit-cards", createCreditCardHandler(ledger, logger))

			// =============================================
			// Accounts
			// =============================================
			r.Route("/accounts/{accountId}", func(r chi.Router) {
				r.Get("/", getAccountHandler(ledger, logger))
				r.Post("/deposit", depositHandler(ledger, logger))
				r.Post("/withdraw", withdrawHandler(ledger, logger))
				r.Get("/summary", accountSummaryHandler(ledger, logger))
				r.Get("/statement", statementHandler(ledger, logger))
				r.Put("/status", accountStatusHandler(ledger, logger))
			})

			// =============================================
			// Debit cards
			// =============================================
			r.Route("/debit-cards", func(r chi.Router) {
				r.Post("/spend", debitSpendHandler(ledger, logger))
				r.Post("/summary", debitSummaryHandler(ledger, logger))
				r.Post("/daily-limit", dailyLimitHandler(ledger, logger))
				r.Post("/status", debitStatusHandler(ledger, logger))
				r.Post("/secret", changeSecretHandler(ledger, domain.CardDebit, logger))
			})

			// =============================================
			// Credit cards
			// =============================================
			r.Route("/credit-cards", func(r chi.Router) {
				r.Post("/lookup", creditLookupHandler(ledger, logger))
				r.Post("/spend", creditSpendHandler(ledger, logger))
				r.Post("/pay", creditPayHandler(ledger, logger))
				r.Post("/summary", creditSummaryHandler(ledger, logger))
				r.Post("/status", creditStatusHandler(ledger, logger))
				r.Post("/secret", changeSecretHandler(ledger, domain.CardCredit, logger))
			})
		})
	})

	return r
}

// ============================================================
// Operational endpoints
// ============================================================

func pingStore(ctx context.Context, ledger *service.LedgerService) domain.ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := ledger.Ping(ctx)
	h := domain.ServiceHealth{
		Name:      "store",
		Status:    "healthy",
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
	}
	return h
}

func healthzHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := pingStore(r.Context(), ledger)
		if store.Status != "healthy" {
			logger.Warn("health check: store unhealthy", zap.String("error", store.Error))
		}
		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   store.Status,
			Services: []domain.ServiceHealth{{Name: "ledger-api", Status: "healthy"}, store},
		})
	}
}

func readyzHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store := pingStore(r.Context(), ledger)
		if store.Status != "healthy" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func ledgerMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := metrics.GetLedgerSnapshot()
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}
