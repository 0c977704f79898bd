package observability

import (
	"sort"
	"time"

	"github.com/boddenberg/bank-ledger-go/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Outcome labels for ledger_operations_total.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected" // business rule or validation failure
	OutcomeConflict = "conflict" // retries exhausted
	OutcomeError    = "error"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	operationDuration  *prometheus.HistogramVec
	operationsTotal    *prometheus.CounterVec
	conflictRetries    *prometheus.CounterVec
	conflictsExhausted *prometheus.CounterVec
	storeErrors        *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// ledger metrics in it. A private registry lets tests build as many as
// they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations, retries included.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Ledger operations by outcome.",
			},
			[]string{"operation", "outcome"},
		),
		conflictRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_conflict_retries_total",
				Help: "Optimistic-concurrency conflicts that were retried.",
			},
			[]string{"operation"},
		),
		conflictsExhausted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_conflicts_exhausted_total",
				Help: "Operations that gave up after the last conflicting attempt.",
			},
			[]string{"operation"},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_store_errors_total",
				Help: "Infrastructure errors from the persistence layer.",
			},
			[]string{"store"},
		),
	}
}

// RecordOperation records the duration and outcome of one operation call.
func (m *Metrics) RecordOperation(operation, outcome string, d time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(d.Seconds())
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
}

// IncrConflictRetry counts a conflict that will be retried.
func (m *Metrics) IncrConflictRetry(operation string) {
	m.conflictRetries.WithLabelValues(operation).Inc()
}

// IncrConflictExhausted counts an operation that ran out of attempts.
func (m *Metrics) IncrConflictExhausted(operation string) {
	m.conflictsExhausted.WithLabelValues(operation).Inc()
}

// IncrStoreError counts an infrastructure failure from a store.
func (m *Metrics) IncrStoreError(store string) {
	m.storeErrors.WithLabelValues(store).Inc()
}

// GetLedgerSnapshot gathers the registry and folds the operation counters
// into the GET /v1/metrics/ledger response.
func (m *Metrics) GetLedgerSnapshot() (*domain.LedgerMetrics, error) {
	families, err := m.Registry.Gather()
	if err != nil {
		return nil, err
	}

	byOp := map[string]*domain.OperationMetrics{}
	get := func(op string) *domain.OperationMetrics {
		om, ok := byOp[op]
		if !ok {
			om = &domain.OperationMetrics{Operation: op, Outcomes: map[string]int64{}}
			byOp[op] = om
		}
		return om
	}

	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := labelMap(metric)
			value := int64(counterValue(metric))
			switch mf.GetName() {
			case "ledger_operations_total":
				get(labels["operation"]).Outcomes[labels["outcome"]] += value
			case "ledger_conflict_retries_total":
				get(labels["operation"]).ConflictRetries += value
			case "ledger_conflicts_exhausted_total":
				get(labels["operation"]).ConflictsExhausted += value
			}
		}
	}

	snap := &domain.LedgerMetrics{Operations: make([]domain.OperationMetrics, 0, len(byOp))}
	for _, om := range byOp {
		snap.Operations = append(snap.Operations, *om)
	}
	sort.Slice(snap.Operations, func(i, j int) bool {
		return snap.Operations[i].Operation < snap.Operations[j].Operation
	})
	return snap, nil
}

func labelMap(m *dto.Metric) map[string]string {
	out := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		out[lp.GetName()] = lp.GetValue()
	}
	return out
}

// counterValue extracts the current value of a counter sample.
func counterValue(m *dto.Metric) float64 {
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
