package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual dependency.
type ServiceHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// LedgerMetrics is returned by GET /v1/metrics/ledger.
type LedgerMetrics struct {
	Operations []OperationMetrics `json:"operations"`
}

// OperationMetrics aggregates one money-movement operation's counters.
type OperationMetrics struct {
	Operation          string           `json:"operation"`
	Outcomes           map[string]int64 `json:"outcomes"`
	ConflictRetries    int64            `json:"conflictRetries"`
	ConflictsExhausted int64            `json:"conflictsExhausted"`
}
