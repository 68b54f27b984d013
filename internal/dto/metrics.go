package dto

import "time"

// MetricsSummary is the lightweight aggregate served at
// GET /metrics/summary, next to the full Prometheus exposition.
type MetricsSummary struct {
	RequestsTotal            uint64           `json:"requests_total"`
	AverageRequestDurationMs float64          `json:"average_request_duration_ms"`
	TransitionsByAction      map[string]int64 `json:"transitions_by_action"`
	Goroutines               int              `json:"goroutines"`
	GeneratedAt              time.Time        `json:"generated_at"`
}
