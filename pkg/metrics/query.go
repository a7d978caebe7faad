package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// SpecialtyStats represents aggregated metrics for one specialty.
type SpecialtyStats struct {
	Specialty     string  `json:"specialty"`
	TotalAttempts int64   `json:"total_attempts"`
	AvgLatency    float64 `json:"avg_latency_seconds"`
}

// QueryService queries aggregated consultation metrics back out of a
// Prometheus server, for operational reporting.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a metrics query service against the given
// Prometheus base URL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetSpecialtyStats retrieves aggregated attempt counts and consult latency
// for a specialty.
func (q *QueryService) GetSpecialtyStats(ctx context.Context, specialty string) (*SpecialtyStats, error) {
	stats := &SpecialtyStats{Specialty: specialty}

	attemptsQuery := fmt.Sprintf(`sum(consult_attempts_total{specialty=%q})`, specialty)
	attemptsResult, _, err := q.queryAPI.Query(ctx, attemptsQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	if vector, ok := attemptsResult.(model.Vector); ok && len(vector) > 0 {
		stats.TotalAttempts = int64(vector[0].Value)
	}

	latencyQuery := `sum(consult_duration_seconds_sum) / sum(consult_duration_seconds_count)`
	latencyResult, _, err := q.queryAPI.Query(ctx, latencyQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query latency: %w", err)
	}
	if vector, ok := latencyResult.(model.Vector); ok && len(vector) > 0 {
		stats.AvgLatency = float64(vector[0].Value)
	}

	return stats, nil
}

// GetStatusCounts retrieves the count of consultations per final status.
func (q *QueryService) GetStatusCounts(ctx context.Context) (map[string]int64, error) {
	result, _, err := q.queryAPI.Query(ctx, `sum by (status) (consult_requests_total)`, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query status counts: %w", err)
	}

	counts := make(map[string]int64)
	if vector, ok := result.(model.Vector); ok {
		for _, sample := range vector {
			counts[string(sample.Metric["status"])] = int64(sample.Value)
		}
	}
	return counts, nil
}
