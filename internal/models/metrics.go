package models

import "time"

// SystemMetrics is the aggregated runtime snapshot served next to the
// Prometheus scrape endpoint.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// SampleStatusBreakdown is one status bucket in the workload overview.
type SampleStatusBreakdown struct {
	Status SampleStatus `json:"status"`
	Count  int          `json:"count"`
}

// WorkloadOverview summarises where samples and reports sit in the pipeline.
type WorkloadOverview struct {
	TotalSamples    int                     `json:"total_samples"`
	SamplesByStatus []SampleStatusBreakdown `json:"samples_by_status"`
	PendingReview   int                     `json:"pending_review_reports"`
	ReadyForRelease int                     `json:"ready_for_release_reports"`
	GeneratedAt     time.Time               `json:"generated_at"`
}
