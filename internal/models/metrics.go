package models

import "time"

// SystemMetrics is a point-in-time summary of the in-process counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	GeneratorRuns            uint64    `json:"generator_runs"`
	DraftsGenerated          uint64    `json:"drafts_generated"`
	AverageGeneratorMs       float64   `json:"average_generator_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
