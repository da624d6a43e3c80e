package models

import "time"

// SystemMetrics is a point-in-time summary of the in-process counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	GenerationsTotal         uint64    `json:"generations_total"`
	PartialGenerations       uint64    `json:"partial_generations"`
	ValidationsTotal         uint64    `json:"validations_total"`
	AverageValidationScore   float64   `json:"average_validation_score"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
