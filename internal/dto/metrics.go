package dto

import "time"

// MetricsSnapshot is a JSON summary of the Prometheus collectors.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ReloadsSucceeded         uint64    `json:"reloads_succeeded"`
	ReloadsFailed            uint64    `json:"reloads_failed"`
	StreamClients            int64     `json:"stream_clients"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
