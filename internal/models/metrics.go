package models

import "time"

// SystemMetrics is a point-in-time summary of the service's instrumentation.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	StoreOperations          uint64    `json:"store_operations"`
	AverageStoreDurationMs   float64   `json:"average_store_duration_ms"`
	Registrations            uint64    `json:"registrations"`
	Payments                 uint64    `json:"payments"`
	AmountCollected          int64     `json:"amount_collected"`
	ImportedRows             uint64    `json:"imported_rows"`
	SkippedRows              uint64    `json:"skipped_rows"`
	NotificationsSent        uint64    `json:"notifications_sent"`
	NotificationsFailed      uint64    `json:"notifications_failed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
