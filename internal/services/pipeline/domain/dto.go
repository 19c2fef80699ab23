package domain

import "time"

// MaxBatch bounds a batch submission
const MaxBatch = 500

// EventBatch is the batch ingest payload
type EventBatch struct {
	Events []Event `json:"events" validate:"required,min=1,max=500,dive"`
}

// Query filters the in-memory history
type Query struct {
	Status  string `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed failed skipped cached"`
	Channel string `json:"channel,omitempty" validate:"max=64"`
	Sender  string `json:"sender,omitempty" validate:"max=128"`
	Limit   int    `json:"limit,omitempty" validate:"gte=0,lte=1000"`
}

// ArchiveQuery filters persisted messages
type ArchiveQuery struct {
	Since  time.Time `json:"since"`
	Until  time.Time `json:"until"`
	Status string    `json:"status,omitempty" validate:"omitempty,oneof=completed failed skipped"`
	Sender string    `json:"sender,omitempty" validate:"max=128"`
	Limit  int       `json:"limit,omitempty" validate:"gte=0,lte=1000"`
}

// Stats is a point-in-time view of pipeline counters
type Stats struct {
	Submitted   uint64         `json:"submitted"`
	Completed   uint64         `json:"completed"`
	Failed      uint64         `json:"failed"`
	Skipped     uint64         `json:"skipped"`
	Rejected    uint64         `json:"rejected"`
	CacheHits   uint64         `json:"cache_hits"`
	EngineCalls uint64         `json:"engine_calls"`
	Retries     uint64         `json:"retries"`
	Queued      int            `json:"queued"`
	Depth       map[string]int `json:"depth"`
	InFlight    int            `json:"in_flight"`
	CacheSize   int            `json:"cache_size"`
	History     int            `json:"history"`
	Dropped     uint64         `json:"dropped_notifications"`
}

// EngineSummary is one row of the audit rollup
type EngineSummary struct {
	Engine    string  `json:"engine"`
	Status    string  `json:"status"`
	Count     uint64  `json:"count"`
	CacheHits uint64  `json:"cache_hits"`
	AvgMillis float64 `json:"avg_ms"`
}
