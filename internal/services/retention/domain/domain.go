// Package domain defines archive retention ports and types
package domain

import (
	"context"
	"time"
)

// Policy says how old rows may get before a sweep removes them. A zero age keeps rows forever
type Policy struct {
	ArchiveMaxAge time.Duration
	CacheMaxAge   time.Duration
	Batch         int
}

// Report is the outcome of one sweep
type Report struct {
	Archive int64         `json:"archive_deleted"`
	Cache   int64         `json:"cache_deleted"`
	Skipped bool          `json:"skipped"` // another instance held the lease
	Took    time.Duration `json:"took"`
}

// StorageRepo is the tx-bound storage a sweep needs
type StorageRepo interface {
	// TryLease takes a transaction scoped lock; false means another sweeper holds it
	TryLease(ctx context.Context, key int64) (bool, error)
	PruneArchive(ctx context.Context, before time.Time, limit int) (int64, error)
	PruneCache(ctx context.Context, before time.Time, limit int) (int64, error)
}

// RunnerPort is what main runs alongside the API
type RunnerPort interface {
	Run(ctx context.Context) error
	Sweep(ctx context.Context) (Report, error)
}
