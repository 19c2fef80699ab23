// Package service sweeps expired archive and cache rows on an interval
package service

import (
	"context"
	"time"

	"linkshell/internal/modkit/repokit"
	"linkshell/internal/platform/logger"
	rdom "linkshell/internal/services/retention/domain"
)

// leaseKey is the advisory lock shared by every sweeper on the database
const leaseKey int64 = 0x6c6b73686c6c // "lkshll"

// maxBatches bounds one table's work per sweep; the rest waits for the next tick
const maxBatches = 100

// Config controls the sweep cadence and retention policy
type Config struct {
	Policy       rdom.Policy
	Interval     time.Duration
	Timeout      time.Duration // per statement
	EnableLeases bool
}

// Service wires TxRunner + Binder into sweeps
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[rdom.StorageRepo]
	Cfg    Config

	now func() time.Time
	log *logger.Logger
}

var _ rdom.RunnerPort = (*Service)(nil)

// New constructs the retention service
func New(db repokit.TxRunner, binder repokit.Binder[rdom.StorageRepo], cfg Config) *Service {
	if db == nil {
		panic("retention.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("retention.Service requires a non nil Repo binder")
	}
	if cfg.Policy.Batch <= 0 {
		cfg.Policy.Batch = 5000
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &Service{DB: db, Binder: binder, Cfg: cfg, now: time.Now, log: logger.Named("retention")}
}

// Sweep deletes expired rows once. It is a clean skip when another instance holds the lease
func (s *Service) Sweep(ctx context.Context) (rdom.Report, error) {
	start := s.now()
	var rep rdom.Report
	p := s.Cfg.Policy
	if p.ArchiveMaxAge <= 0 && p.CacheMaxAge <= 0 {
		return rep, nil
	}

	tx := repokit.WithBeginHooks(s.DB, repokit.StatementTimeout(s.Cfg.Timeout))
	err := repokit.WithTx(ctx, tx, func(q repokit.Queryer) error {
		r := s.Binder.Bind(q)
		if s.Cfg.EnableLeases {
			ok, err := r.TryLease(ctx, leaseKey)
			if err != nil {
				return err
			}
			if !ok {
				rep.Skipped = true
				return nil
			}
		}
		var err error
		if p.ArchiveMaxAge > 0 {
			if rep.Archive, err = drain(ctx, r.PruneArchive, start.Add(-p.ArchiveMaxAge), p.Batch); err != nil {
				return err
			}
		}
		if p.CacheMaxAge > 0 {
			if rep.Cache, err = drain(ctx, r.PruneCache, start.Add(-p.CacheMaxAge), p.Batch); err != nil {
				return err
			}
		}
		return nil
	})
	rep.Took = s.now().Sub(start)
	return rep, err
}

func drain(ctx context.Context, prune func(context.Context, time.Time, int) (int64, error), before time.Time, batch int) (int64, error) {
	var total int64
	for i := 0; i < maxBatches; i++ {
		n, err := prune(ctx, before, batch)
		total += n
		if err != nil || n < int64(batch) {
			return total, err
		}
	}
	return total, nil
}

// Run sweeps every Interval until ctx ends. Failed sweeps are logged and retried next tick
func (s *Service) Run(ctx context.Context) error {
	s.log.Info().
		Dur("interval", s.Cfg.Interval).
		Dur("archive_max_age", s.Cfg.Policy.ArchiveMaxAge).
		Dur("cache_max_age", s.Cfg.Policy.CacheMaxAge).
		Msg("retention starting")

	t := time.NewTicker(s.Cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			rep, err := s.Sweep(ctx)
			switch {
			case err != nil && ctx.Err() != nil:
				return nil
			case err != nil:
				s.log.Error().Err(err).Msg("retention sweep failed")
			case rep.Skipped:
				s.log.Debug().Msg("retention lease held elsewhere; skipped")
			default:
				s.log.Info().Int64("archive", rep.Archive).Int64("cache", rep.Cache).Dur("took", rep.Took).Msg("retention sweep")
			}
		}
	}
}
