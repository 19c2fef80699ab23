// Package store opens the optional Postgres and ClickHouse backends and hands
// them out behind small seams. A backend left unconfigured stays nil
package store

import (
	"context"
	"errors"
	"fmt"

	"linkshell/internal/platform/logger"
)

// Store holds the opened backends. The zero value has none
type Store struct {
	Log logger.Logger

	PG TxRunner   // nil unless SERVICE_PGSQL_DBURL is set
	CH Clickhouse // nil unless SERVICE_CLICKHOUSE_DBURL is set
}

// Option adjusts the Store before any backend opens
type Option func(*Store)

// WithLogger is used for connection retries and the sql tracer
func WithLogger(l logger.Logger) Option { return func(s *Store) { s.Log = l } }

// Open connects every enabled backend. Postgres is retried until it answers;
// on any failure the backends opened so far are closed again
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{Log: *logger.Nop()}
	for _, o := range opts {
		o(s)
	}

	if cfg.PG.Enabled {
		db, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		s.PG = db
	}
	if cfg.CH.Enabled {
		ch, err := openCH(ctx, cfg)
		if err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		s.CH = ch
	}
	return s, nil
}

// Guard pings each open backend and joins the failures
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("store: not opened")
	}
	var errs []error
	for name, b := range map[string]any{"pg": s.PG, "ch": s.CH} {
		p, ok := b.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases whatever Open managed to open
func (s *Store) Close(context.Context) error {
	var errs []error
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
