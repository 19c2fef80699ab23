// Package repo implements retention deletes against the pipeline's Postgres tables
package repo

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"linkshell/internal/modkit/repokit"
	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/store"
	rdom "linkshell/internal/services/retention/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG returns the Postgres binder
func NewPG() repokit.Binder[rdom.StorageRepo] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) rdom.StorageRepo { return &pg{q: q} }

// TryLease implements domain.StorageRepo with a transaction scoped advisory lock
func (s *pg) TryLease(ctx context.Context, key int64) (bool, error) {
	ok, err := store.Scalar[bool](ctx, s.q, `SELECT pg_try_advisory_xact_lock($1)`, key)
	if err != nil {
		return false, perr.FromPostgres(err, "retention lease")
	}
	return ok, nil
}

// PruneArchive deletes up to limit archived messages that finished before the cutoff
func (s *pg) PruneArchive(ctx context.Context, before time.Time, limit int) (int64, error) {
	return s.prune(ctx, "translation_messages", "finished_at", before, limit)
}

// PruneCache deletes up to limit cache entries not refreshed since the cutoff
func (s *pg) PruneCache(ctx context.Context, before time.Time, limit int) (int64, error) {
	return s.prune(ctx, "translation_cache", "updated_at", before, limit)
}

func (s *pg) prune(ctx context.Context, table, col string, before time.Time, limit int) (int64, error) {
	// ctid batches keep each statement short on large tables
	victims := sq.Select("ctid").From(table).Where(sq.Lt{col: before}).Limit(uint64(limit))
	sqlStr, args, err := psql.Delete(table).Where(sq.Expr("ctid IN (?)", victims)).ToSql()
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeUnknown, "build %s prune", table)
	}
	tag, err := s.q.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, perr.FromPostgres(err, "prune "+table)
	}
	return tag.RowsAffected(), nil
}
