// Package repo persists translation cache entries, archived messages and the audit trail
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"linkshell/internal/core/chatcode"
	"linkshell/internal/modkit/repokit"
	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/store"
	dom "linkshell/internal/services/pipeline/domain"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	messageCols      = 19
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type (
	pg struct {
		q   repokit.Queryer
		run uuid.UUID
		now func() time.Time
	}
	binder struct{ run uuid.UUID }
)

// NewPG constructs a repo binder for Postgres. run scopes message ids, which restart with the process
func NewPG(run uuid.UUID) repokit.Binder[Storage] { return binder{run: run} }

// Bind implements repokit.Binder
func (b binder) Bind(q repokit.Queryer) Storage { return &pg{q: q, run: b.run, now: time.Now} }

// Storage is the Postgres side of the pipeline: second-level cache plus message archive
type Storage interface {
	dom.CacheStore
	dom.ArchivePort
	EnsureSchema(ctx context.Context) error
}

// EnsureSchema creates tables and indexes when missing
func (s *pg) EnsureSchema(ctx context.Context) error {
	for _, stmt := range pgSchema {
		if _, err := s.q.Exec(ctx, stmt); err != nil {
			return perr.FromPostgres(err, "ensure pipeline schema")
		}
	}
	return nil
}

// Lookup implements domain.CacheStore. maxAge <= 0 accepts any age
func (s *pg) Lookup(ctx context.Context, fingerprint string, maxAge time.Duration) (string, bool, error) {
	b := psql.Update("translation_cache").
		Set("hits", sq.Expr("hits + 1")).
		Where(sq.Eq{"fingerprint": fingerprint}).
		Suffix("RETURNING translated")
	if maxAge > 0 {
		b = b.Where(sq.GtOrEq{"updated_at": s.now().Add(-maxAge)})
	}
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return "", false, perr.Wrapf(err, perr.ErrorCodeUnknown, "build cache lookup")
	}
	out, err := store.One(ctx, s.q, scanString, sqlStr, args...)
	switch {
	case errors.Is(err, perr.ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, perr.FromPostgres(err, "cache lookup")
	}
	return out, true, nil
}

// Store implements domain.CacheStore
func (s *pg) Store(ctx context.Context, fingerprint, text string) error {
	sqlStr, args, err := psql.Insert("translation_cache").
		Columns("fingerprint", "translated").
		Values(fingerprint, text).
		Suffix("ON CONFLICT (fingerprint) DO UPDATE SET translated = excluded.translated, updated_at = now()").
		ToSql()
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "build cache store")
	}
	_, err = s.q.Exec(ctx, sqlStr, args...)
	return perr.FromPostgres(err, "cache store")
}

// WriteMessages implements domain.ArchivePort. Rewrites of the same message are ignored
func (s *pg) WriteMessages(ctx context.Context, xs []dom.Message) error {
	if len(xs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO translation_messages
		(run_id, message_id, created_at, finished_at, code, category, channel, sender,
		original, plain, status, translated, engine, source_lang, target_lang,
		from_cache, attempts, duration_us, reason) VALUES `)

	args := make([]any, 0, len(xs)*messageCols)
	for i, m := range xs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for c := 0; c < messageCols; c++ {
			if c > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", i*messageCols+c+1)
		}
		sb.WriteByte(')')

		finished := m.UpdatedAt
		if finished.IsZero() {
			finished = s.now()
		}
		args = append(args,
			s.run, m.ID, m.CreatedAt, finished, int32(m.Code), m.Category.String(), m.Channel, m.Sender,
			m.Original, m.Plain, m.Status.String(), m.Translated, m.Engine, m.SourceLang, m.TargetLang,
			m.FromCache, m.Attempts, m.Duration.Microseconds(), m.Reason,
		)
	}
	sb.WriteString(` ON CONFLICT (run_id, message_id) DO NOTHING`)
	_, err := s.q.Exec(ctx, sb.String(), args...)
	return perr.FromPostgres(err, "archive messages")
}

// ListMessages implements domain.ArchivePort, newest first
func (s *pg) ListMessages(ctx context.Context, q dom.ArchiveQuery) ([]dom.Message, error) {
	sqlStr, args, err := listQuery(q).ToSql()
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "build archive query")
	}
	out, err := store.Many(ctx, s.q, scanMessage, sqlStr, args...)
	if err != nil {
		return nil, perr.FromPostgres(err, "archive list")
	}
	return out, nil
}

func scanString(row store.Row) (string, error) {
	var v string
	err := row.Scan(&v)
	return v, err
}

func scanMessage(row store.Row) (dom.Message, error) {
	var (
		m                dom.Message
		code             int32
		category, status string
		durationUS       int64
	)
	if err := row.Scan(
		&m.ID, &m.CreatedAt, &m.UpdatedAt, &code, &category, &m.Channel, &m.Sender,
		&m.Original, &m.Plain, &status, &m.Translated, &m.Engine, &m.SourceLang, &m.TargetLang,
		&m.FromCache, &m.Attempts, &durationUS, &m.Reason,
	); err != nil {
		return m, err
	}
	m.Code = chatcode.Code(code)
	m.Category, _ = chatcode.ParseCategory(category)
	if st, err := dom.ParseStatus(status); err == nil {
		m.Status = st
	}
	m.Duration = time.Duration(durationUS) * time.Microsecond
	return m, nil
}

func listQuery(q dom.ArchiveQuery) sq.SelectBuilder {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	b := psql.Select(
		"message_id", "created_at", "finished_at", "code", "category", "channel", "sender",
		"original", "plain", "status", "translated", "engine", "source_lang", "target_lang",
		"from_cache", "attempts", "duration_us", "reason",
	).From("translation_messages")
	if !q.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"created_at": q.Since})
	}
	if !q.Until.IsZero() {
		b = b.Where(sq.Lt{"created_at": q.Until})
	}
	if q.Status != "" {
		b = b.Where(sq.Eq{"status": q.Status})
	}
	if s := strings.TrimSpace(q.Sender); s != "" {
		b = b.Where(sq.Eq{"lower(sender)": strings.ToLower(s)})
	}
	return b.OrderBy("created_at DESC", "message_id DESC").Limit(uint64(limit))
}
