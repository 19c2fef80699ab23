package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/store"
	dom "linkshell/internal/services/pipeline/domain"
)

const auditTable = "translation_audit"

// Audit appends terminal outcomes to ClickHouse
type Audit struct {
	ch  store.Clickhouse
	run uuid.UUID
}

// NewAudit binds the audit writer to a ClickHouse seam
func NewAudit(ch store.Clickhouse, run uuid.UUID) *Audit { return &Audit{ch: ch, run: run} }

// EnsureSchema creates the audit table when missing
func (a *Audit) EnsureSchema(ctx context.Context) error {
	if err := a.ch.Exec(ctx, chSchema); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "ensure audit schema")
	}
	return nil
}

// WriteAudit implements domain.AuditPort
func (a *Audit) WriteAudit(ctx context.Context, xs []dom.Message) error {
	if len(xs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(xs))
	for _, m := range xs {
		ts := m.UpdatedAt
		if ts.IsZero() {
			ts = time.Now()
		}
		rows = append(rows, []any{
			ts.UTC(), a.run, m.ID, m.Channel, m.Category.String(), m.Sender,
			m.Status.String(), m.Engine, m.SourceLang, m.TargetLang, m.FromCache,
			uint16(min(m.Attempts, 65535)), uint32(m.Duration.Milliseconds()), m.Reason,
		})
	}
	if err := a.ch.Insert(ctx, auditTable, rows); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "write audit")
	}
	return nil
}

// Summary implements domain.AuditReader
func (a *Audit) Summary(ctx context.Context, since time.Time) ([]dom.EngineSummary, error) {
	rows, err := a.ch.Query(ctx, `
		SELECT engine, status, count() AS n, countIf(from_cache) AS hits, avg(duration_ms) AS avg_ms
		FROM `+auditTable+`
		WHERE ts >= ?
		GROUP BY engine, status
		ORDER BY n DESC`, since.UTC())
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "audit summary")
	}
	defer rows.Close()

	var out []dom.EngineSummary
	for rows.Next() {
		var s dom.EngineSummary
		if err := rows.Scan(&s.Engine, &s.Status, &s.Count, &s.CacheHits, &s.AvgMillis); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeDB, "audit summary scan")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "audit summary")
	}
	return out, nil
}
