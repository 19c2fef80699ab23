package pg

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"linkshell/internal/platform/logger"
)

// QueryEvent is one finished statement
type QueryEvent struct {
	SQL     string
	Args    []any
	Elapsed time.Duration
	Err     error
	Slow    bool
}

// QueryTracer is told about every statement the adapter runs
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer logs statements through root regardless of its level: failures at
// error, slow ones at warn, the rest at info. Bound values hold chat text,
// so only their count is logged
func Tracer(root logger.Logger) QueryTracer {
	return logTracer{log: root.Level(zerolog.TraceLevel).With().Str("component", "pg").Logger()}
}

type logTracer struct{ log logger.Logger }

func (lt logTracer) OnQuery(ctx context.Context, ev QueryEvent) {
	var evt *zerolog.Event
	switch {
	case ev.Err != nil:
		evt = lt.log.Error().Err(ev.Err)
	case ev.Slow:
		evt = lt.log.Warn()
	default:
		evt = lt.log.Info()
	}
	evt.Ctx(ctx).
		Str("sql", oneLine(ev.SQL)).
		Int("args", len(ev.Args)).
		Float64("ms", float64(ev.Elapsed.Microseconds())/1000).
		Bool("slow", ev.Slow).
		Msg("pg query")
}

func oneLine(sql string) string { return strings.Join(strings.Fields(sql), " ") }
