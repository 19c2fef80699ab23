package pg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestOneLine(t *testing.T) {
	cases := map[string]string{
		"select 1":                                       "select 1",
		"  SELECT\t*\nFROM\r\tmessages  WHERE id =  $1 ": "SELECT * FROM messages WHERE id = $1",
		"":                                               "",
	}
	for in, want := range cases {
		if got := oneLine(in); got != want {
			t.Fatalf("oneLine(%q) = %q, want %q", in, got, want)
		}
	}
}

type traceLine struct {
	Level     string  `json:"level"`
	MS        float64 `json:"ms"`
	SQL       string  `json:"sql"`
	Args      int     `json:"args"`
	Error     string  `json:"error"`
	Component string  `json:"component"`
}

func trace(t *testing.T, ev QueryEvent) (traceLine, string) {
	t.Helper()
	var buf bytes.Buffer
	// the root level is ignored by the tracer
	Tracer(zerolog.New(&buf).Level(zerolog.Disabled)).OnQuery(context.Background(), ev)
	var line traceLine
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	return line, buf.String()
}

func TestTracer_Levels(t *testing.T) {
	ev := QueryEvent{SQL: "INSERT INTO messages (text)\n VALUES ($1)", Args: []any{"secret chat"}, Elapsed: 2500 * time.Microsecond}

	line, raw := trace(t, ev)
	if line.Level != "info" || line.MS != 2.5 || line.SQL != "INSERT INTO messages (text) VALUES ($1)" || line.Args != 1 || line.Component != "pg" {
		t.Fatalf("line = %+v", line)
	}
	if bytes.Contains([]byte(raw), []byte("secret chat")) {
		t.Fatalf("bound values leaked: %s", raw)
	}

	ev.Slow = true
	if line, _ = trace(t, ev); line.Level != "warn" {
		t.Fatalf("slow level = %q", line.Level)
	}
	ev.Err = errors.New("boom")
	if line, _ = trace(t, ev); line.Level != "error" || line.Error != "boom" {
		t.Fatalf("failed line = %+v", line)
	}
}
