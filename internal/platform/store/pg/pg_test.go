package pg

import (
	"context"
	"testing"
	"time"
)

func TestOpen_PoolSettings(t *testing.T) {
	// pgxpool connects lazily, so nothing needs to listen here
	p, err := Open(context.Background(), Config{
		URL:         "postgres://linkshell@127.0.0.1:1/linkshell",
		AppName:     "linkshell-api",
		MaxConns:    3,
		MinConns:    9,
		MaxConnIdle: time.Minute,
		SlowMs:      250,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer p.Close()

	pc := p.Pool.Config()
	if pc.ConnConfig.RuntimeParams["application_name"] != "linkshell-api" {
		t.Fatalf("application_name = %q", pc.ConnConfig.RuntimeParams["application_name"])
	}
	if pc.MaxConns != 3 || pc.MinConns != 0 || pc.MaxConnIdleTime != time.Minute {
		t.Fatalf("pool = max %d min %d idle %s", pc.MaxConns, pc.MinConns, pc.MaxConnIdleTime)
	}
	if p.SlowMs != 250 {
		t.Fatalf("SlowMs = %d", p.SlowMs)
	}
}

func TestOpen_BadURL(t *testing.T) {
	if _, err := Open(context.Background(), Config{URL: "postgres://%zz"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestClose_NilSafe(t *testing.T) {
	var p *PG
	p.Close()
}
