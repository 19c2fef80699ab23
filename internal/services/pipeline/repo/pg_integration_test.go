//go:build integration_pg

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"linkshell/internal/core/chatcode"
	"linkshell/internal/platform/store"
	dom "linkshell/internal/services/pipeline/domain"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "linkshell",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/linkshell?sslmode=disable", host, port.Port())
}

func TestPG_CacheAndArchive_Integration(t *testing.T) {
	dsn := startPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	st, err := store.Open(ctx, store.Config{PG: store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2}})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })

	s := NewPG(uuid.New()).Bind(st.PG)
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema is not idempotent: %v", err)
	}

	if _, ok, err := s.Lookup(ctx, "libre:ja:en:x", time.Hour); err != nil || ok {
		t.Fatalf("cold lookup = %v %v", ok, err)
	}
	if err := s.Store(ctx, "libre:ja:en:x", "Hello"); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := s.Store(ctx, "libre:ja:en:x", "Hello!"); err != nil {
		t.Fatalf("Store overwrite: %v", err)
	}
	got, ok, err := s.Lookup(ctx, "libre:ja:en:x", time.Hour)
	if err != nil || !ok || got != "Hello!" {
		t.Fatalf("warm lookup = %q %v %v", got, ok, err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	msgs := []dom.Message{
		{ID: 1, CreatedAt: now.Add(-time.Minute), UpdatedAt: now, Code: 10, Category: chatcode.Player,
			Channel: "Say", Sender: "Tataru", Original: "こんにちは", Plain: "こんにちは",
			Status: dom.StatusCompleted, Translated: "Hello", Engine: "libre", SourceLang: "ja", TargetLang: "en",
			Attempts: 1, Duration: 40 * time.Millisecond},
		{ID: 2, CreatedAt: now, UpdatedAt: now, Code: 10, Category: chatcode.Player,
			Channel: "Say", Sender: "Alphinaud", Plain: "123", Status: dom.StatusSkipped, Reason: "no translatable content"},
	}
	if err := s.WriteMessages(ctx, msgs); err != nil {
		t.Fatalf("WriteMessages: %v", err)
	}
	if err := s.WriteMessages(ctx, msgs[:1]); err != nil {
		t.Fatalf("rewrite should be ignored: %v", err)
	}

	all, err := s.ListMessages(ctx, dom.ArchiveQuery{})
	if err != nil || len(all) != 2 || all[0].ID != 2 {
		t.Fatalf("list = %+v %v", all, err)
	}
	done, err := s.ListMessages(ctx, dom.ArchiveQuery{Status: "completed", Sender: "tataru"})
	if err != nil || len(done) != 1 {
		t.Fatalf("filtered = %+v %v", done, err)
	}
	m := done[0]
	if m.Translated != "Hello" || m.Category != chatcode.Player || m.Status != dom.StatusCompleted || m.Duration != 40*time.Millisecond {
		t.Fatalf("round trip = %+v", m)
	}
}
