package domain

import (
	"context"
	"time"
)

// Engine translates text. Implementations must honour ctx deadlines
type Engine interface {
	Name() string
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// EngineResolver looks engines up by name
type EngineResolver interface {
	Engine(name string) (Engine, bool)
}

// Observer is told about every terminal transition exactly once. It must not block
type Observer interface {
	OnTerminal(m Message)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Message)

// OnTerminal implements Observer
func (f ObserverFunc) OnTerminal(m Message) { f(m) }

// CacheStore is the persistent second level behind the in-memory cache
type CacheStore interface {
	Lookup(ctx context.Context, fingerprint string, maxAge time.Duration) (string, bool, error)
	Store(ctx context.Context, fingerprint, text string) error
}

// ArchivePort persists and lists terminal messages
type ArchivePort interface {
	WriteMessages(ctx context.Context, xs []Message) error
	ListMessages(ctx context.Context, q ArchiveQuery) ([]Message, error)
}

// AuditPort appends terminal outcomes to the analytics store
type AuditPort interface {
	WriteAudit(ctx context.Context, xs []Message) error
}

// AuditReader rolls the audit trail up per engine and status since a point in time
type AuditReader interface {
	Summary(ctx context.Context, since time.Time) ([]EngineSummary, error)
}

// PipelinePort is the surface the HTTP transport and the CLI use
type PipelinePort interface {
	Submit(ev Event) Message
	SubmitBatch(evs []Event) []Message
	Message(id int64) (Message, error)
	Messages(q Query) []Message
	Cancel(id int64) error
	Stats() Stats
	Policy() Policy
	SetPolicy(p Policy) error
	Archive(ctx context.Context, q ArchiveQuery) ([]Message, error)
}
