package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"linkshell/internal/core/textnorm"
)

// Request is one translation attempt. Retries are new requests sharing MessageID
type Request struct {
	ID         uuid.UUID
	MessageID  int64
	Text       string
	Source     string
	Target     string
	Priority   Priority
	Engine     string
	CreatedAt  time.Time
	RetryCount int
	MaxRetries int
	// Echoes counts attempts that came back unchanged
	Echoes int

	ctx context.Context
}

// WithContext attaches the cancellation handle owned by the pipeline
func (r Request) WithContext(ctx context.Context) Request {
	r.ctx = ctx
	return r
}

// Context returns the cancellation handle, never nil
func (r Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// Cancelled reports whether the handle has fired
func (r Request) Cancelled() bool { return r.Context().Err() != nil }

// CanRetry reports whether the retry budget allows another attempt
func (r Request) CanRetry() bool { return r.RetryCount < r.MaxRetries }

// Next returns the follow-up attempt: new id, same message, priority and
// creation time, one more retry counted
func (r Request) Next() Request {
	n := r
	n.ID = uuid.New()
	n.RetryCount = r.RetryCount + 1
	return n
}

// Expired reports whether the request outlived ttl. ttl <= 0 never expires
func (r Request) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(r.CreatedAt) >= ttl
}

// ShouldSkip reports whether the text fails the default quality gate
func (r Request) ShouldSkip() bool {
	ok, _ := textnorm.DefaultGate().Check(r.Text)
	return !ok
}

// Result is the immutable outcome of one attempt
type Result struct {
	RequestID   uuid.UUID
	MessageID   int64
	Original    string
	Translated  string
	Source      string
	Target      string
	Engine      string
	Duration    time.Duration
	CompletedAt time.Time
	FromCache   bool
	Err         error
	Kind        Kind
	// Reason is the human readable skip or failure text
	Reason string
}

// Successful holds iff there is no error, the translation is not blank and
// it differs from the original. Echoed input is a non-translation
func (r Result) Successful() bool {
	if r.Err != nil || r.Kind != KindNone {
		return false
	}
	t := strings.TrimSpace(r.Translated)
	return t != "" && t != strings.TrimSpace(r.Original)
}

// NeedsRetry reports the echo case: no error, not cached, yet unsuccessful
func (r Result) NeedsRetry() bool {
	return !r.Successful() && !r.FromCache && r.Err == nil && !r.Kind.Skips()
}

// ResultFor starts a Result from the request it answers
func ResultFor(r Request) Result {
	return Result{
		RequestID: r.ID,
		MessageID: r.MessageID,
		Original:  r.Text,
		Source:    r.Source,
		Target:    r.Target,
		Engine:    r.Engine,
	}
}
