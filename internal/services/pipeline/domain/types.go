// Package domain defines the types and ports of the translation pipeline
package domain

import (
	"fmt"
	"strings"
	"time"

	"linkshell/internal/core/chatcode"
	"linkshell/internal/core/payload"
)

// Status is the lifecycle state of a Message
type Status uint8

const (
	StatusPending Status = iota
	StatusInProgress
	StatusCompleted
	StatusFailed
	StatusSkipped
	// StatusCached is held between a submit-time cache hit and its completion
	StatusCached
)

var statusNames = [...]string{"pending", "in_progress", "completed", "failed", "skipped", "cached"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Terminal reports whether no further automatic transition follows s
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// ParseStatus is the inverse of String
func ParseStatus(v string) (Status, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, n := range statusNames {
		if n == v {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", v)
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Priority orders requests in the scheduler, higher first
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

// Priorities lists the tiers from highest to lowest
func Priorities() []Priority { return []Priority{PriorityHigh, PriorityNormal, PriorityLow} }

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// MarshalText implements encoding.TextMarshaler
func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// PriorityFor maps a chat category to its dispatch tier
func PriorityFor(c chatcode.Category) Priority {
	switch c {
	case chatcode.Player, chatcode.Npc:
		return PriorityHigh
	case chatcode.Emote:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// Kind classifies why an attempt did not complete
type Kind uint8

const (
	KindNone Kind = iota
	KindAdmissionRejected
	KindEligibilitySkipped
	KindEngineTimeout
	KindEngineFailure
	KindNonTranslation
	KindCancelled
)

var kindNames = [...]string{"", "admission_rejected", "eligibility_skipped", "engine_timeout", "engine_failure", "non_translation", "cancelled"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Retryable reports whether the retry manager may schedule another attempt
func (k Kind) Retryable() bool {
	return k == KindEngineTimeout || k == KindEngineFailure || k == KindNonTranslation
}

// Skips reports whether an outcome of kind k ends the message Skipped
func (k Kind) Skips() bool {
	return k == KindAdmissionRejected || k == KindEligibilitySkipped || k == KindCancelled
}

// Event is one raw chat line delivered by the event source
type Event struct {
	Code      chatcode.Code     `json:"code"`
	Sender    string            `json:"sender" validate:"max=128"`
	Text      string            `json:"text" validate:"required_without=Segments,max=20000"`
	Segments  []payload.Segment `json:"segments,omitempty" validate:"omitempty,max=256,dive"`
	Timestamp time.Time         `json:"timestamp"`
}

// Message is the pipeline's record of one chat event
type Message struct {
	ID         int64             `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	Code       chatcode.Code     `json:"code"`
	Category   chatcode.Category `json:"category"`
	Channel    string            `json:"channel"`
	Sender     string            `json:"sender"`
	Original   string            `json:"original"`
	Plain      string            `json:"plain"`
	Segments   []payload.Segment `json:"segments,omitempty"`
	Status     Status            `json:"status"`
	Translated string            `json:"translated,omitempty"`
	Engine     string            `json:"engine,omitempty"`
	Duration   time.Duration     `json:"duration_ns,omitempty"`
	SourceLang string            `json:"source_lang,omitempty"`
	TargetLang string            `json:"target_lang,omitempty"`
	FromCache  bool              `json:"from_cache"`
	Attempts   int               `json:"attempts"`
	Reason     string            `json:"reason,omitempty"`
}

// NeedsTranslation reports whether the message still waits for an outcome
func (m Message) NeedsTranslation() bool {
	return m.Status == StatusPending && strings.TrimSpace(m.Plain) != ""
}

// IsTranslated reports whether a usable translation is attached
func (m Message) IsTranslated() bool {
	return m.Status == StatusCompleted && strings.TrimSpace(m.Translated) != ""
}

// DisplayText is what a chat window shows for the message
func (m Message) DisplayText(prefix string) string {
	switch {
	case m.IsTranslated():
		return prefix + m.Translated
	case m.Status == StatusFailed && m.Reason != "":
		return m.Reason
	}
	return m.Plain
}

// DisplaySegments re-wraps the translation in the original leading and
// trailing references. Untranslated messages return their own segments
func (m Message) DisplaySegments(prefix string) []payload.Segment {
	if !m.IsTranslated() {
		if len(m.Segments) > 0 {
			return m.Segments
		}
		return []payload.Segment{payload.Text(m.DisplayText(prefix))}
	}
	return payload.Compose(prefix+m.Translated, m.Segments)
}
