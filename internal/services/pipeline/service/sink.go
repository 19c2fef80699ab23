package service

import (
	"sync"
	"time"

	"linkshell/internal/platform/logger"
	dom "linkshell/internal/services/pipeline/domain"
)

// Sink applies results to messages and notifies observers once per terminal transition
type Sink struct {
	hist *History
	now  func() time.Time
	log  *logger.Logger

	mu  sync.RWMutex
	obs []dom.Observer
}

// NewSink builds a sink over hist
func NewSink(hist *History, log *logger.Logger, now func() time.Time) *Sink {
	if log == nil {
		log = logger.Nop()
	}
	return &Sink{hist: hist, now: now, log: log}
}

// Observe registers an observer
func (s *Sink) Observe(o dom.Observer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	s.obs = append(s.obs, o)
	s.mu.Unlock()
}

// Begin marks the message InProgress for a new attempt. No notification
func (s *Sink) Begin(r dom.Request) {
	s.hist.Update(r.MessageID, func(m *dom.Message) bool {
		if m.Status.Terminal() {
			return false
		}
		m.Status = dom.StatusInProgress
		m.Attempts++
		m.Engine = r.Engine
		m.SourceLang = r.Source
		m.TargetLang = r.Target
		m.UpdatedAt = s.now()
		return true
	})
}

// Retrying records why the previous attempt will be retried. No notification
func (s *Sink) Retrying(res dom.Result) {
	s.hist.Update(res.MessageID, func(m *dom.Message) bool {
		if m.Status.Terminal() {
			return false
		}
		m.Reason = "retrying: " + describe(res)
		m.UpdatedAt = s.now()
		return true
	})
}

// MarkCached records a submit-time cache hit ahead of Apply
func (s *Sink) MarkCached(id int64) {
	s.hist.Update(id, func(m *dom.Message) bool {
		if m.Status != dom.StatusPending {
			return false
		}
		m.Status = dom.StatusCached
		m.UpdatedAt = s.now()
		return true
	})
}

// Apply moves the message to its terminal state and notifies observers.
// It returns the snapshot and whether this call performed the transition
func (s *Sink) Apply(res dom.Result) (dom.Message, bool) {
	msg, changed := s.hist.Update(res.MessageID, func(m *dom.Message) bool {
		if m.Status.Terminal() {
			return false
		}
		m.UpdatedAt = s.now()
		m.FromCache = res.FromCache
		if res.Engine != "" {
			m.Engine = res.Engine
		}
		if res.Source != "" {
			m.SourceLang = res.Source
		}
		if res.Target != "" {
			m.TargetLang = res.Target
		}
		switch {
		case res.Kind.Skips():
			m.Status = dom.StatusSkipped
			m.Reason = describe(res)
		case res.Successful():
			m.Status = dom.StatusCompleted
			m.Translated = res.Translated
			m.Duration = res.Duration
			m.Reason = ""
		default:
			m.Status = dom.StatusFailed
			m.Translated = ""
			m.Duration = res.Duration
			m.Reason = describe(res)
		}
		return true
	})
	if !changed {
		if msg.ID == 0 {
			s.log.Debug().Int64("message_id", res.MessageID).Msg("result for evicted message dropped")
		}
		return msg, false
	}

	s.mu.RLock()
	obs := s.obs
	s.mu.RUnlock()
	for _, o := range obs {
		o.OnTerminal(msg)
	}
	return msg, true
}

// describe is the human readable outcome text stored on the message
func describe(res dom.Result) string {
	if res.Reason != "" {
		return res.Reason
	}
	if res.Err != nil {
		return res.Err.Error()
	}
	switch res.Kind {
	case dom.KindNonTranslation:
		return "engine returned the text unchanged"
	case dom.KindCancelled:
		return "cancelled"
	case dom.KindAdmissionRejected:
		return "translation backlog full"
	}
	if !res.Successful() {
		return "engine returned the text unchanged"
	}
	return ""
}
