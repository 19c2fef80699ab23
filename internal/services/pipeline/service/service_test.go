package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"linkshell/internal/core/payload"
	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/logger"
	"linkshell/internal/platform/testkit"
	dom "linkshell/internal/services/pipeline/domain"
)

type fakeEngine struct {
	calls atomic.Int32
	fn    func(ctx context.Context, text string) (string, error)
}

func (f *fakeEngine) Name() string { return "fake" }
func (f *fakeEngine) Translate(ctx context.Context, text, _, _ string) (string, error) {
	f.calls.Add(1)
	return f.fn(ctx, text)
}

type engines map[string]dom.Engine

func (e engines) Engine(name string) (dom.Engine, bool) {
	x, ok := e[name]
	return x, ok
}

func translateTo(out string) *fakeEngine {
	return &fakeEngine{fn: func(context.Context, string) (string, error) { return out, nil }}
}

type recorder struct {
	mu   sync.Mutex
	msgs []dom.Message
}

func (r *recorder) OnTerminal(m dom.Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

func (r *recorder) count(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.msgs {
		if m.ID == id {
			n++
		}
	}
	return n
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TPS = 0
	cfg.Workers = 1
	cfg.Timeout = time.Second
	cfg.History = 50
	return cfg
}

func testPolicy() dom.Policy {
	p := dom.DefaultPolicy()
	p.Engine = "fake"
	return p
}

func newSvc(t *testing.T, cfg Config, p dom.Policy, eng dom.Engine, opts ...Option) *Svc {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	return New(cfg, p, engines{"fake": eng}, opts...)
}

// start runs the pipeline until the test ends
func start(t *testing.T, s *Svc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run: %v", err)
		}
	})
}

func waitTerminal(t *testing.T, s *Svc, id int64) dom.Message {
	t.Helper()
	testkit.Eventually(t, 2*time.Second, func() bool {
		m, err := s.Message(id)
		return err == nil && m.Status.Terminal()
	}, "message reaches a terminal state")
	m, _ := s.Message(id)
	return m
}

func say(text string) dom.Event {
	return dom.Event{Code: 10, Sender: "Tataru", Text: text}
}

func TestPipeline_TranslatesSay(t *testing.T) {
	eng := translateTo("Hello")
	rec := &recorder{}
	s := newSvc(t, testConfig(), testPolicy(), eng, WithObserver(rec))
	start(t, s)

	m := s.Submit(say("こんにちは"))
	if m.Status != dom.StatusPending || m.Channel != "Say" {
		t.Fatalf("submit snapshot = %+v", m)
	}
	m = waitTerminal(t, s, m.ID)
	if m.Status != dom.StatusCompleted || m.Translated != "Hello" || m.FromCache {
		t.Fatalf("message = %+v", m)
	}
	if m.Engine != "fake" || m.SourceLang != "ja" || m.TargetLang != "en" || m.Attempts != 1 {
		t.Fatalf("metadata = %+v", m)
	}
	if m.DisplayText("[TR] ") != "[TR] Hello" {
		t.Fatalf("display = %q", m.DisplayText("[TR] "))
	}
	if rec.count(m.ID) != 1 {
		t.Fatalf("observer notified %d times", rec.count(m.ID))
	}
}

func TestPipeline_DigitsAreSkippedWithoutEngineOrCache(t *testing.T) {
	eng := translateTo("x")
	s := newSvc(t, testConfig(), testPolicy(), eng)

	m := s.Submit(say("123"))
	if m.Status != dom.StatusSkipped || m.Reason == "" {
		t.Fatalf("message = %+v", m)
	}
	if m.DisplayText("[TR] ") != "123" {
		t.Fatalf("skipped display = %q", m.DisplayText("[TR] "))
	}
	if eng.calls.Load() != 0 || s.cache.Len() != 0 || s.sched.Len() != 0 {
		t.Fatalf("engine=%d cache=%d queue=%d", eng.calls.Load(), s.cache.Len(), s.sched.Len())
	}
	if st := s.Stats(); st.Skipped != 1 || st.Submitted != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestPipeline_DuplicateServedFromCache(t *testing.T) {
	eng := translateTo("Hello")
	s := newSvc(t, testConfig(), testPolicy(), eng)
	start(t, s)

	first := waitTerminal(t, s, s.Submit(say("こんにちは")).ID)
	if first.Status != dom.StatusCompleted {
		t.Fatalf("first = %+v", first)
	}

	second := s.Submit(say(" こんにちは "))
	if second.Status != dom.StatusCompleted || !second.FromCache || second.Translated != "Hello" {
		t.Fatalf("second = %+v", second)
	}
	if n := eng.calls.Load(); n != 1 {
		t.Fatalf("engine called %d times, want 1", n)
	}
	if st := s.Stats(); st.CacheHits != 1 || st.EngineCalls != 1 || st.Completed != 2 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestPipeline_RetryBound(t *testing.T) {
	eng := &fakeEngine{fn: func(context.Context, string) (string, error) {
		return "", perr.Unavailablef("engine down")
	}}
	rec := &recorder{}
	p := testPolicy()
	p.Retry, p.MaxRetries = true, 2
	s := newSvc(t, testConfig(), p, eng, WithObserver(rec))
	start(t, s)

	m := waitTerminal(t, s, s.Submit(say("こんにちは")).ID)
	if m.Status != dom.StatusFailed || m.Reason != "engine down" {
		t.Fatalf("message = %+v", m)
	}
	if n := eng.calls.Load(); n != 3 || m.Attempts != 3 {
		t.Fatalf("engine calls = %d, attempts = %d, want 3", n, m.Attempts)
	}
	if rec.count(m.ID) != 1 {
		t.Fatalf("observer notified %d times", rec.count(m.ID))
	}
	if st := s.Stats(); st.Retries != 2 || st.Failed != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestPipeline_RetryDisabled(t *testing.T) {
	eng := &fakeEngine{fn: func(context.Context, string) (string, error) {
		return "", perr.Unavailablef("engine down")
	}}
	s := newSvc(t, testConfig(), testPolicy(), eng)
	start(t, s)

	m := waitTerminal(t, s, s.Submit(say("こんにちは")).ID)
	if m.Status != dom.StatusFailed || eng.calls.Load() != 1 {
		t.Fatalf("message = %+v calls = %d", m, eng.calls.Load())
	}
}

func TestPipeline_EchoRetriedOnce(t *testing.T) {
	eng := &fakeEngine{fn: func(_ context.Context, text string) (string, error) { return text, nil }}
	p := testPolicy()
	p.Retry, p.MaxRetries = true, 5
	s := newSvc(t, testConfig(), p, eng)
	start(t, s)

	m := waitTerminal(t, s, s.Submit(say("bonjour tout le monde")).ID)
	if m.Status != dom.StatusFailed || m.Reason != "engine returned the text unchanged" {
		t.Fatalf("message = %+v", m)
	}
	if n := eng.calls.Load(); n != 2 {
		t.Fatalf("engine calls = %d, want 2", n)
	}
	if s.cache.Len() != 0 {
		t.Fatalf("echo was cached")
	}
}

func TestPipeline_TimeoutIsRetryable(t *testing.T) {
	var n atomic.Int32
	eng := &fakeEngine{fn: func(ctx context.Context, _ string) (string, error) {
		if n.Add(1) == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "Hello", nil
	}}
	cfg := testConfig()
	cfg.Timeout = 30 * time.Millisecond
	p := testPolicy()
	p.Retry, p.MaxRetries = true, 1
	s := newSvc(t, cfg, p, eng)
	start(t, s)

	m := waitTerminal(t, s, s.Submit(say("こんにちは")).ID)
	if m.Status != dom.StatusCompleted || m.Attempts != 2 {
		t.Fatalf("message = %+v", m)
	}
}

func TestPipeline_UnknownEngineFails(t *testing.T) {
	p := testPolicy()
	p.Engine = "missing"
	p.Retry = true
	s := newSvc(t, testConfig(), p, translateTo("x"))
	start(t, s)

	m := waitTerminal(t, s, s.Submit(say("こんにちは")).ID)
	if m.Status != dom.StatusFailed || m.Attempts != 1 {
		t.Fatalf("message = %+v", m)
	}
	testkit.MustContain(t, m.Reason, "unknown engine")
}

func TestPipeline_AdmissionRejected(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueue = 1
	s := newSvc(t, cfg, testPolicy(), translateTo("x"))

	if m := s.Submit(say("first line")); m.Status != dom.StatusPending {
		t.Fatalf("first = %+v", m)
	}
	m := s.Submit(say("second line"))
	if m.Status != dom.StatusSkipped || m.Reason != "translation backlog full" {
		t.Fatalf("second = %+v", m)
	}
	if st := s.Stats(); st.Rejected != 1 || st.Queued != 1 || st.Depth["high"] != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestPipeline_CancelAndShutdown(t *testing.T) {
	eng := translateTo("x")
	s := newSvc(t, testConfig(), testPolicy(), eng)

	a := s.Submit(say("first line"))
	b := s.Submit(say("second line"))
	if err := s.Cancel(a.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := s.Cancel(999); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("Cancel unknown = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, id := range []int64{a.ID, b.ID} {
		m, _ := s.Message(id)
		if m.Status != dom.StatusSkipped || m.Reason != "cancelled" {
			t.Fatalf("message %d = %+v", id, m)
		}
	}
	if eng.calls.Load() != 0 {
		t.Fatalf("cancelled requests reached the engine")
	}
	if err := s.Cancel(a.ID); !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("Cancel terminal = %v", err)
	}

	late := s.Submit(say("third line"))
	if late.Status != dom.StatusSkipped || late.Reason != "pipeline stopped" {
		t.Fatalf("late = %+v", late)
	}
}

func TestPipeline_ShutdownCancelsInFlightCall(t *testing.T) {
	eng := &fakeEngine{fn: func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	cfg := testConfig()
	cfg.Timeout = 5 * time.Second
	s := newSvc(t, cfg, testPolicy(), eng)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	m := s.Submit(say("first line"))
	testkit.Eventually(t, time.Second, func() bool { return eng.calls.Load() == 1 }, "engine call starts")
	stopped := time.Now()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run waited on the in-flight engine call")
	}
	if d := time.Since(stopped); d > time.Second {
		t.Fatalf("shutdown took %s", d)
	}
	m, _ = s.Message(m.ID)
	if m.Status != dom.StatusSkipped || m.Reason != "cancelled" {
		t.Fatalf("message = %+v", m)
	}
}

func TestPipeline_CancelledRequestsSpendNoTokens(t *testing.T) {
	cfg := testConfig()
	cfg.TPS = 1
	eng := translateTo("x")
	s := newSvc(t, cfg, testPolicy(), eng)

	for i := 0; i < 6; i++ {
		m := s.Submit(say(fmt.Sprintf("line number %d", i)))
		if err := s.Cancel(m.ID); err != nil {
			t.Fatalf("Cancel: %v", err)
		}
	}
	live := s.Submit(say("the live line"))
	begun := time.Now()
	start(t, s)

	live = waitTerminal(t, s, live.ID)
	if live.Status != dom.StatusCompleted {
		t.Fatalf("live = %+v", live)
	}
	// at 1 tps six paid-for tokens would take five seconds
	if d := time.Since(begun); d > 900*time.Millisecond {
		t.Fatalf("live message completed after %s", d)
	}
	if eng.calls.Load() != 1 {
		t.Fatalf("engine calls = %d", eng.calls.Load())
	}
}

func TestPipeline_QueueTTLExpires(t *testing.T) {
	clk := newClock()
	var mu sync.Mutex
	now := func() time.Time { mu.Lock(); defer mu.Unlock(); return clk.Now() }
	cfg := testConfig()
	cfg.QueueTTL = time.Minute
	eng := translateTo("x")
	s := newSvc(t, cfg, testPolicy(), eng, WithClock(now))

	m := s.Submit(say("first line"))
	mu.Lock()
	clk.Advance(2 * time.Minute)
	mu.Unlock()
	start(t, s)

	m = waitTerminal(t, s, m.ID)
	if m.Status != dom.StatusSkipped || m.Reason != "expired in queue" || eng.calls.Load() != 0 {
		t.Fatalf("message = %+v", m)
	}
}

func TestPipeline_SegmentsAndPolicyUpdate(t *testing.T) {
	s := newSvc(t, testConfig(), testPolicy(), translateTo("Good work"))
	start(t, s)

	ev := dom.Event{Code: 10, Sender: "Krile", Segments: []payload.Segment{
		{Kind: payload.KindPlayer, Text: "Tataru"},
		payload.Text(" お疲れ様です"),
		{Kind: payload.KindItem, ID: 4551},
	}}
	m := waitTerminal(t, s, s.Submit(ev).ID)
	if m.Plain != "Tataru お疲れ様です" || m.Status != dom.StatusCompleted {
		t.Fatalf("message = %+v", m)
	}
	ds := m.DisplaySegments(s.Policy().Prefix)
	if len(ds) != 3 || ds[1].Text != "[TR] Good work" {
		t.Fatalf("display segments = %+v", ds)
	}

	p := s.Policy()
	p.Enabled = false
	if err := s.SetPolicy(p); err != nil {
		t.Fatalf("SetPolicy: %v", err)
	}
	if m := s.Submit(say("こんにちは")); m.Status != dom.StatusSkipped || m.Reason != reasonDisabled {
		t.Fatalf("disabled = %+v", m)
	}
	p.Ignore = []string{"("}
	if err := s.SetPolicy(p); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("bad policy accepted: %v", err)
	}
	if s.Policy().Enabled {
		t.Fatalf("rejected policy was applied")
	}

	if got := s.Messages(dom.Query{Status: "completed"}); len(got) != 1 || got[0].ID != m.ID {
		t.Fatalf("Messages = %+v", got)
	}
	if _, err := s.Archive(context.Background(), dom.ArchiveQuery{}); !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("Archive without store = %v", err)
	}
}

func TestPipeline_FeedAndWriter(t *testing.T) {
	var mu sync.Mutex
	var persisted []dom.Message
	w := NewWriter("archive", func(_ context.Context, xs []dom.Message) error {
		mu.Lock()
		persisted = append(persisted, xs...)
		mu.Unlock()
		return nil
	}, WriterConfig{Batch: 1, Interval: 10 * time.Millisecond})
	s := newSvc(t, testConfig(), testPolicy(), translateTo("Hello"), WithWriter(w))
	start(t, s)

	ch := make(chan dom.Event, 2)
	ch <- say("こんにちは")
	ch <- say("123")
	close(ch)
	if err := s.Feed(context.Background(), ch); err != nil {
		t.Fatalf("Feed: %v", err)
	}
	testkit.Eventually(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(persisted) == 2
	}, "both terminal messages persisted")
}

func TestNew_PanicsOnInvalidPolicy(t *testing.T) {
	p := testPolicy()
	p.Engine = ""
	testkit.MustPanic(t, func() { New(testConfig(), p, engines{}) })
}
