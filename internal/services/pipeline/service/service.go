// Package service implements the translation pipeline: eligibility, caching,
// rate-limited priority scheduling, dispatch with retries and result delivery
package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"linkshell/internal/core/chatcode"
	"linkshell/internal/core/langhint"
	"linkshell/internal/core/payload"
	"linkshell/internal/core/textnorm"
	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/logger"
	dom "linkshell/internal/services/pipeline/domain"
)

// Config holds the settings fixed for the life of a pipeline
type Config struct {
	TPS        float64
	Burst      int
	MaxQueue   int
	Timeout    time.Duration
	Workers    int
	Cache      bool
	CacheTTL   time.Duration
	CacheSize  int
	History    int
	QueueTTL   time.Duration
	MinLetters int
}

// DefaultConfig mirrors the documented defaults
func DefaultConfig() Config {
	return Config{
		TPS:       5,
		Burst:     1,
		MaxQueue:  100,
		Timeout:   5 * time.Second,
		Workers:   2,
		Cache:     true,
		CacheTTL:  time.Hour,
		CacheSize: 1000,
		History:   500,
	}
}

// Option customises a Svc
type Option func(*Svc)

// WithLogger replaces the component logger
func WithLogger(l *logger.Logger) Option { return func(s *Svc) { s.log = l } }

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option { return func(s *Svc) { s.now = now } }

// WithObserver registers a terminal-transition observer
func WithObserver(o dom.Observer) Option { return func(s *Svc) { s.observers = append(s.observers, o) } }

// WithWriter registers an async writer as observer and runs it alongside the workers
func WithWriter(w *Writer) Option {
	return func(s *Svc) {
		s.observers = append(s.observers, w)
		s.writers = append(s.writers, w)
	}
}

// WithCacheStore enables the persistent second level cache
func WithCacheStore(cs dom.CacheStore) Option { return func(s *Svc) { s.l2 = cs } }

// WithArchive enables archive listing
func WithArchive(a dom.ArchivePort) Option { return func(s *Svc) { s.archive = a } }

type counters struct {
	submitted, completed, failed, skipped atomic.Uint64
	rejected, cacheHits, engineCalls      atomic.Uint64
	retries                               atomic.Uint64
}

// Svc is the pipeline. It owns its history, cache, scheduler and sink; all
// state hangs off this value
type Svc struct {
	cfg     Config
	engines dom.EngineResolver
	policy  atomic.Pointer[compiled]

	log       *logger.Logger
	now       func() time.Time
	observers []dom.Observer
	writers   []*Writer
	l2        dom.CacheStore
	archive   dom.ArchivePort

	hist    *History
	cache   *Cache
	sched   *Scheduler
	sink    *Sink
	builder *Builder

	ids   atomic.Int64
	stats counters

	base    context.Context
	stop    context.CancelFunc
	mu      sync.Mutex
	pending map[int64]context.CancelFunc
	running atomic.Bool
}

var _ dom.PipelinePort = (*Svc)(nil)

// New builds a pipeline. It panics on an invalid policy, as wiring errors do elsewhere
func New(cfg Config, policy dom.Policy, engines dom.EngineResolver, opts ...Option) *Svc {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.History <= 0 {
		cfg.History = def.History
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	s := &Svc{
		cfg:     cfg,
		engines: engines,
		log:     logger.Named("pipeline"),
		now:     time.Now,
		pending: make(map[int64]context.CancelFunc),
	}
	for _, o := range opts {
		o(s)
	}
	cp, err := compile(policy)
	if err != nil {
		panic("pipeline: " + err.Error())
	}
	s.policy.Store(cp)

	s.hist = NewHistory(cfg.History)
	s.cache = NewCache(cfg.Cache, cfg.CacheSize, cfg.CacheTTL)
	s.cache.now = s.now
	s.sched = NewScheduler(cfg.TPS, cfg.Burst, cfg.MaxQueue)
	s.sink = NewSink(s.hist, s.log, s.now)
	for _, o := range s.observers {
		s.sink.Observe(o)
	}
	s.sink.Observe(dom.ObserverFunc(s.count))
	s.builder = NewBuilder(langhint.New(cfg.MinLetters), s.now)
	s.base, s.stop = context.WithCancel(context.Background())
	return s
}

func (s *Svc) count(m dom.Message) {
	switch m.Status {
	case dom.StatusCompleted:
		s.stats.completed.Add(1)
	case dom.StatusFailed:
		s.stats.failed.Add(1)
	case dom.StatusSkipped:
		s.stats.skipped.Add(1)
	}
}

// Submit ingests one event and returns the message snapshot. It never blocks
// on engine work: eligibility, the cache lookup and admission are all local
func (s *Svc) Submit(ev dom.Event) dom.Message {
	s.stats.submitted.Add(1)
	p := s.policy.Load()
	now := s.now()

	info := chatcode.Classify(ev.Code)
	original, plain := ev.Text, ev.Text
	if len(ev.Segments) > 0 {
		if original == "" {
			original = payload.Render(ev.Segments)
		}
		plain = payload.Extract(ev.Segments, p.extractOptions())
	}
	created := ev.Timestamp
	if created.IsZero() {
		created = now
	}
	msg := dom.Message{
		ID:         s.ids.Add(1),
		CreatedAt:  created,
		UpdatedAt:  now,
		Code:       ev.Code,
		Category:   info.Category,
		Channel:    info.Name,
		Sender:     strings.TrimSpace(ev.Sender),
		Original:   original,
		Plain:      textnorm.Clean(plain),
		Segments:   ev.Segments,
		Status:     dom.StatusPending,
		TargetLang: p.TargetLang,
	}
	s.hist.Add(msg)

	req, d := s.builder.Build(msg, p)
	if !d.OK {
		res := dom.Result{MessageID: msg.ID, Original: msg.Plain, Kind: dom.KindEligibilitySkipped, Reason: d.Reason}
		out, _ := s.sink.Apply(res)
		return out
	}

	fp := Fingerprint(req.Engine, req.Source, req.Target, req.Text)
	if text, ok := s.cache.Get(fp); ok {
		s.stats.cacheHits.Add(1)
		s.sink.MarkCached(msg.ID)
		res := dom.ResultFor(req)
		res.Translated, res.FromCache, res.CompletedAt = text, true, now
		out, _ := s.sink.Apply(res)
		return out
	}

	ctx, cancel := context.WithCancel(s.base)
	req = req.WithContext(ctx)
	s.track(msg.ID, cancel)
	if err := s.sched.Offer(req); err != nil {
		s.untrack(msg.ID)
		res := dom.ResultFor(req)
		res.Kind, res.Err = dom.KindAdmissionRejected, err
		if perr.Is(err, ErrClosed) {
			res.Kind = dom.KindCancelled
		}
		res.Reason = perr.WireFrom(err).Message
		s.stats.rejected.Add(1)
		out, _ := s.sink.Apply(res)
		return out
	}
	out, _ := s.hist.Get(msg.ID)
	return out
}

// SubmitBatch submits events in order
func (s *Svc) SubmitBatch(evs []dom.Event) []dom.Message {
	out := make([]dom.Message, 0, len(evs))
	for _, ev := range evs {
		out = append(out, s.Submit(ev))
	}
	return out
}

// Feed submits events from ch until it closes or ctx ends. The channel is the
// boundary between an event source and the pipeline
func (s *Svc) Feed(ctx context.Context, ch <-chan dom.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			s.Submit(ev)
		}
	}
}

func (s *Svc) track(id int64, cancel context.CancelFunc) {
	s.mu.Lock()
	s.pending[id] = cancel
	s.mu.Unlock()
}

func (s *Svc) untrack(id int64) {
	s.mu.Lock()
	if c, ok := s.pending[id]; ok {
		c()
		delete(s.pending, id)
	}
	s.mu.Unlock()
}

// Cancel fires the cancellation handle of a message's outstanding request.
// The message ends Skipped when a worker next observes it
func (s *Svc) Cancel(id int64) error {
	if _, ok := s.hist.Get(id); !ok {
		return perr.NotFoundf("message %d not found", id)
	}
	s.mu.Lock()
	c, ok := s.pending[id]
	s.mu.Unlock()
	if !ok {
		return perr.Conflictf("message %d has no outstanding translation", id)
	}
	c()
	return nil
}

// Message returns a snapshot of one message
func (s *Svc) Message(id int64) (dom.Message, error) {
	m, ok := s.hist.Get(id)
	if !ok {
		return dom.Message{}, perr.NotFoundf("message %d not found", id)
	}
	return m, nil
}

// Messages lists recent messages, newest first
func (s *Svc) Messages(q dom.Query) []dom.Message { return s.hist.List(q) }

// Archive lists persisted terminal messages
func (s *Svc) Archive(ctx context.Context, q dom.ArchiveQuery) ([]dom.Message, error) {
	if s.archive == nil {
		return nil, perr.Unavailablef("message archive is not configured")
	}
	return s.archive.ListMessages(ctx, q)
}

// Policy returns the live policy
func (s *Svc) Policy() dom.Policy { return s.policy.Load().Policy }

// SetPolicy validates and swaps the live policy. Queued requests keep the
// engine and languages they were built with
func (s *Svc) SetPolicy(p dom.Policy) error {
	cp, err := compile(p)
	if err != nil {
		return err
	}
	s.policy.Store(cp)
	s.log.Info().Str("engine", p.Engine).Bool("enabled", p.Enabled).Msg("policy updated")
	return nil
}

// Stats reports counters and gauges
func (s *Svc) Stats() dom.Stats {
	depth := map[string]int{}
	for p, n := range s.sched.Depth() {
		depth[p.String()] = n
	}
	s.mu.Lock()
	inflight := len(s.pending)
	s.mu.Unlock()
	var dropped uint64
	for _, w := range s.writers {
		dropped += w.Dropped()
	}
	return dom.Stats{
		Submitted:   s.stats.submitted.Load(),
		Completed:   s.stats.completed.Load(),
		Failed:      s.stats.failed.Load(),
		Skipped:     s.stats.skipped.Load(),
		Rejected:    s.stats.rejected.Load(),
		CacheHits:   s.stats.cacheHits.Load(),
		EngineCalls: s.stats.engineCalls.Load(),
		Retries:     s.stats.retries.Load(),
		Queued:      s.sched.Len(),
		Depth:       depth,
		InFlight:    inflight,
		CacheSize:   s.cache.Len(),
		History:     s.hist.Len(),
		Dropped:     dropped,
	}
}

// Run starts the dispatch workers and writers and blocks until ctx ends.
// On return every outstanding request has been cancelled and ended Skipped
func (s *Svc) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return perr.Conflictf("pipeline already running")
	}
	s.log.Info().Int("workers", s.cfg.Workers).Float64("tps", s.cfg.TPS).Int("max_queue", s.cfg.MaxQueue).Msg("pipeline starting")

	// the end of ctx reaches engine calls already in flight, not just idle workers
	unhook := context.AfterFunc(ctx, s.stop)
	defer unhook()

	wctx, stopWriters := context.WithCancel(context.WithoutCancel(ctx))
	wg, wgctx := errgroup.WithContext(wctx)
	for _, w := range s.writers {
		wg.Go(func() error { return w.Run(wgctx) })
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() error { return s.work(gctx, i) })
	}
	err := g.Wait()

	s.shutdown()
	stopWriters()
	if werr := wg.Wait(); err == nil {
		err = werr
	}
	s.log.Info().Msg("pipeline stopped")
	return err
}

// shutdown broadcasts cancellation and resolves everything still queued
func (s *Svc) shutdown() {
	s.stop()
	for _, r := range s.sched.Close() {
		res := dom.ResultFor(r)
		res.Kind, res.Reason = dom.KindCancelled, "cancelled"
		s.finish(r, res)
	}
}
