package service

import (
	"context"
	"sync/atomic"
	"time"

	"linkshell/internal/platform/logger"
	dom "linkshell/internal/services/pipeline/domain"
)

// FlushFunc persists one batch of terminal messages
type FlushFunc func(ctx context.Context, xs []dom.Message) error

// WriterConfig bounds a Writer
type WriterConfig struct {
	Buffer   int
	Batch    int
	Interval time.Duration
	Timeout  time.Duration
}

func (c WriterConfig) withDefaults() WriterConfig {
	if c.Buffer <= 0 {
		c.Buffer = 1024
	}
	if c.Batch <= 0 {
		c.Batch = 100
	}
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}

// Writer is an Observer that batches terminal messages to a slow sink off the
// dispatch path. When its buffer is full new messages are dropped with a warning
type Writer struct {
	name  string
	cfg   WriterConfig
	flush FlushFunc
	in    chan dom.Message
	log   *logger.Logger

	dropped atomic.Uint64
	written atomic.Uint64
}

// NewWriter builds a writer; call Run to start flushing
func NewWriter(name string, flush FlushFunc, cfg WriterConfig) *Writer {
	cfg = cfg.withDefaults()
	return &Writer{
		name:  name,
		cfg:   cfg,
		flush: flush,
		in:    make(chan dom.Message, cfg.Buffer),
		log:   logger.Named("pipeline-writer-" + name),
	}
}

// OnTerminal implements domain.Observer and never blocks
func (w *Writer) OnTerminal(m dom.Message) {
	select {
	case w.in <- m:
	default:
		n := w.dropped.Add(1)
		w.log.Warn().Int64("message_id", m.ID).Uint64("dropped", n).Msg("writer buffer full, message dropped")
	}
}

// Dropped is the number of messages lost to a full buffer
func (w *Writer) Dropped() uint64 { return w.dropped.Load() }

// Written is the number of messages flushed successfully
func (w *Writer) Written() uint64 { return w.written.Load() }

// Run flushes on batch size or interval until ctx ends, then flushes what is left
func (w *Writer) Run(ctx context.Context) error {
	t := time.NewTicker(w.cfg.Interval)
	defer t.Stop()

	batch := make([]dom.Message, 0, w.cfg.Batch)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		fctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
		if err := w.flush(fctx, batch); err != nil {
			w.log.Error().Err(err).Int("batch", len(batch)).Msg("flush failed")
		} else {
			w.written.Add(uint64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case m := <-w.in:
					batch = append(batch, m)
				default:
					flush(context.WithoutCancel(ctx))
					return nil
				}
			}
		case m := <-w.in:
			batch = append(batch, m)
			if len(batch) >= w.cfg.Batch {
				flush(ctx)
			}
		case <-t.C:
			flush(ctx)
		}
	}
}
