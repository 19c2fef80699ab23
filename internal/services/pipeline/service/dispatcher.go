package service

import (
	"context"
	"errors"
	"time"

	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/logger"
	dom "linkshell/internal/services/pipeline/domain"
)

// work is one dispatch loop: pop, resolve locally or translate, deliver
func (s *Svc) work(ctx context.Context, id int) error {
	log := logger.Named("pipeline-worker").With().Int("worker", id).Logger()
	for {
		req, err := s.sched.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Msg("scheduler wait failed")
			continue
		}
		s.dispatch(&log, req)
	}
}

// dispatch runs one attempt. No lock is held across the engine call
func (s *Svc) dispatch(log *logger.Logger, req dom.Request) {
	res := dom.ResultFor(req)
	rctx := req.Context()

	if rctx.Err() != nil {
		res.Kind, res.Reason = dom.KindCancelled, "cancelled"
		s.finish(req, res)
		return
	}
	if req.Expired(s.cfg.QueueTTL, s.now()) {
		res.Kind, res.Reason = dom.KindCancelled, "expired in queue"
		s.finish(req, res)
		return
	}

	s.sink.Begin(req)

	fp := Fingerprint(req.Engine, req.Source, req.Target, req.Text)
	if text, ok := s.lookup(rctx, log, fp); ok {
		s.stats.cacheHits.Add(1)
		res.Translated, res.FromCache, res.CompletedAt = text, true, s.now()
		s.finish(req, res)
		return
	}

	eng, ok := s.engines.Engine(req.Engine)
	if !ok {
		res.Kind = dom.KindEngineFailure
		res.Err = perr.NotFoundf("unknown engine %q", req.Engine)
		s.finish(req, res)
		return
	}

	// only engine calls spend tokens; cancellation is checked again after the wait
	if err := s.sched.Wait(rctx); err != nil || rctx.Err() != nil {
		res.Kind, res.Reason = dom.KindCancelled, "cancelled"
		s.finish(req, res)
		return
	}

	s.stats.engineCalls.Add(1)
	cctx, cancel := context.WithTimeout(rctx, s.cfg.Timeout)
	start := s.now()
	out, err := eng.Translate(cctx, req.Text, req.Source, req.Target)
	cancel()
	res.Duration = s.now().Sub(start)
	res.CompletedAt = s.now()
	res.Engine = eng.Name()
	res.Translated = out

	switch {
	case err != nil && rctx.Err() != nil:
		res.Kind, res.Reason, res.Translated = dom.KindCancelled, "cancelled", ""
	case err != nil && (errors.Is(err, context.DeadlineExceeded) || perr.IsCode(err, perr.ErrorCodeTimeout)):
		res.Kind, res.Translated = dom.KindEngineTimeout, ""
		res.Err = perr.Wrapf(err, perr.ErrorCodeTimeout, "%s timed out after %s", eng.Name(), s.cfg.Timeout)
	case err != nil:
		res.Kind, res.Err, res.Translated = dom.KindEngineFailure, err, ""
	case !res.Successful():
		res.Kind = dom.KindNonTranslation
	}

	if res.Kind == dom.KindNone {
		s.store(rctx, log, fp, out)
		s.finish(req, res)
		return
	}

	if s.retry(log, req, res) {
		return
	}
	s.finish(req, res)
}

// lookup consults L1 then L2; an L2 hit is promoted into L1
func (s *Svc) lookup(ctx context.Context, log *logger.Logger, fp string) (string, bool) {
	if text, ok := s.cache.Get(fp); ok {
		return text, true
	}
	if s.l2 == nil {
		return "", false
	}
	text, ok, err := s.l2.Lookup(ctx, fp, s.cache.TTL())
	if err != nil {
		log.Warn().Err(err).Msg("persistent cache lookup failed")
		return "", false
	}
	if ok {
		s.cache.Put(fp, text)
	}
	return text, ok
}

func (s *Svc) store(ctx context.Context, log *logger.Logger, fp, text string) {
	s.cache.Put(fp, text)
	if s.l2 == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.l2.Store(sctx, fp, text); err != nil {
		log.Warn().Err(err).Msg("persistent cache store failed")
	}
}

// permanent reports engine errors another attempt cannot fix
func permanent(err error) bool {
	switch perr.CodeOf(err) {
	case perr.ErrorCodeInvalidArgument, perr.ErrorCodeValidation, perr.ErrorCodeNotFound:
		return true
	}
	return false
}

// retry offers the next attempt when the outcome, budget and policy allow it.
// The attempt's result is recorded before the retry becomes visible to workers
func (s *Svc) retry(log *logger.Logger, req dom.Request, res dom.Result) bool {
	if !res.Kind.Retryable() || !s.policy.Load().Retry || !req.CanRetry() || permanent(res.Err) {
		return false
	}
	next := req.Next()
	if res.Kind == dom.KindNonTranslation {
		if req.Echoes >= 1 {
			return false
		}
		next.Echoes++
	}
	s.sink.Retrying(res)
	if err := s.sched.Offer(next); err != nil {
		log.Warn().Err(err).Int64("message_id", req.MessageID).Msg("retry not admitted")
		return false
	}
	s.stats.retries.Add(1)
	log.Debug().Int64("message_id", req.MessageID).Int("retry", next.RetryCount).Str("kind", res.Kind.String()).Msg("retry scheduled")
	return true
}

// finish writes a terminal result and releases the message's cancellation handle
func (s *Svc) finish(req dom.Request, res dom.Result) {
	s.untrack(req.MessageID)
	s.sink.Apply(res)
}
