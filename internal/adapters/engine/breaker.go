package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/logger"
	dom "linkshell/internal/services/pipeline/domain"
)

const (
	defaultFailures = 5
	defaultCooldown = 30 * time.Second
)

// BreakerOptions tunes Guard
type BreakerOptions struct {
	// consecutive failures that open the breaker
	Failures uint32
	// how long the breaker stays open before a single probe is let through
	Cooldown time.Duration
}

// Guard wraps an engine in a circuit breaker. While open, calls fail fast with Unavailable
type Guard struct {
	inner dom.Engine
	cb    *gobreaker.CircuitBreaker
}

// NewGuard wraps e
func NewGuard(e dom.Engine, o BreakerOptions) *Guard {
	if o.Failures == 0 {
		o.Failures = defaultFailures
	}
	if o.Cooldown <= 0 {
		o.Cooldown = defaultCooldown
	}
	log := logger.Named("engine-breaker")
	st := gobreaker.Settings{
		Name:        e.Name(),
		MaxRequests: 1,
		Timeout:     o.Cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= o.Failures
		},
		IsSuccessful: healthy,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("engine", name).Str("from", from.String()).Str("to", to.String()).Msg("engine breaker state changed")
		},
	}
	return &Guard{inner: e, cb: gobreaker.NewCircuitBreaker(st)}
}

// Name implements domain.Engine
func (g *Guard) Name() string { return g.inner.Name() }

// State reports the breaker state, e.g. "closed", "open", "half-open"
func (g *Guard) State() string { return g.cb.State().String() }

// Ping reports Unavailable while the breaker is open
func (g *Guard) Ping(context.Context) error {
	if g.cb.State() == gobreaker.StateOpen {
		return perr.Unavailablef("engine %s circuit open", g.inner.Name())
	}
	return nil
}

// Translate implements domain.Engine
func (g *Guard) Translate(ctx context.Context, text, source, target string) (string, error) {
	out, err := g.cb.Execute(func() (any, error) {
		return g.inner.Translate(ctx, text, source, target)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "engine %s unavailable", g.inner.Name())
	}
	if err != nil {
		return "", err
	}
	s, _ := out.(string)
	return s, nil
}

// healthy decides whether an outcome counts against the engine.
// Caller cancellations and rejected input say nothing about the engine's health
func healthy(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	switch perr.CodeOf(err) {
	case perr.ErrorCodeCanceled, perr.ErrorCodeInvalidArgument, perr.ErrorCodeValidation:
		return true
	}
	return false
}
