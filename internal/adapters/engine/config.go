package engine

import (
	"time"

	"linkshell/internal/adapters/engine/libre"
	"linkshell/internal/adapters/engine/openai"
	"linkshell/internal/platform/config"
	"linkshell/internal/platform/logger"
)

// Options selects and tunes the engines a process registers
type Options struct {
	Libre   libre.Options
	OpenAI  openai.Options
	Breaker BreakerOptions
}

// FromConfig reads ENGINE_* from cfg
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("ENGINE_")
	return Options{
		Libre: libre.Options{
			BaseURL: c.MayString("LIBRE_URL", ""),
			APIKey:  c.MayString("LIBRE_API_KEY", ""),
			Timeout: c.MayDuration("LIBRE_TIMEOUT", 10*time.Second),
		},
		OpenAI: openai.Options{
			APIKey:  c.MayString("OPENAI_API_KEY", ""),
			Model:   c.MayString("OPENAI_MODEL", ""),
			BaseURL: c.MayString("OPENAI_BASE_URL", ""),
		},
		Breaker: BreakerOptions{
			Failures: uint32(max(c.MayInt("BREAKER_FAILURES", defaultFailures), 1)),
			Cooldown: c.MayDuration("BREAKER_COOLDOWN", defaultCooldown),
		},
	}
}

// Build registers libre always and openai when an API key is present, each behind a breaker
func Build(o Options) *Registry {
	r := NewRegistry(NewGuard(libre.New(o.Libre), o.Breaker))
	if o.OpenAI.APIKey != "" {
		r.Register(NewGuard(openai.New(o.OpenAI), o.Breaker))
	}
	logger.Named("engine").Info().Strs("engines", r.Names()).Msg("translation engines registered")
	return r
}
