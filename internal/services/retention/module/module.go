// Package module wires archive retention as a modkit.Module without routes
package module

import (
	"time"

	"linkshell/internal/modkit"
	"linkshell/internal/modkit/httpkit"
	"linkshell/internal/platform/config"

	rdom "linkshell/internal/services/retention/domain"
	rrepo "linkshell/internal/services/retention/repo"
	rservice "linkshell/internal/services/retention/service"
)

// Options for the retention module
type Options struct {
	ArchiveMaxAge time.Duration
	CacheMaxAge   time.Duration
	Batch         int
	Interval      time.Duration
	Timeout       time.Duration
	EnableLeases  bool
}

// FromConfig reads PIPELINE_RETENTION_* values
// ARCHIVE (default 720h) and CACHE (default 168h) are max ages, 0 keeps rows forever
// INTERVAL (default 1h) is the sweep cadence, BATCH (default 5000) rows per delete
// LEASES (default true) takes an advisory lock so only one instance sweeps at a time
func FromConfig(cfg config.Conf) Options {
	r := cfg.Prefix("PIPELINE_RETENTION_")
	return Options{
		ArchiveMaxAge: r.MayDuration("ARCHIVE", 30*24*time.Hour),
		CacheMaxAge:   r.MayDuration("CACHE", 7*24*time.Hour),
		Batch:         r.MayInt("BATCH", 5000),
		Interval:      r.MayDuration("INTERVAL", time.Hour),
		Timeout:       r.MayDuration("STATEMENT_TIMEOUT", 30*time.Second),
		EnableLeases:  r.MayBool("LEASES", true),
	}
}

// Ports exported by the retention module
type Ports struct {
	Runner rdom.RunnerPort
}

// Module implements modkit.Module for retention
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New wires the retention service. deps.PG must be set
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)
	svc := rservice.New(deps.PG, rrepo.NewPG(), rservice.Config{
		Policy: rdom.Policy{
			ArchiveMaxAge: opts.ArchiveMaxAge,
			CacheMaxAge:   opts.CacheMaxAge,
			Batch:         opts.Batch,
		},
		Interval:     opts.Interval,
		Timeout:      opts.Timeout,
		EnableLeases: opts.EnableLeases,
	})
	return &Module{deps: deps, ports: Ports{Runner: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return "retention" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// MountRoutes is a no-op: retention has no HTTP routes
func (m *Module) MountRoutes(_ httpkit.Router) {}
