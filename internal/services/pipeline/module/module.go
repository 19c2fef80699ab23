// Package module wires the translation pipeline into the API using modkit
package module

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"linkshell/internal/adapters/engine"
	modkit "linkshell/internal/modkit"
	"linkshell/internal/modkit/httpkit"
	"linkshell/internal/modkit/repokit"
	"linkshell/internal/modkit/swaggerkit"
	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/logger"

	dom "linkshell/internal/services/pipeline/domain"
	pipehttp "linkshell/internal/services/pipeline/http"
	"linkshell/internal/services/pipeline/repo"
	"linkshell/internal/services/pipeline/service"
)

const schemaTimeout = 30 * time.Second

// Module implements the pipeline API module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws   []func(http.Handler) http.Handler
	ports Ports

	register func(httpkit.Router)

	run     uuid.UUID
	svc     *service.Svc
	engines dom.EngineResolver
	storage repo.Storage
	audit   *repo.Audit
	log     *logger.Logger
}

// Runner runs the pipeline workers until ctx ends
type Runner interface {
	Run(ctx context.Context) error
}

// Ports is the port set the pipeline exposes to main and other modules
type Ports struct {
	Pipeline dom.PipelinePort
	Runner   Runner
}

// Inject carries optional ports supplied by the caller through modkit.WithPorts
type Inject struct {
	Engines dom.EngineResolver
	Options *Options
}

// New constructs the pipeline module (config-driven, stores optional)
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("pipeline"),
		modkit.WithPrefix("/pipeline"),
	}, opts...)...)

	var injected Inject
	if p, ok := b.Ports.(Inject); ok {
		injected = p
	}

	var cfg Options
	if injected.Options != nil {
		cfg = *injected.Options
	} else {
		cfg = FromConfig(deps.Cfg)
	}

	log := logger.Named("pipeline-module")
	policy, err := LoadPolicy(cfg.PolicyFile, cfg.Policy)
	if err != nil {
		panic("pipeline module: " + err.Error())
	}

	engines := injected.Engines
	if engines == nil {
		engines = engine.Build(cfg.Engines)
	}

	m := &Module{
		deps:    deps,
		name:    b.Name,
		prefix:  b.Prefix,
		mws:     b.Mw,
		run:     uuid.New(),
		engines: engines,
		log:     log,
	}

	svcOpts := []service.Option{}
	if deps.PG != nil && (cfg.CachePersist || cfg.Archive) {
		m.storage = repokit.MustBind(repo.NewPG(m.run), deps.PG)
		if cfg.CachePersist {
			svcOpts = append(svcOpts, service.WithCacheStore(m.storage))
		}
		if cfg.Archive {
			svcOpts = append(svcOpts,
				service.WithArchive(m.storage),
				service.WithWriter(service.NewWriter("archive", m.storage.WriteMessages, cfg.Writer)),
			)
		}
	}
	if deps.CH != nil && cfg.Audit {
		m.audit = repo.NewAudit(deps.CH, m.run)
		svcOpts = append(svcOpts, service.WithWriter(service.NewWriter("audit", m.audit.WriteAudit, cfg.Writer)))
	}

	m.svc = service.New(cfg.Service, policy, engines, svcOpts...)
	m.ports = Ports{Pipeline: m.svc, Runner: m}

	log.Info().
		Str("run", m.run.String()).
		Bool("pg", m.storage != nil).
		Bool("audit", m.audit != nil).
		Str("engine", policy.Engine).
		Msg("pipeline module ready")

	if b.SwaggerOn {
		swaggerkit.Register(optionalRoutes(b.Prefix))
	}

	var summary dom.AuditReader
	if m.audit != nil {
		summary = m.audit
	}
	external := b.Register
	m.register = func(r httpkit.Router) {
		pipehttp.Register(r, m.svc, summary)
		if external != nil {
			external(r)
		}
	}
	return m
}

// Run creates missing tables then runs the pipeline until ctx ends
func (m *Module) Run(ctx context.Context) error {
	if m.storage != nil {
		tx := repokit.WithBeginHooks(m.deps.PG, repokit.StatementTimeout(schemaTimeout))
		if err := repokit.WithTx(ctx, tx, func(q repokit.Queryer) error {
			return repo.NewPG(m.run).Bind(q).EnsureSchema(ctx)
		}); err != nil {
			return err
		}
	}
	if m.audit != nil {
		if err := m.audit.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	m.log.Debug().Bool("pg", m.storage != nil).Bool("audit", m.audit != nil).Msg("schema ready")
	return m.svc.Run(ctx)
}

// Ping reports whether the engine named by the live policy can take work
func (m *Module) Ping(ctx context.Context) error {
	name := m.svc.Policy().Engine
	e, ok := m.engines.Engine(name)
	if !ok {
		return perr.Unavailablef("engine %q is not configured", name)
	}
	if p, ok := e.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.prefix }

// Ports returns the pipeline port set
func (m *Module) Ports() any { return m.ports }

// optionalRoutes documents the 503 the store-backed routes answer when their store is off
func optionalRoutes(prefix string) swaggerkit.SpecMutator {
	return func(spec map[string]any) {
		paths, _ := spec["paths"].(map[string]any)
		for _, p := range []string{prefix + "/archive", prefix + "/audit/summary"} {
			node, _ := paths[p].(map[string]any)
			op, _ := node["get"].(map[string]any)
			resps, ok := op["responses"].(map[string]any)
			if !ok {
				continue
			}
			resps["503"] = map[string]any{"description": "store not configured"}
		}
	}
}
