// Package api provides the HTTP API for linkshell
package api

import (
	"time"

	"linkshell/internal/platform/config"
	"linkshell/internal/platform/logger"
	phttp "linkshell/internal/platform/net/http"
	"linkshell/internal/platform/store"

	"linkshell/internal/modkit"
	"linkshell/internal/modkit/httpkit"
	"linkshell/internal/modkit/swaggerkit"

	metamod "linkshell/internal/services/api/meta/module"
	pipelinemod "linkshell/internal/services/pipeline/module"
	retentionmod "linkshell/internal/services/retention/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool

	// Pipeline optionally overrides engines or options, mostly for tests
	Pipeline *pipelinemod.Inject
}

// Mount mounts the API modules onto the given router and returns them.
// The caller owns their background work through modkit.Run
func Mount(r phttp.Router, opt Options) []modkit.Module {
	deps := modkit.Deps{Cfg: opt.Config}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.CH = opt.Store.CH
	}

	pipeOpts := []modkit.Option{modkit.WithSwagger(opt.EnableSwagger)}
	if opt.Pipeline != nil {
		pipeOpts = append(pipeOpts, modkit.WithPorts(*opt.Pipeline))
	}
	pipeline := pipelinemod.New(deps, pipeOpts...)
	meta := metamod.New(deps, modkit.WithPorts(metamod.Inject{
		Checks: []metamod.Check{{Name: "engine", Target: pipeline}},
	}))

	mods := []modkit.Module{meta, pipeline}
	// retention only prunes Postgres tables
	if deps.PG != nil {
		mods = append(mods, retentionmod.New(deps))
	}

	apiCfg := opt.Config.Prefix("CORE_API_")
	stack := httpkit.CommonStack(httpkit.StackOptions{
		CORSOrigins: apiCfg.MayCSV("CORS_ORIGINS", nil),
		Timeout:     apiCfg.MayDuration("REQUEST_TIMEOUT", 30*time.Second),
		Slow:        apiCfg.MayDuration("SLOW_REQUEST", 500*time.Millisecond),
		MaxInFlight: apiCfg.MayInt("MAX_IN_FLIGHT", 0),
	})

	swaggerkit.Mount(r, opt.EnableSwagger)
	phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
		}
	})
	return mods
}
