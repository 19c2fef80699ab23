// @title         Linkshell API
// @version       0.1.0
// @description   Chat event ingest, translation status and live policy for the linkshell pipeline
// @BasePath      /api/v1

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"linkshell/internal/core/version"
	"linkshell/internal/modkit"
	"linkshell/internal/modkit/repokit"
	"linkshell/internal/platform/config"
	"linkshell/internal/platform/logger"
	phttp "linkshell/internal/platform/net/http"
	"linkshell/internal/platform/store"

	"linkshell/internal/services/api"
)

func main() {
	logger.Init(logger.FromEnv())
	l := logger.Get()

	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stores are optional; each opens only when its DBURL is set
	st, err := store.Open(ctx, store.FromConfig(root, "api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, st, 5*time.Second)

	srv := phttp.NewServer(apiCfg)

	mods := api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
		},
	)

	info := version.Info()
	l.Info().Str("version", info.Version).Str("commit", info.Commit).Msg("linkshell api starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return modkit.Run(gctx, mods...) })
	g.Go(func() error { return srv.Run(gctx) })
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		l.Panic().Err(err).Msg("linkshell api stopped")
	}
	l.Info().Msg("linkshell api stopped")
}
