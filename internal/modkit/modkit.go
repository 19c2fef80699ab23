// Package modkit wires linkshell modules: shared deps, build options and the
// background work modules own
package modkit

import (
	"context"

	"golang.org/x/sync/errgroup"

	"linkshell/internal/modkit/module"
	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/logger"
)

// Module is the contract every linkshell module satisfies
type Module = module.Module

// Runner is background work owned by a module, such as pipeline workers or retention sweeps
type Runner = module.Runner

// Run starts the runner of every module that has one and blocks until ctx ends
// or a runner fails. The first failure cancels the others
func Run(ctx context.Context, mods ...Module) error {
	log := logger.Named("modkit")
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range mods {
		r, ok := module.RunnerOf(m)
		if !ok {
			continue
		}
		name := m.Name()
		log.Debug().Str("module", name).Msg("runner starting")
		g.Go(func() error {
			if err := r.Run(gctx); err != nil {
				return perr.Wrapf(err, perr.CodeOf(err), "module %s", name)
			}
			return nil
		})
	}
	return g.Wait()
}
