// Package module wires meta endpoints into the API
package module

import (
	"net/http"
	"time"

	"linkshell/internal/core/version"
	modkit "linkshell/internal/modkit"
	"linkshell/internal/modkit/httpkit"

	metahttp "linkshell/internal/services/api/meta/http"
)

// Check is a readiness dependency added next to the stores
type Check = metahttp.Check

// Inject carries extra readiness checks through modkit.WithPorts
type Inject struct {
	Checks []Check
}

// Module implements the modkit.Module interface
type Module struct {
	name   string
	prefix string
	mws    []func(http.Handler) http.Handler

	register func(httpkit.Router)
}

// New builds the meta module. Disabled stores are reported as skipped checks
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	// untyped nils keep a disabled store from looking unpingable
	checks := []Check{{Name: "pg"}, {Name: "ch"}}
	if deps.PG != nil {
		checks[0].Target = deps.PG
	}
	if deps.CH != nil {
		checks[1].Target = deps.CH
	}
	if in, ok := b.Ports.(Inject); ok {
		checks = append(checks, in.Checks...)
	}

	md := metahttp.Deps{ServiceName: version.Service, StartedAt: time.Now(), Checks: checks}
	external := b.Register
	return &Module{
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		register: func(r httpkit.Router) {
			metahttp.Register(r, md)
			if external != nil {
				external(r)
			}
		},
	}
}

// MountRoutes implements the modkit.Module interface
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		m.register(rr)
	})
}

// Name implements the modkit.Module interface
func (m *Module) Name() string { return m.name }

// Ports implements the modkit.Module interface
func (m *Module) Ports() any { return nil }
