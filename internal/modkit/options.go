package modkit

import (
	"net/http"

	"linkshell/internal/modkit/httpkit"
)

// Built is what a module constructor reads after its options are applied
type Built struct {
	Name      string
	Prefix    string
	Mw        []func(http.Handler) http.Handler
	Ports     any  // injected value, the receiving module owns its type
	SwaggerOn bool // docs are served, mount the doc-only routes too
	Register  func(httpkit.Router)
}

// Option mutates a Built
type Option func(*Built)

// Build applies opts left to right. Modules pass their defaults first and
// append the caller's options, so the caller wins
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		o(&b)
	}
	return b
}

func WithName(name string) Option { return func(b *Built) { b.Name = name } }

// WithPrefix sets the route prefix below /api/v1
func WithPrefix(prefix string) Option { return func(b *Built) { b.Prefix = prefix } }

// WithMiddlewares wraps only this module's routes. Repeated calls accumulate
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(b *Built) { b.Mw = append(b.Mw[:len(b.Mw):len(b.Mw)], mw...) }
}

func WithPorts[T any](p T) Option { return func(b *Built) { b.Ports = p } }

func WithSwagger(on bool) Option { return func(b *Built) { b.SwaggerOn = on } }

// WithRegister mounts extra routes next to the module's own
func WithRegister(fn func(httpkit.Router)) Option { return func(b *Built) { b.Register = fn } }
