// Package module defines the contract linkshell modules satisfy and the port
// lookups main uses to wire them
package module

import (
	"context"

	phttp "linkshell/internal/platform/net/http"
)

// Module mounts routes and exposes a ports value. Kept apart from modkit so a
// module can export its own ports type without an import cycle
type Module interface {
	MountRoutes(r phttp.Router)
	Ports() any
	Name() string
}

// Runner is background work that lives as long as the process
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerOf returns the module's background work. A module that is itself a
// Runner wins over any runner carried in its ports
func RunnerOf(m Module) (Runner, bool) {
	if r, ok := m.(Runner); ok {
		return r, true
	}
	return PortsOf[Runner](m)
}
