package httpkit

import (
	"net/http"
	"strings"
)

// APIVersion is the version MountAPIV1 mounts
const APIVersion = "v1"

// MountAPI mounts a subrouter under /api/{version}, stamps every response with
// an API-Version header, applies mw and then lets mount register routes
func MountAPI(r Router, version string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	ver := strings.Trim(version, "/")
	r.Route("/api/"+ver, func(api Router) {
		api.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				w.Header().Set("API-Version", ver)
				next.ServeHTTP(w, req)
			})
		})
		if len(mw) > 0 {
			api.Use(mw...)
		}
		mount(api)
	})
}

// MountAPIV1 mounts under /api/v1
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	MountAPI(r, APIVersion, mw, mount)
}
