// Package swaggerkit mounts Swagger UI over an OpenAPI document built from the live route table
package swaggerkit

import (
	"net/http"

	phttp "linkshell/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// APIBase is the prefix whose routes are documented
const APIBase = "/api/v1"

// Mount the Swagger UI and JSON spec if enabled. Routes registered on r after
// Mount still show up because the document is built per request
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	r.Get("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", serveDocJSON(r.Mux(), APIBase))
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("api"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}
