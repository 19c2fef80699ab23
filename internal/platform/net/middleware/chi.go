package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// Middleware is the shape every constructor here returns
type Middleware = func(http.Handler) http.Handler

// RequestID reuses an inbound X-Request-ID or mints one
func RequestID() Middleware { return chimw.RequestID }

// RealIP trusts X-Forwarded-For and X-Real-IP for RemoteAddr
func RealIP() Middleware { return chimw.RealIP }

func Timeout(d time.Duration) Middleware { return chimw.Timeout(d) }

func NoCache() Middleware { return chimw.NoCache }

// Compress gzips and deflates text and JSON responses at level
func Compress(level int) Middleware { return chimw.NewCompressor(level).Handler }

func StripSlashes() Middleware { return chimw.StripSlashes }

// Throttle caps in-flight requests and answers 429 past the backlog
func Throttle(limit int) Middleware { return chimw.Throttle(limit) }

// CORSOptions narrows go-chi/cors. Zero fields take the API defaults
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

var corsDefaults = CORSOptions{
	AllowedOrigins: []string{"*"},
	AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
	AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	ExposedHeaders: []string{"X-Request-ID", "API-Version", "Retry-After"},
}

// CORS lets browser overlays call the API
func CORS(o CORSOptions) Middleware {
	return chicors.Handler(chicors.Options{
		AllowedOrigins:   or(o.AllowedOrigins, corsDefaults.AllowedOrigins),
		AllowedMethods:   or(o.AllowedMethods, corsDefaults.AllowedMethods),
		AllowedHeaders:   or(o.AllowedHeaders, corsDefaults.AllowedHeaders),
		ExposedHeaders:   or(o.ExposedHeaders, corsDefaults.ExposedHeaders),
		AllowCredentials: o.AllowCredentials,
		MaxAge:           o.MaxAge,
	})
}

func or(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
