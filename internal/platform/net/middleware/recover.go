package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	perr "linkshell/internal/platform/errors"
	"linkshell/internal/platform/logger"
	pnet "linkshell/internal/platform/net"
	phttp "linkshell/internal/platform/net/http"
)

// RecoverJSON turns a handler panic into a 500 envelope with code panic.
// http.ErrAbortHandler is re-raised so net/http can drop the connection
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(v)
			}

			rid := pnet.RequestID(r.Context())
			logger.C(r.Context()).Error().
				Str("request_id", rid).
				Str("path", r.URL.Path).
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")

			if rid != "" {
				w.Header().Set("X-Request-ID", rid)
			}
			phttp.Handle(func(*http.Request) phttp.Response {
				return phttp.Error(perr.PanicErrf("panic recovered"))
			}).ServeHTTP(w, r)
		}()
		next.ServeHTTP(w, r)
	})
}
