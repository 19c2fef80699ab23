package http

import (
	"net/http"

	"linkshell/internal/platform/net/http/bind"
)

// JSONHandler decodes and validates a T from the body, then serves fn's
// result. Bind failures answer 400 before fn runs
func JSONHandler[T any](fn func(*http.Request, T) (any, error)) Handler {
	return JSONHandlerNoBody(func(r *http.Request) (any, error) {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return nil, err
		}
		return fn(r, in)
	})
}

// JSONHandlerNoBody serves fn's result. fn may return a Response to pick the
// status; any other value is sent as 200 data
func JSONHandlerNoBody(fn func(*http.Request) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		out, err := fn(r)
		if err != nil {
			return Error(err)
		}
		if resp, ok := out.(Response); ok {
			return resp
		}
		return OK(out)
	})
}
