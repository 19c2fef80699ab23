// Package httpkit is the routing surface modules build against. Handlers
// return (any, error) and httpkit turns that into the platform envelope, so
// modules never import internal/platform/net/http themselves
package httpkit

import (
	"net/http"

	phttp "linkshell/internal/platform/net/http"
)

type (
	Router   = phttp.Router
	Handler  = phttp.Handler
	Envelope = phttp.Envelope
	Response = phttp.Response
)

// Func is a handler without a request body
type Func func(*http.Request) (any, error)

// BodyFunc receives the decoded and validated JSON body
type BodyFunc[T any] func(*http.Request, T) (any, error)

// Call adapts fn. A returned Response keeps its status; anything else is a 200
func Call(fn Func) Handler { return phttp.JSONHandlerNoBody(fn) }

// JSON decodes the body into T and validates it before fn runs
func JSON[T any](fn BodyFunc[T]) Handler { return phttp.JSONHandler(fn) }

func Get(r Router, path string, fn Func)    { r.Get(path, Call(fn)) }
func Post(r Router, path string, fn Func)   { r.Post(path, Call(fn)) }
func Delete(r Router, path string, fn Func) { r.Delete(path, Call(fn)) }

func PostJSON[T any](r Router, path string, fn BodyFunc[T]) { r.Post(path, JSON(fn)) }
func PutJSON[T any](r Router, path string, fn BodyFunc[T])  { r.Put(path, JSON(fn)) }

// Param reads a chi path parameter
func Param(r *http.Request, name string) string { return phttp.URLParam(r, name) }

func Accepted(data any) Response { return phttp.Accepted(data) }
func Created(data any) Response  { return phttp.Created(data) }
func NoContent() Response        { return phttp.NoContent() }

// List wraps items with page metadata
func List(items any, total, page, size int, cursor string) Response {
	return phttp.List(items, total, page, size, cursor)
}
