package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler is the shape every route is registered with
type Handler = func(http.ResponseWriter, *http.Request)

// Router is what modules mount against. Only chi backs it today
type Router interface {
	Method(method, path string, h Handler)
	Get(path string, h Handler)
	Post(path string, h Handler)
	Put(path string, h Handler)
	Delete(path string, h Handler)

	Handle(pattern string, h http.Handler)
	Use(mw ...func(http.Handler) http.Handler)
	Group(fn func(Router))
	Route(pattern string, fn func(Router))

	// Mux serves the routes registered so far
	Mux() http.Handler
}

type chiRouter struct{ r chi.Router }

// AdaptChi wraps a chi router, usually the root *chi.Mux
func AdaptChi(r chi.Router) Router { return chiRouter{r: r} }

func (c chiRouter) Method(method, path string, h Handler) {
	c.r.Method(method, path, http.HandlerFunc(h))
}

func (c chiRouter) Get(path string, h Handler)    { c.Method(http.MethodGet, path, h) }
func (c chiRouter) Post(path string, h Handler)   { c.Method(http.MethodPost, path, h) }
func (c chiRouter) Put(path string, h Handler)    { c.Method(http.MethodPut, path, h) }
func (c chiRouter) Delete(path string, h Handler) { c.Method(http.MethodDelete, path, h) }

func (c chiRouter) Handle(pattern string, h http.Handler)     { c.r.Handle(pattern, h) }
func (c chiRouter) Use(mw ...func(http.Handler) http.Handler) { c.r.Use(mw...) }

func (c chiRouter) Group(fn func(Router)) {
	c.r.Group(func(sub chi.Router) { fn(chiRouter{r: sub}) })
}

func (c chiRouter) Route(pattern string, fn func(Router)) {
	c.r.Route(pattern, func(sub chi.Router) { fn(chiRouter{r: sub}) })
}

func (c chiRouter) Mux() http.Handler { return c.r }

// URLParam returns the named path parameter of the matched route
func URLParam(r *http.Request, name string) string { return chi.URLParam(r, name) }
