// Package router is the default Router implementation: a gorilla/mux
// route table plus a middleware chain and static-file handler, wired
// behind the core engine's opaque Router contract.
package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coreh2/h2"
)

// HandlerFunc answers a bridged Request with a Response.
type HandlerFunc func(req *h2.Request) *h2.Response

// Middleware wraps a HandlerFunc to add cross-cutting behavior
// (logging, metrics, recovery) around every route.
type Middleware func(HandlerFunc) HandlerFunc

// Router adapts a gorilla/mux route table to h2.Router. mux's own
// matching machinery (method, path, host) runs against a synthetic
// *http.Request built from the bridged record, then the registered
// HandlerFunc renders the opaque Response the engine expects.
type Router struct {
	mux        *mux.Router
	handlers   map[*mux.Route]HandlerFunc
	middleware []Middleware
}

// New builds an empty router.
func New() *Router {
	return &Router{
		mux:      mux.NewRouter(),
		handlers: make(map[*mux.Route]HandlerFunc),
	}
}

// Use appends mw to the middleware chain, applied outermost-first in
// registration order.
func (r *Router) Use(mw Middleware) {
	r.middleware = append(r.middleware, mw)
}

// Handle registers fn for method+pattern, where pattern is a gorilla/mux
// path pattern (supports {name} path variables).
func (r *Router) Handle(method, pattern string, fn HandlerFunc) {
	route := r.mux.NewRoute().Methods(method).Path(pattern)
	r.handlers[route] = r.wrap(fn)
}

// HandlePrefix registers fn for every path under prefix, e.g. a static
// file catch-all. Exact routes registered with Handle still win when
// they match first, since mux matches routes in registration order.
func (r *Router) HandlePrefix(method, prefix string, fn HandlerFunc) {
	route := r.mux.NewRoute().Methods(method).PathPrefix(prefix)
	r.handlers[route] = r.wrap(fn)
}

func (r *Router) wrap(fn HandlerFunc) HandlerFunc {
	for i := len(r.middleware) - 1; i >= 0; i-- {
		fn = r.middleware[i](fn)
	}
	return fn
}

// Route implements h2.Router.
func (r *Router) Route(req *h2.Request) *h2.Response {
	httpReq, err := http.NewRequest(req.Method, req.Path, nil)
	if err != nil {
		return h2.NewResponse(http.StatusBadRequest)
	}
	if req.Authority != "" {
		httpReq.Host = req.Authority
	}

	var match mux.RouteMatch
	if !r.mux.Match(httpReq, &match) {
		if match.MatchErr == mux.ErrMethodMismatch {
			return h2.NewResponse(http.StatusMethodNotAllowed)
		}
		return h2.NewResponse(http.StatusNotFound)
	}

	for k, v := range match.Vars {
		req.Headers["route."+k] = v
	}

	fn, ok := r.handlers[match.Route]
	if !ok {
		return h2.NewResponse(http.StatusNotFound)
	}

	resp := fn(req)
	if resp == nil {
		resp = h2.NewResponse(http.StatusInternalServerError)
	}
	return resp
}

// PathVar reads a route variable stashed by Route into the request's
// header map, since the opaque Request record has no dedicated field.
func PathVar(req *h2.Request, name string) string {
	return req.Headers["route."+name]
}
