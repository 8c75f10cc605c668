package endpoint

import (
	"appgate/application/http"
)

// Unmatched is the route of requests served by the fallback endpoint.
const Unmatched = "unmatched"

type route struct {
	method string
	path   string
}

// Router matches requests by exact path and method.
// Methods are case-sensitive. Unmatched requests go to the fallback endpoint.
type Router struct {
	routes   map[route]Endpoint
	fallback Endpoint
}

func NewRouter(fallback Endpoint) *Router {
	if fallback == nil {
		fallback = BadRequest
	}
	return &Router{
		routes:   make(map[route]Endpoint),
		fallback: fallback,
	}
}

// Handle registers ep for method and path.
func (r *Router) Handle(method, path string, ep Endpoint) *Router {
	r.routes[route{method: method, path: path}] = ep
	return r
}

func (r *Router) match(req http.Request) (Endpoint, bool) {
	ep, ok := r.routes[route{method: req.Method(), path: req.Path()}]
	return ep, ok
}

func (r *Router) Dispatch(req http.Request) http.Response {
	if ep, ok := r.match(req); ok {
		return ep(req)
	}
	return r.fallback(req)
}

// Route names the route serving req: its registered path, or [Unmatched].
// The result is bounded by the registered routes, so it is safe as a metric label.
func (r *Router) Route(req http.Request) string {
	if _, ok := r.match(req); ok {
		return req.Path()
	}
	return Unmatched
}

// Default returns the router serving /echo and /status.
func Default() *Router {
	return NewRouter(BadRequest).
		Handle("POST", "/echo", Echo).
		Handle("GET", "/status", Status)
}

// Greeter returns a router without routes answering every request with a greeting.
func Greeter() *Router {
	return NewRouter(Greeting)
}
