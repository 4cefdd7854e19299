package server

import (
	"net/http"
	"slices"
	"strings"
	"sync"
)

// BasicRouter implements [Router] on top of an [http.ServeMux] using Go 1.22 method
// patterns. The middleware chain wraps the whole mux, so unmatched paths and 405s pass
// through it too. Register middleware before the first request; the chain is built once.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	patterns    []string

	once    sync.Once
	handler http.Handler
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. The first one added is the outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method and path. The path may contain wildcards such
// as "{id}", read back with [http.Request.PathValue]. An empty method matches any.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	pattern := path
	if method != "" {
		pattern = strings.ToUpper(method) + " " + path
	}
	r.register(pattern, handler)
}

// Handler registers handler under every pattern it reports from [Handler.Routes].
func (r *BasicRouter) Handler(handler Handler) {
	for _, pattern := range handler.Routes() {
		r.register(pattern, handler)
	}
}

func (r *BasicRouter) register(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, handler)
	r.patterns = append(r.patterns, pattern)
}

// Routes returns the registered patterns, sorted.
func (r *BasicRouter) Routes() []string {
	out := slices.Clone(r.patterns)
	slices.Sort(out)
	return out
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.once.Do(func() {
		var h http.Handler = r.mux
		for i := len(r.middlewares) - 1; i >= 0; i-- {
			h = r.middlewares[i](h)
		}
		r.handler = h
	})
	r.handler.ServeHTTP(w, req)
}
