package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kirky-X/xlink/internal/middleware"
	routes "github.com/Kirky-X/xlink/internal/router"
)

// Server owns the underlying http.Server instance.
type Server struct {
	http *http.Server
}

// New creates a new HTTP server bound to the given address and configured
// with the provided application dependencies and middleware chain.
func New(addr string, deps routes.AppDeps, log zerolog.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           Handler(deps, log),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler is the routed, instrumented root handler. It is what New serves
// and what tests drive through httptest.
func Handler(deps routes.AppDeps, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	routes.Register(mux, deps)

	return Chain(
		mux,
		middleware.Recoverer(log),
		middleware.RequestLogger(log),
	)
}

// Start runs the HTTP server and blocks until ListenAndServe returns.
func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server, waiting for in-flight
// requests to complete until the given context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
