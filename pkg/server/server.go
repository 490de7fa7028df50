package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/tikzcell/pkg/buildinfo"
	"github.com/matzehuels/tikzcell/pkg/render"
	"github.com/matzehuels/tikzcell/pkg/tikz"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = ":8080"

	// DefaultMaxBodyBytes limits the size of a render request body.
	DefaultMaxBodyBytes = 1 << 20

	shutdownTimeout = 10 * time.Second
)

// DefaultEngines are the LaTeX engines clients may request when Deps.Engines
// is empty.
var DefaultEngines = []string{"xelatex", "pdflatex", "lualatex"}

// Deps holds the server's collaborators.
type Deps struct {
	Renderer *render.Renderer
	Logger   *log.Logger

	// Defaults seeds every request before the body is decoded, so fields
	// the client omits keep the configured values.
	Defaults tikz.Request

	// MaxBodyBytes caps the request body; 0 uses DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// Engines lists the programs a client may name as its engine; empty
	// uses DefaultEngines. The engine is executed on the server, so
	// anything else is refused.
	Engines []string
}

// Server is the HTTP adapter.
type Server struct {
	deps   Deps
	router chi.Router
}

// New builds a server and its routes.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if deps.Defaults.Engine == "" {
		deps.Defaults = tikz.NewRequest("")
	}
	if len(deps.Engines) == 0 {
		deps.Engines = DefaultEngines
	}
	if !slices.Contains(deps.Engines, deps.Defaults.Engine) {
		deps.Logger.Warn("default engine is not in the allowed engines", "engine", deps.Defaults.Engine, "allowed", deps.Engines)
	}

	s := &Server{deps: deps}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no route for "+r.URL.Path, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" not allowed on "+r.URL.Path, "")
	})

	r.Get("/healthz", s.handleHealth)
	r.Post("/render", s.handleRender)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully, letting in-flight renders finish and clean up.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.deps.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type healthResponse struct {
	Status string `json:"status"`
	buildinfo.Info
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Info: buildinfo.Get()})
}
