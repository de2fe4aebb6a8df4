package starapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ServerConfig holds the listener settings for a Server. Every field maps
// to a STARAPI_* environment variable for ServerConfigFromEnv.
type ServerConfig struct {
	Addr              string        `env:"STARAPI_ADDR" envDefault:":8000"`
	ReadTimeout       time.Duration `env:"STARAPI_READ_TIMEOUT"`
	WriteTimeout      time.Duration `env:"STARAPI_WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `env:"STARAPI_IDLE_TIMEOUT" envDefault:"60s"`
	ReadHeaderTimeout time.Duration `env:"STARAPI_READ_HEADER_TIMEOUT" envDefault:"10s"`

	// CaseInsensitive matches app prefixes regardless of case.
	CaseInsensitive bool `env:"STARAPI_CASE_INSENSITIVE"`

	// Tracing wraps the server handler with OpenTelemetry HTTP
	// instrumentation.
	Tracing bool `env:"STARAPI_TRACING"`
}

// ServerConfigFromEnv reads the server configuration from the environment.
func ServerConfigFromEnv() (ServerConfig, error) {
	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse server config: %w", err)
	}
	return cfg, nil
}

// Server hosts several applications behind one listener, dispatching on the
// first path segment. A request to /api/users/3 with an app registered under
// "api" is forwarded to that app as /users/3.
type Server struct {
	cfg  ServerConfig
	log  *slog.Logger
	apps map[string]*Application
}

// NewServer creates a server. A nil logger falls back to slog.Default.
func NewServer(cfg ServerConfig, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{cfg: cfg, log: log, apps: make(map[string]*Application)}
}

// RegisterApp mounts an application under a path prefix. The prefix is a
// single path segment without slashes; registering a taken prefix returns an
// AppAlreadyRegisteredError.
func (s *Server) RegisterApp(prefix string, app *Application) error {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" || strings.Contains(prefix, "/") {
		return fmt.Errorf("starapi: invalid app prefix %q", prefix)
	}
	if s.cfg.CaseInsensitive {
		prefix = strings.ToLower(prefix)
	}
	if _, exists := s.apps[prefix]; exists {
		return &AppAlreadyRegisteredError{Prefix: prefix}
	}
	s.apps[prefix] = app
	return nil
}

// ServeHTTP forwards the request to the application registered for the
// first path segment, with the segment stripped from the path. Unmatched
// requests get a plain 404.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg, rest := splitPrefix(r.URL.Path)
	key := seg
	if s.cfg.CaseInsensitive {
		key = strings.ToLower(seg)
	}
	app, ok := s.apps[key]
	if !ok {
		if err := NotFound("Not Found").Render(w); err != nil {
			s.log.Debug("write response", "path", r.URL.Path, "error", err)
		}
		return
	}

	r2 := r.Clone(r.Context())
	r2.URL.Path = rest
	if r2.URL.RawPath != "" {
		_, r2.URL.RawPath = splitPrefix(r2.URL.RawPath)
	}
	app.ServeHTTP(w, r2)
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Start(ctx)
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	handler := http.Handler(s)
	if s.cfg.Tracing {
		handler = otelhttp.NewHandler(handler, "starapi.server")
	}

	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("server started", "addr", s.cfg.Addr, "apps", len(s.apps))

	var serveErr error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			serveErr = err
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	}
	s.log.Info("server stopped", "addr", s.cfg.Addr)
	return serveErr
}

// splitPrefix splits /api/users/3 into "api" and "/users/3".
func splitPrefix(path string) (string, string) {
	trimmed := strings.TrimPrefix(path, "/")
	seg, rest, found := strings.Cut(trimmed, "/")
	if !found {
		return seg, "/"
	}
	return seg, "/" + rest
}
