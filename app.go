package starapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Config tunes an Application. The zero value is usable.
type Config struct {
	// Logger receives routing errors and lifecycle messages. Defaults to a
	// JSON slog logger on stdout.
	Logger *slog.Logger

	// Docs enables OpenAPI document generation. When set, the application
	// serves GET /openapi.json and a viewer at GET /docs unless routes for
	// those paths exist.
	Docs *OpenAPI

	// DisableSlashRedirect turns off the 307 redirect issued when a path
	// only matches a route after adding or removing its trailing slash.
	DisableSlashRedirect bool

	// CheckOrigin overrides the WebSocket upgrade origin check. The default
	// accepts requests without an Origin header and same-origin requests.
	CheckOrigin func(r *http.Request) bool
}

// Application is the root handler: a route table, group registry, converter
// registry and middleware chain behind a single net/http entry point.
type Application struct {
	config Config
	log    *slog.Logger

	routes     []*Route
	wsRoutes   []*WebSocketRoute
	groups     map[string]*Group
	converters map[string]Converter
	middleware []Middleware

	formatter      *ResponseFormatter
	statusHandlers map[int]HandlerFunc
	onError        ErrorHook

	startupHooks  []func(context.Context) error
	shutdownHooks []func(context.Context) error

	templates templateSet
	upgrader  websocket.Upgrader

	docsOnce sync.Once
	docMu    sync.Mutex
	doc      *builtDoc

	// State carries application-wide values shared by handlers.
	State *State
}

// New creates an application.
func New(config ...Config) *Application {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	app := &Application{
		config:         cfg,
		log:            cfg.Logger,
		groups:         make(map[string]*Group),
		converters:     defaultConverters(),
		statusHandlers: make(map[int]HandlerFunc),
		State:          NewState(),
	}
	app.upgrader = websocket.Upgrader{CheckOrigin: cfg.CheckOrigin}
	return app
}

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger { return app.log }

// Use appends application middleware. The first registered middleware is the
// outermost.
func (app *Application) Use(mw ...Middleware) {
	app.middleware = append(app.middleware, mw...)
}

// Get registers a GET route.
func (app *Application) Get(path string, h HandlerFunc) *Route {
	return app.Route(path, h, http.MethodGet)
}

// Post registers a POST route.
func (app *Application) Post(path string, h HandlerFunc) *Route {
	return app.Route(path, h, http.MethodPost)
}

// Put registers a PUT route.
func (app *Application) Put(path string, h HandlerFunc) *Route {
	return app.Route(path, h, http.MethodPut)
}

// Patch registers a PATCH route.
func (app *Application) Patch(path string, h HandlerFunc) *Route {
	return app.Route(path, h, http.MethodPatch)
}

// Delete registers a DELETE route.
func (app *Application) Delete(path string, h HandlerFunc) *Route {
	return app.Route(path, h, http.MethodDelete)
}

// Head registers a HEAD route.
func (app *Application) Head(path string, h HandlerFunc) *Route {
	return app.Route(path, h, http.MethodHead)
}

// Options registers an OPTIONS route.
func (app *Application) Options(path string, h HandlerFunc) *Route {
	return app.Route(path, h, http.MethodOptions)
}

// Route registers a route answering the given methods. Invalid path
// templates panic; routes match in registration order.
func (app *Application) Route(path string, h HandlerFunc, methods ...string) *Route {
	rt := &Route{path: path, methods: normalizeMethods(methods), handler: h}
	rt.regex, rt.paramNames, rt.converters = compilePath(path, app.converters)
	app.routes = append(app.routes, rt)
	app.invalidateDoc()
	return rt
}

// WebSocket registers a WebSocket route. It matches upgrade requests only.
func (app *Application) WebSocket(path string, h WebSocketHandlerFunc) *WebSocketRoute {
	rt := &WebSocketRoute{path: path, handler: h}
	rt.regex, rt.paramNames, rt.converters = compilePath(path, app.converters)
	app.wsRoutes = append(app.wsRoutes, rt)
	return rt
}

// AddGroup mounts a group under its prefix. Adding a group whose name was
// added before returns a GroupAlreadyAddedError.
func (app *Application) AddGroup(g *Group) error {
	return app.MountGroup(g, "")
}

// MountGroup mounts a group under an extra prefix prepended to the group's
// own prefix.
func (app *Application) MountGroup(g *Group, prefix string) error {
	if _, exists := app.groups[g.name]; exists {
		return &GroupAlreadyAddedError{Name: g.name}
	}
	app.groups[g.name] = g

	for _, rt := range g.routes {
		rt.path = joinPath(prefix, g.prefix, rt.path)
		rt.regex, rt.paramNames, rt.converters = compilePath(rt.path, app.converters)
		rt.middleware = slices.Clone(g.middleware)
		app.routes = append(app.routes, rt)
	}
	for _, rt := range g.wsRoutes {
		rt.path = joinPath(prefix, g.prefix, rt.path)
		rt.regex, rt.paramNames, rt.converters = compilePath(rt.path, app.converters)
		app.wsRoutes = append(app.wsRoutes, rt)
	}
	app.invalidateDoc()
	return nil
}

// AddConverter registers a custom path parameter converter.
func (app *Application) AddConverter(name string, c Converter) error {
	if _, exists := app.converters[name]; exists {
		return &ConverterAlreadyAddedError{Name: name}
	}
	app.converters[name] = c
	return nil
}

// SetFormatter installs the response formatter.
func (app *Application) SetFormatter(f *ResponseFormatter) {
	app.formatter = f
}

// StatusHandler registers a handler that builds the response for a status
// the router produced itself: 404, 405, and any status reached through an
// error.
func (app *Application) StatusHandler(status int, h HandlerFunc) {
	app.statusHandlers[status] = h
}

// OnError sets the application error hook, called for handler errors that
// are not HTTPErrors after the owning group's hook.
func (app *Application) OnError(fn ErrorHook) {
	app.onError = fn
}

// OnStartup registers a hook run before the server starts listening. A hook
// error aborts startup.
func (app *Application) OnStartup(fn func(context.Context) error) {
	app.startupHooks = append(app.startupHooks, fn)
}

// OnShutdown registers a hook run after the server stopped.
func (app *Application) OnShutdown(fn func(context.Context) error) {
	app.shutdownHooks = append(app.shutdownHooks, fn)
}

// Run serves the application on addr until SIGINT or SIGTERM, then shuts
// down gracefully.
func (app *Application) Run(addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Start(ctx, addr)
}

// Start serves the application on addr until ctx is done, then shuts down
// gracefully. Startup hooks run before listening and shutdown hooks after
// the listener closed.
func (app *Application) Start(ctx context.Context, addr string) error {
	for _, hook := range app.startupHooks {
		if err := hook(ctx); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	app.log.Info("server started", "addr", addr)

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

	for _, hook := range app.shutdownHooks {
		if err := hook(context.Background()); err != nil && serveErr == nil {
			serveErr = err
		}
	}
	app.log.Info("server stopped", "addr", addr)
	return serveErr
}
