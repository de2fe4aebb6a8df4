package starapi

import (
	"net/http"
	"slices"
	"strings"
)

// Group collects related routes under a shared prefix with optional
// group-wide middleware, a guard, and an error hook. Groups are built
// standalone and attached with Application.AddGroup:
//
//	g := starapi.NewGroup("messages")
//	g.Get("/{id:int}", getMessage)
//	app.AddGroup(g)
type Group struct {
	name       string
	prefix     string
	deprecated bool

	check      CheckFunc
	errHook    ErrorHook
	middleware []Middleware

	routes   []*Route
	wsRoutes []*WebSocketRoute
}

// NewGroup creates a group. The prefix defaults to the lowercased name with
// a leading slash.
func NewGroup(name string) *Group {
	return &Group{name: name, prefix: "/" + strings.ToLower(name)}
}

// GroupName returns the name the group was created with.
func (g *Group) GroupName() string { return g.name }

// Prefix returns the path prefix group routes are mounted under.
func (g *Group) Prefix() string { return g.prefix }

// WithPrefix overrides the default prefix. A leading slash is added when
// missing.
func (g *Group) WithPrefix(prefix string) *Group {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	g.prefix = prefix
	return g
}

// Use adds middleware that wraps every route in the group.
func (g *Group) Use(mw ...Middleware) *Group {
	g.middleware = append(g.middleware, mw...)
	return g
}

// BeforeRequest sets the group guard. It runs before every group route; a
// non-nil response short-circuits the handler.
func (g *Group) BeforeRequest(fn CheckFunc) *Group {
	g.check = fn
	return g
}

// OnError sets the group error hook, called for handler errors that are not
// HTTPErrors before the application hook runs.
func (g *Group) OnError(fn ErrorHook) *Group {
	g.errHook = fn
	return g
}

// Deprecated marks every route in the group deprecated in the OpenAPI
// document, including routes registered later.
func (g *Group) Deprecated() *Group {
	g.deprecated = true
	for _, rt := range g.routes {
		rt.deprecated = true
	}
	return g
}

// Get registers a GET route on the group.
func (g *Group) Get(path string, h HandlerFunc) *Route {
	return g.Route(path, h, http.MethodGet)
}

// Post registers a POST route on the group.
func (g *Group) Post(path string, h HandlerFunc) *Route {
	return g.Route(path, h, http.MethodPost)
}

// Put registers a PUT route on the group.
func (g *Group) Put(path string, h HandlerFunc) *Route {
	return g.Route(path, h, http.MethodPut)
}

// Patch registers a PATCH route on the group.
func (g *Group) Patch(path string, h HandlerFunc) *Route {
	return g.Route(path, h, http.MethodPatch)
}

// Delete registers a DELETE route on the group.
func (g *Group) Delete(path string, h HandlerFunc) *Route {
	return g.Route(path, h, http.MethodDelete)
}

// Head registers a HEAD route on the group.
func (g *Group) Head(path string, h HandlerFunc) *Route {
	return g.Route(path, h, http.MethodHead)
}

// Options registers an OPTIONS route on the group.
func (g *Group) Options(path string, h HandlerFunc) *Route {
	return g.Route(path, h, http.MethodOptions)
}

// Route registers a route answering the given methods.
func (g *Group) Route(path string, h HandlerFunc, methods ...string) *Route {
	rt := &Route{
		path:       path,
		methods:    normalizeMethods(methods),
		handler:    h,
		group:      g,
		deprecated: g.deprecated,
	}
	g.routes = append(g.routes, rt)
	return rt
}

// WebSocket registers a WebSocket route on the group.
func (g *Group) WebSocket(path string, h WebSocketHandlerFunc) *WebSocketRoute {
	rt := &WebSocketRoute{path: path, handler: h, group: g}
	g.wsRoutes = append(g.wsRoutes, rt)
	return rt
}

func normalizeMethods(methods []string) []string {
	out := make([]string, 0, len(methods)+1)
	for _, m := range methods {
		m = strings.ToUpper(m)
		if !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	// GET routes answer HEAD too, matching the platform mux.
	if slices.Contains(out, http.MethodGet) && !slices.Contains(out, http.MethodHead) {
		out = append(out, http.MethodHead)
	}
	return out
}
