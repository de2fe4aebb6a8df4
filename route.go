package starapi

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Match classifies the result of testing a route against a request.
type Match int

const (
	// MatchNone means the path did not match.
	MatchNone Match = iota
	// MatchPartial means the path matched but the method did not. The
	// router answers 405 when a scan ends with only partial matches.
	MatchPartial
	// MatchFull means both path and method matched.
	MatchFull
)

// ParamIn locates a documented parameter.
type ParamIn string

const (
	InQuery  ParamIn = "query"
	InHeader ParamIn = "header"
	InPath   ParamIn = "path"
	InCookie ParamIn = "cookie"
)

// Parameter documents a request parameter for the OpenAPI document.
type Parameter struct {
	In          ParamIn
	Name        string
	Description string
	// Type is a Go value whose type becomes the parameter schema. A nil
	// Type documents a string.
	Type       any
	Required   bool
	Deprecated bool
}

// Route is a single registered path plus its handler and metadata. The
// metadata setters return the route so registration chains:
//
//	app.Get("/messages/{id:int}", editMessage).
//		Summary("Edit a message").
//		Tags("messages").
//		Responds(200, Message{})
type Route struct {
	path       string
	methods    []string
	handler    HandlerFunc
	regex      *regexp.Regexp
	paramNames []string
	converters map[string]Converter

	group      *Group
	middleware []Middleware
	checks     []CheckFunc

	name        string
	summary     string
	description string
	tags        []string
	hidden      bool
	deprecated  bool
	responses   map[int]responseDoc
	payload     any
	parameters  []Parameter
}

type responseDoc struct {
	model       any
	description string
}

// Path returns the route's path template.
func (rt *Route) Path() string { return rt.path }

// Methods returns the methods the route answers.
func (rt *Route) Methods() []string { return slices.Clone(rt.methods) }

// Name sets the route name used as the OpenAPI operation id.
func (rt *Route) Name(name string) *Route {
	rt.name = name
	return rt
}

// Summary sets the one-line description shown in the OpenAPI document.
func (rt *Route) Summary(summary string) *Route {
	rt.summary = summary
	return rt
}

// Description sets the long-form route description.
func (rt *Route) Description(description string) *Route {
	rt.description = description
	return rt
}

// Tags adds OpenAPI tags to the route.
func (rt *Route) Tags(tags ...string) *Route {
	rt.tags = append(rt.tags, tags...)
	return rt
}

// Responds documents a response: the model's type becomes the schema for the
// given status. An optional description replaces the default status text.
func (rt *Route) Responds(status int, model any, description ...string) *Route {
	if rt.responses == nil {
		rt.responses = make(map[int]responseDoc)
	}
	doc := responseDoc{model: model}
	if len(description) > 0 {
		doc.description = description[0]
	}
	rt.responses[status] = doc
	return rt
}

// Accepts documents the request body model.
func (rt *Route) Accepts(model any) *Route {
	rt.payload = model
	return rt
}

// Param documents an additional parameter (query, header or cookie). Path
// parameters are derived from the path template automatically.
func (rt *Route) Param(p Parameter) *Route {
	rt.parameters = append(rt.parameters, p)
	return rt
}

// Hidden excludes the route from the OpenAPI document.
func (rt *Route) Hidden() *Route {
	rt.hidden = true
	return rt
}

// Deprecated marks the route deprecated in the OpenAPI document.
func (rt *Route) Deprecated() *Route {
	rt.deprecated = true
	return rt
}

// Check adds a guard that runs before the handler.
func (rt *Route) Check(fn CheckFunc) *Route {
	rt.checks = append(rt.checks, fn)
	return rt
}

func (rt *Route) match(method, path string) (Match, map[string]any, map[string]string) {
	m := rt.regex.FindStringSubmatch(path)
	if m == nil {
		return MatchNone, nil, nil
	}
	params := make(map[string]any, len(rt.paramNames))
	raw := make(map[string]string, len(rt.paramNames))
	for _, name := range rt.paramNames {
		idx := rt.regex.SubexpIndex(name)
		if idx < 0 || idx >= len(m) {
			return MatchNone, nil, nil
		}
		value := m[idx]
		converted, err := rt.converters[name].Convert(value)
		if err != nil {
			return MatchNone, nil, nil
		}
		raw[name] = value
		params[name] = converted
	}
	if !slices.Contains(rt.methods, method) {
		return MatchPartial, params, raw
	}
	return MatchFull, params, raw
}

// WebSocketHandlerFunc handles an accepted WebSocket connection. A returned
// error closes the connection with close code 1011 unless the connection
// already closed.
type WebSocketHandlerFunc func(ws *WebSocket) error

// WebSocketRoute is a registered WebSocket endpoint. It matches only
// upgrade requests; path parameters work exactly like HTTP routes.
type WebSocketRoute struct {
	path       string
	handler    WebSocketHandlerFunc
	regex      *regexp.Regexp
	paramNames []string
	converters map[string]Converter

	group  *Group
	checks []CheckFunc
}

// Path returns the route's path template.
func (rt *WebSocketRoute) Path() string { return rt.path }

// Check adds a guard that runs before the upgrade. A returned response
// rejects the handshake with a plain HTTP response.
func (rt *WebSocketRoute) Check(fn CheckFunc) *WebSocketRoute {
	rt.checks = append(rt.checks, fn)
	return rt
}

func (rt *WebSocketRoute) match(path string) (Match, map[string]any, map[string]string) {
	m := rt.regex.FindStringSubmatch(path)
	if m == nil {
		return MatchNone, nil, nil
	}
	params := make(map[string]any, len(rt.paramNames))
	raw := make(map[string]string, len(rt.paramNames))
	for _, name := range rt.paramNames {
		idx := rt.regex.SubexpIndex(name)
		if idx < 0 || idx >= len(m) {
			return MatchNone, nil, nil
		}
		value := m[idx]
		converted, err := rt.converters[name].Convert(value)
		if err != nil {
			return MatchNone, nil, nil
		}
		raw[name] = value
		params[name] = converted
	}
	return MatchFull, params, raw
}

var paramPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)(?::([a-zA-Z_][a-zA-Z0-9_]*))?\}`)

// compilePath turns a path template into an anchored regexp with one named
// group per parameter. Unknown converters and duplicated parameter names are
// programmer errors and panic.
func compilePath(path string, converters map[string]Converter) (*regexp.Regexp, []string, map[string]Converter) {
	matches := paramPattern.FindAllStringSubmatchIndex(path, -1)
	var b strings.Builder
	b.WriteString("^")

	var names []string
	convs := make(map[string]Converter, len(matches))
	last := 0
	for _, m := range matches {
		b.WriteString(regexp.QuoteMeta(path[last:m[0]]))
		name := path[m[2]:m[3]]
		convName := "str"
		if m[4] >= 0 {
			convName = path[m[4]:m[5]]
		}
		conv, ok := converters[convName]
		if !ok {
			panic(&ConverterNotFoundError{Name: convName})
		}
		if slices.Contains(names, name) {
			panic(fmt.Errorf("starapi: duplicated path parameter %q in %q", name, path))
		}
		names = append(names, name)
		convs[name] = conv
		fmt.Fprintf(&b, "(?P<%s>%s)", name, conv.Regex())
		last = m[1]
	}
	b.WriteString(regexp.QuoteMeta(path[last:]))
	b.WriteString("$")

	return regexp.MustCompile(b.String()), names, convs
}

// docPath strips converter names from a path template, turning
// /messages/{id:int} into the /messages/{id} form OpenAPI expects.
func docPath(path string) string {
	return paramPattern.ReplaceAllString(path, "{$1}")
}

func joinPath(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		b.WriteString(p)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}
