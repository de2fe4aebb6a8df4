package starapi

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Request wraps an incoming http.Request with the conveniences handlers
// need: converted path parameters, query helpers, cached body access,
// request-scoped locals, and the identity set by authentication middleware.
type Request struct {
	raw *http.Request
	app *Application

	rw        http.ResponseWriter
	hijacked  bool
	route     *Route
	wsRoute   *WebSocketRoute
	params    map[string]any
	rawParams map[string]string

	query     url.Values
	hasQuery  bool
	body      []byte
	bodyErr   error
	bodyRead  bool
	form      *formData
	locals    map[string]any
	user      any
	scopes    []string
}

func newRequest(app *Application, w http.ResponseWriter, r *http.Request) *Request {
	return &Request{raw: r, app: app, rw: w}
}

// Raw returns the underlying http.Request.
func (r *Request) Raw() *http.Request { return r.raw }

// App returns the application serving this request.
func (r *Request) App() *Application { return r.app }

// Context returns the request context.
func (r *Request) Context() context.Context { return r.raw.Context() }

// Method returns the HTTP method.
func (r *Request) Method() string { return r.raw.Method }

// Path returns the decoded request path.
func (r *Request) Path() string { return r.raw.URL.Path }

// URL returns the request URL.
func (r *Request) URL() *url.URL { return r.raw.URL }

// Header returns the request headers.
func (r *Request) Header() http.Header { return r.raw.Header }

// Cookie returns the named cookie, or http.ErrNoCookie.
func (r *Request) Cookie(name string) (*http.Cookie, error) { return r.raw.Cookie(name) }

// Cookies returns all request cookies.
func (r *Request) Cookies() []*http.Cookie { return r.raw.Cookies() }

// Route returns the matched route, or nil when no route matched.
func (r *Request) Route() *Route { return r.route }

// RoutePath returns the matched route's path template, or the raw path when
// no route matched. Metrics middleware uses it to avoid high cardinality
// labels.
func (r *Request) RoutePath() string {
	if r.route != nil {
		return r.route.path
	}
	if r.wsRoute != nil {
		return r.wsRoute.path
	}
	return r.Path()
}

// Query returns the parsed query values.
func (r *Request) Query() url.Values {
	if !r.hasQuery {
		r.query = r.raw.URL.Query()
		r.hasQuery = true
	}
	return r.query
}

// QueryParam returns a query value or def when absent.
func (r *Request) QueryParam(name, def string) string {
	if v := r.Query().Get(name); v != "" {
		return v
	}
	return def
}

// Params returns the converted path parameters.
func (r *Request) Params() map[string]any { return r.params }

// Param returns a converted path parameter, or nil when absent.
func (r *Request) Param(name string) any { return r.params[name] }

// ParamString returns the raw, unconverted path parameter.
func (r *Request) ParamString(name string) string { return r.rawParams[name] }

// ParamInt returns an int path parameter. It returns 0 when the parameter is
// absent or was not declared with the int converter.
func (r *Request) ParamInt(name string) int {
	v, _ := r.params[name].(int)
	return v
}

// ParamFloat returns a float64 path parameter.
func (r *Request) ParamFloat(name string) float64 {
	v, _ := r.params[name].(float64)
	return v
}

// ParamTime returns a time.Time path parameter.
func (r *Request) ParamTime(name string) time.Time {
	v, _ := r.params[name].(time.Time)
	return v
}

// ParamUUID returns a uuid.UUID path parameter.
func (r *Request) ParamUUID(name string) uuid.UUID {
	v, _ := r.params[name].(uuid.UUID)
	return v
}

// Body reads and caches the request body. Subsequent calls return the same
// bytes.
func (r *Request) Body() ([]byte, error) {
	if !r.bodyRead {
		r.body, r.bodyErr = io.ReadAll(r.raw.Body)
		r.bodyRead = true
	}
	return r.body, r.bodyErr
}

// Locals returns a request-scoped value stored by SetLocal, or nil.
func (r *Request) Locals(key string) any { return r.locals[key] }

// SetLocal stores a request-scoped value for downstream handlers.
func (r *Request) SetLocal(key string, value any) {
	if r.locals == nil {
		r.locals = make(map[string]any)
	}
	r.locals[key] = value
}

// User returns the identity set by authentication middleware, or nil.
func (r *Request) User() any { return r.user }

// SetUser attaches an authenticated identity to the request.
func (r *Request) SetUser(user any) { r.user = user }

// Scopes returns the auth scopes granted to this request.
func (r *Request) Scopes() []string { return r.scopes }

// SetScopes replaces the auth scopes granted to this request.
func (r *Request) SetScopes(scopes []string) { r.scopes = scopes }

// HasScope reports whether the request was granted the scope.
func (r *Request) HasScope(scope string) bool {
	for _, s := range r.scopes {
		if s == scope {
			return true
		}
	}
	return false
}
