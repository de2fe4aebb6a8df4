package starapi

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"
)

// ServeHTTP routes the request through the middleware chain and writes the
// resulting response. WebSocket upgrades take over the connection inside the
// chain and skip the write.
func (app *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	app.docsOnce.Do(app.registerDocsRoutes)

	req := newRequest(app, w, r)
	h := chain(app.dispatch, app.middleware)
	resp, err := h(req)
	if req.hijacked {
		return
	}
	if err != nil {
		resp = app.responseForError(req, err)
	}
	if resp == nil {
		resp = NoContent()
	}
	resp = app.applyFormatter(req, resp)
	if err := resp.Render(w); err != nil {
		app.log.Debug("write response", "method", req.Method(), "path", req.Path(), "error", err)
	}
}

// dispatch scans the route table. Routes match in registration order; the
// first full match wins. A path that matches only with other methods yields
// 405 with an Allow header, anything else 404 after the optional trailing
// slash redirect.
func (app *Application) dispatch(r *Request) (*Response, error) {
	if websocket.IsWebSocketUpgrade(r.raw) {
		return app.dispatchWebSocket(r)
	}

	method, path := r.Method(), r.Path()
	var allowed []string
	for _, rt := range app.routes {
		m, params, raw := rt.match(method, path)
		switch m {
		case MatchFull:
			r.route = rt
			r.params = params
			r.rawParams = raw
			return app.invoke(r, rt)
		case MatchPartial:
			for _, rm := range rt.methods {
				if !slices.Contains(allowed, rm) {
					allowed = append(allowed, rm)
				}
			}
		}
	}

	if len(allowed) > 0 {
		return nil, NewError(http.StatusMethodNotAllowed).WithHeader("Allow", strings.Join(allowed, ", "))
	}
	if !app.config.DisableSlashRedirect && path != "/" {
		if loc, ok := app.slashRedirect(method, path, r.URL().RawQuery); ok {
			return RedirectWithCode(loc, http.StatusTemporaryRedirect), nil
		}
	}
	return nil, NewError(http.StatusNotFound)
}

func (app *Application) invoke(r *Request, rt *Route) (*Response, error) {
	h := func(r *Request) (*Response, error) {
		if g := rt.group; g != nil && g.check != nil {
			resp, err := g.check(r)
			if resp != nil || err != nil {
				return resp, err
			}
		}
		for _, check := range rt.checks {
			resp, err := check(r)
			if resp != nil || err != nil {
				return resp, err
			}
		}
		return rt.handler(r)
	}
	resp, err := chain(h, rt.middleware)(r)
	if resp == nil && err == nil {
		resp = NoContent()
	}
	return resp, err
}

// slashRedirect reports the path with a toggled trailing slash when a route
// fully matches it.
func (app *Application) slashRedirect(method, path, rawQuery string) (string, bool) {
	alt := path + "/"
	if strings.HasSuffix(path, "/") {
		alt = strings.TrimSuffix(path, "/")
	}
	for _, rt := range app.routes {
		if m, _, _ := rt.match(method, alt); m == MatchFull {
			if rawQuery != "" {
				alt += "?" + rawQuery
			}
			return alt, true
		}
	}
	return "", false
}

// responseForError turns a handler error into a response. Body decode
// failures become 400, HTTPErrors keep their status, and everything else
// runs the error hooks, gets logged, and becomes 500. A registered status
// handler builds the final response.
func (app *Application) responseForError(r *Request, err error) *Response {
	var ibd *InvalidBodyDataError
	if errors.As(err, &ibd) {
		err = NewError(http.StatusBadRequest, "Invalid body data")
	}

	var he *HTTPError
	if !errors.As(err, &he) {
		if rt := r.route; rt != nil && rt.group != nil && rt.group.errHook != nil {
			rt.group.errHook(r, err)
		}
		if app.onError != nil {
			app.onError(r, err)
		}
		app.log.Error("unhandled error in handler",
			"method", r.Method(), "path", r.Path(), "error", err)
		he = NewError(http.StatusInternalServerError)
	}

	if sh, ok := app.statusHandlers[he.Status]; ok {
		resp, herr := sh(r)
		if herr != nil {
			app.log.Error("status handler failed", "status", he.Status, "error", herr)
		} else if resp != nil {
			for key, values := range he.Headers {
				for _, v := range values {
					resp.Header.Set(key, v)
				}
			}
			return resp
		}
	}
	return he.response()
}

func (app *Application) applyFormatter(r *Request, resp *Response) *Response {
	if app.formatter == nil {
		return resp
	}
	out, err := app.formatter.format(r, resp)
	if err != nil {
		app.log.Error("response formatter failed", "status", resp.StatusCode, "error", err)
		return resp
	}
	return out
}

