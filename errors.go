package starapi

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is an error that maps to a specific HTTP response. Returning it
// from a handler (or a check) makes the router respond with its status code,
// running a matching status handler first when one is registered.
type HTTPError struct {
	Status  int
	Detail  string
	Headers http.Header
}

// NewError builds an HTTPError. The detail defaults to the standard status
// text when omitted.
func NewError(status int, detail ...string) *HTTPError {
	e := &HTTPError{Status: status, Detail: http.StatusText(status)}
	if len(detail) > 0 {
		e.Detail = detail[0]
	}
	return e
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Detail)
}

// WithHeader attaches a header to the error response.
func (e *HTTPError) WithHeader(key, value string) *HTTPError {
	if e.Headers == nil {
		e.Headers = http.Header{}
	}
	e.Headers.Set(key, value)
	return e
}

// response renders the error as a plain text response.
func (e *HTTPError) response() *Response {
	resp := Text(e.Status, e.Detail)
	for key, values := range e.Headers {
		for _, v := range values {
			resp.Header.Add(key, v)
		}
	}
	return resp
}

// GroupAlreadyAddedError is returned by Application.AddGroup when a group
// with the same name was added before.
type GroupAlreadyAddedError struct {
	Name string
}

func (e *GroupAlreadyAddedError) Error() string {
	return fmt.Sprintf("starapi: the %q group has already been added", e.Name)
}

// ConverterAlreadyAddedError is returned by Application.AddConverter when the
// converter name is already taken.
type ConverterAlreadyAddedError struct {
	Name string
}

func (e *ConverterAlreadyAddedError) Error() string {
	return fmt.Sprintf("starapi: a converter named %q already exists", e.Name)
}

// ConverterNotFoundError reports a path pattern referencing an unknown
// converter. Route registration panics with it, mirroring other routers that
// treat malformed patterns as programmer errors.
type ConverterNotFoundError struct {
	Name string
}

func (e *ConverterNotFoundError) Error() string {
	return fmt.Sprintf("starapi: no converter named %q", e.Name)
}

// InvalidBodyDataError reports a request body that could not be decoded.
// The router maps it to a 400 response.
type InvalidBodyDataError struct {
	Format string
	Err    error
}

func (e *InvalidBodyDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("starapi: invalid %s body data: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("starapi: invalid body data: unsupported format %q", e.Format)
}

func (e *InvalidBodyDataError) Unwrap() error { return e.Err }

// WebSocketClosedError is returned by WebSocket receive and send operations
// after the connection closed.
type WebSocketClosedError struct {
	Code   int
	Reason string
}

func (e *WebSocketClosedError) Error() string {
	return fmt.Sprintf("starapi: websocket closed with code %d: %s", e.Code, e.Reason)
}

// AppAlreadyRegisteredError is returned by Server.RegisterApp for a prefix
// that is already taken.
type AppAlreadyRegisteredError struct {
	Prefix string
}

func (e *AppAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("starapi: an app is already registered for prefix %q", e.Prefix)
}

// ErrTemplatesNotLoaded is returned by Application.Render before templates
// were configured with LoadTemplates or SetTemplates.
var ErrTemplatesNotLoaded = errors.New("starapi: templates are not loaded")

// StatusFromError reports the HTTP status an error will produce: the status
// of an HTTPError, 400 for body decode failures, and 500 for anything else.
// Middleware use it to observe the final status of a failed request.
func StatusFromError(err error) int {
	var ibd *InvalidBodyDataError
	if errors.As(err, &ibd) {
		return http.StatusBadRequest
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return http.StatusInternalServerError
}
