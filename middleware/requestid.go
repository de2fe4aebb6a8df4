// Package middleware provides the request middleware that ships with
// starapi: request ids, logging, panic recovery, metrics, CORS and
// authentication. Every middleware wraps the application's dispatch, so
// routing failures such as 404 and 405 are observed through the returned
// error.
package middleware

import (
	"errors"

	"github.com/google/uuid"

	"github.com/cibere/starapi"
)

const (
	// RequestIDHeader carries the request id on requests and responses.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the locals key the id is stored under.
	RequestIDKey = "request_id"
)

// RequestID propagates the incoming X-Request-ID header, generating one when
// absent, and echoes it on the response.
func RequestID() starapi.Middleware {
	return func(next starapi.HandlerFunc) starapi.HandlerFunc {
		return func(r *starapi.Request) (*starapi.Response, error) {
			id := r.Header().Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			r.SetLocal(RequestIDKey, id)

			resp, err := next(r)
			if resp != nil {
				resp.SetHeader(RequestIDHeader, id)
			}
			var he *starapi.HTTPError
			if errors.As(err, &he) {
				he.WithHeader(RequestIDHeader, id)
			}
			return resp, err
		}
	}
}

// RequestIDFrom returns the id assigned by RequestID, or "" when the
// middleware did not run.
func RequestIDFrom(r *starapi.Request) string {
	id, _ := r.Locals(RequestIDKey).(string)
	return id
}
