package starapi

// HandlerFunc handles a matched request and returns the response to send.
// Returning an error routes the request through the error path: an HTTPError
// produces a response with its status, anything else runs the error hooks
// and produces a 500. Returning (nil, nil) sends 204 No Content.
type HandlerFunc func(r *Request) (*Response, error)

// Middleware wraps a handler with extra behavior. Application-level
// middleware wrap routing itself, so they also observe 404 and 405 outcomes
// through the returned error.
type Middleware func(next HandlerFunc) HandlerFunc

// CheckFunc guards a route or group. A non-nil response short-circuits the
// handler; a non-nil error takes the error path.
type CheckFunc func(r *Request) (*Response, error)

// ErrorHook observes handler errors that are not HTTPErrors. Group hooks run
// before the application hook.
type ErrorHook func(r *Request, err error)

func chain(h HandlerFunc, mws []Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
