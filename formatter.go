package starapi

// FormatterFunc post-processes a response. Returning nil keeps the original
// response.
type FormatterFunc func(r *Request, resp *Response) (*Response, error)

// ResponseFormatter rewrites outgoing responses based on their status code.
// It runs for every response the application sends, including the router's
// own 404, 405 and error responses, after status handlers. A status without
// a registered formatter passes through unchanged unless a default is set.
type ResponseFormatter struct {
	byStatus map[int]FormatterFunc
	fallback FormatterFunc
}

// NewResponseFormatter creates an empty formatter.
func NewResponseFormatter() *ResponseFormatter {
	return &ResponseFormatter{byStatus: make(map[int]FormatterFunc)}
}

// On registers a formatter for one status code.
func (f *ResponseFormatter) On(status int, fn FormatterFunc) *ResponseFormatter {
	f.byStatus[status] = fn
	return f
}

// Default registers the formatter used for statuses without their own.
func (f *ResponseFormatter) Default(fn FormatterFunc) *ResponseFormatter {
	f.fallback = fn
	return f
}

func (f *ResponseFormatter) format(r *Request, resp *Response) (*Response, error) {
	fn, ok := f.byStatus[resp.StatusCode]
	if !ok {
		fn = f.fallback
	}
	if fn == nil {
		return resp, nil
	}
	out, err := fn(r, resp)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return resp, nil
	}
	return out, nil
}
