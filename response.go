package starapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const charset = "utf-8"

// Response is a fully buffered HTTP response. Handlers build one (usually
// through the package constructors) and return it; the router writes it out
// after formatters ran.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	mediaType string
}

// NewResponse builds a 200 response from data. Byte slices are sent as-is
// and strings as text/plain; any other non-nil value is JSON encoded and the
// content type becomes application/json.
func NewResponse(data any) *Response {
	return newResponse(data, http.StatusOK)
}

func newResponse(data any, status int) *Response {
	resp := &Response{StatusCode: status, Header: http.Header{}, mediaType: "text/plain"}
	switch v := data.(type) {
	case nil:
	case []byte:
		resp.Body = v
	case string:
		resp.Body = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Errorf("starapi: encode response body: %w", err))
		}
		resp.Body = b
		resp.mediaType = "application/json"
	}
	return resp
}

// OK builds a 200 response.
func OK(data any) *Response { return newResponse(data, http.StatusOK) }

// Created builds a 201 response.
func Created(data any) *Response { return newResponse(data, http.StatusCreated) }

// NoContent builds an empty 204 response.
func NoContent() *Response { return newResponse(nil, http.StatusNoContent) }

// BadRequest builds a 400 response.
func BadRequest(data any) *Response { return newResponse(data, http.StatusBadRequest) }

// Unauthorized builds a 401 response.
func Unauthorized(data any) *Response { return newResponse(data, http.StatusUnauthorized) }

// Forbidden builds a 403 response.
func Forbidden(data any) *Response { return newResponse(data, http.StatusForbidden) }

// NotFound builds a 404 response.
func NotFound(data any) *Response { return newResponse(data, http.StatusNotFound) }

// MethodNotAllowed builds a 405 response carrying an Allow header with the
// given methods.
func MethodNotAllowed(allow ...string) *Response {
	resp := newResponse("Method Not Allowed", http.StatusMethodNotAllowed)
	if len(allow) > 0 {
		resp.Header.Set("Allow", strings.Join(allow, ", "))
	}
	return resp
}

// InternalError builds a 500 response.
func InternalError(data any) *Response { return newResponse(data, http.StatusInternalServerError) }

// JSON builds a response with the given status and a JSON encoded body.
func JSON(status int, v any) *Response {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("starapi: encode response body: %w", err))
	}
	resp := newResponse(b, status)
	resp.mediaType = "application/json"
	return resp
}

// Text builds a text/plain response.
func Text(status int, s string) *Response { return newResponse(s, status) }

// HTML builds a text/html response.
func HTML(status int, s string) *Response {
	resp := newResponse(s, status)
	resp.mediaType = "text/html"
	return resp
}

// Redirect builds a 302 redirect to url. The Location value is
// percent-escaped, leaving URL delimiters intact.
func Redirect(url string) *Response {
	return RedirectWithCode(url, http.StatusFound)
}

// RedirectWithCode builds a redirect with an explicit 3xx status.
func RedirectWithCode(url string, status int) *Response {
	if status < 300 || status > 308 {
		panic(fmt.Errorf("starapi: invalid redirect status %d", status))
	}
	resp := newResponse(nil, status)
	resp.Header.Set("Location", escapeLocation(url))
	return resp
}

// SetHeader sets a response header and returns the response for chaining.
func (resp *Response) SetHeader(key, value string) *Response {
	resp.Header.Set(key, value)
	return resp
}

// WithHeaders merges headers into the response, replacing keys that were
// already set.
func (resp *Response) WithHeaders(h http.Header) *Response {
	for key, values := range h {
		resp.Header[key] = values
	}
	return resp
}

// ContentType overrides the content type derived from the body.
func (resp *Response) ContentType(mediaType string) *Response {
	resp.mediaType = mediaType
	return resp
}

// Render writes the response to w, filling in Content-Type and
// Content-Length. Text content types get a charset parameter appended.
func (resp *Response) Render(w http.ResponseWriter) error {
	h := w.Header()
	for key, values := range resp.Header {
		for _, v := range values {
			h.Add(key, v)
		}
	}
	if h.Get("Content-Type") == "" && resp.mediaType != "" && len(resp.Body) > 0 {
		ct := resp.mediaType
		if strings.HasPrefix(ct, "text/") {
			ct += "; charset=" + charset
		}
		h.Set("Content-Type", ct)
	}
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotModified {
		h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	w.WriteHeader(resp.StatusCode)
	if len(resp.Body) == 0 {
		return nil
	}
	_, err := w.Write(resp.Body)
	return err
}

// locationSafe lists the bytes left unescaped in a Location header, besides
// unreserved URL characters.
const locationSafe = ":/%#?=@[]!$&'()*+,;"

func escapeLocation(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
			b.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '~':
			b.WriteByte(c)
		case strings.IndexByte(locationSafe, c) >= 0:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
