package starapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formatterRequest() *Request {
	return newRequest(nil, nil, httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestFormatterPerStatus(t *testing.T) {
	f := NewResponseFormatter().
		On(http.StatusNotFound, func(r *Request, resp *Response) (*Response, error) {
			return JSON(http.StatusNotFound, map[string]string{"detail": string(resp.Body)}), nil
		})

	out, err := f.format(formatterRequest(), NotFound("gone"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"detail":"gone"}`, string(out.Body))

	// Statuses without a formatter pass through untouched.
	resp := OK("fine")
	out, err = f.format(formatterRequest(), resp)
	require.NoError(t, err)
	assert.Same(t, resp, out)
}

func TestFormatterDefault(t *testing.T) {
	f := NewResponseFormatter().
		On(http.StatusNotFound, func(r *Request, resp *Response) (*Response, error) {
			return Text(http.StatusNotFound, "specific"), nil
		}).
		Default(func(r *Request, resp *Response) (*Response, error) {
			return resp.SetHeader("X-Formatted", "1"), nil
		})

	out, err := f.format(formatterRequest(), NotFound("x"))
	require.NoError(t, err)
	assert.Equal(t, "specific", string(out.Body))

	out, err = f.format(formatterRequest(), OK("y"))
	require.NoError(t, err)
	assert.Equal(t, "1", out.Header.Get("X-Formatted"))
}

func TestFormatterNilKeepsOriginal(t *testing.T) {
	f := NewResponseFormatter().On(http.StatusOK, func(r *Request, resp *Response) (*Response, error) {
		return nil, nil
	})

	resp := OK("kept")
	out, err := f.format(formatterRequest(), resp)
	require.NoError(t, err)
	assert.Same(t, resp, out)
}

func TestFormatterErrorPropagates(t *testing.T) {
	boom := errors.New("formatter broke")
	f := NewResponseFormatter().On(http.StatusOK, func(r *Request, resp *Response) (*Response, error) {
		return nil, boom
	})

	_, err := f.format(formatterRequest(), OK("x"))
	assert.ErrorIs(t, err, boom)
}
