package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cibere/starapi"
)

func corsApp(cfg CORSConfig) *starapi.Application {
	app := newApp()
	app.Use(CORS(cfg))
	app.Get("/data", func(r *starapi.Request) (*starapi.Response, error) {
		return starapi.OK("data"), nil
	})
	app.Post("/data", func(r *starapi.Request) (*starapi.Response, error) {
		return starapi.Created("made"), nil
	})
	return app
}

func preflight(app *starapi.Application, origin, method, headers string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/data", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", method)
	if headers != "" {
		req.Header.Set("Access-Control-Request-Headers", headers)
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func TestCORSPassthroughWithoutOrigin(t *testing.T) {
	app := corsApp(CORSConfig{AllowOrigins: []string{"https://app.example"}})

	rec := do(app, http.MethodGet, "/data")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightAllowed(t *testing.T) {
	app := corsApp(CORSConfig{
		AllowOrigins: []string{"https://app.example"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"X-Client"},
		MaxAge:       300,
	})

	rec := preflight(app, "https://app.example", "POST", "X-Client, Content-Type")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Client")
	assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORSPreflightDisallowedOrigin(t *testing.T) {
	app := corsApp(CORSConfig{AllowOrigins: []string{"https://app.example"}})

	rec := preflight(app, "https://evil.example", "GET", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Disallowed CORS origin", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightDisallowedMethodAndHeaders(t *testing.T) {
	app := corsApp(CORSConfig{AllowOrigins: []string{"https://app.example"}})

	rec := preflight(app, "https://evil.example", "DELETE", "X-Secret")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Disallowed CORS origin, method, headers", rec.Body.String())
}

func TestCORSPreflightWildcardOrigin(t *testing.T) {
	app := corsApp(CORSConfig{AllowOrigins: []string{"*"}})

	rec := preflight(app, "https://anywhere.example", "GET", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Vary"))
}

func TestCORSPreflightWildcardWithCredentialsEchoes(t *testing.T) {
	app := corsApp(CORSConfig{AllowOrigins: []string{"*"}, AllowCredentials: true})

	rec := preflight(app, "https://app.example", "GET", "")

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORSPreflightOriginRegex(t *testing.T) {
	app := corsApp(CORSConfig{AllowOriginRegex: `https://.*\.example`})

	rec := preflight(app, "https://sub.example", "GET", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = preflight(app, "https://sub.example.evil", "GET", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflightWildcardHeadersEchoRequested(t *testing.T) {
	app := corsApp(CORSConfig{
		AllowOrigins: []string{"https://app.example"},
		AllowHeaders: []string{"*"},
	})

	rec := preflight(app, "https://app.example", "GET", "X-Anything, X-Else")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "X-Anything, X-Else", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSSimpleRequest(t *testing.T) {
	app := corsApp(CORSConfig{
		AllowOrigins:  []string{"https://app.example"},
		ExposeHeaders: []string{"X-Total-Count"},
	})

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data", rec.Body.String())
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Total-Count", rec.Header().Get("Access-Control-Expose-Headers"))
}

func TestCORSSimpleRequestWildcard(t *testing.T) {
	app := corsApp(CORSConfig{AllowOrigins: []string{"*"}})

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSSimpleRequestDisallowedOriginGetsNoHeaders(t *testing.T) {
	app := corsApp(CORSConfig{AllowOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodGet, "/data", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	// The request itself still runs; the browser enforces the block.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSHeadersOnErrorResponses(t *testing.T) {
	app := newApp()
	app.Use(CORS(CORSConfig{AllowOrigins: []string{"https://app.example"}}))

	req := httptest.NewRequest(http.MethodGet, "/absent", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
