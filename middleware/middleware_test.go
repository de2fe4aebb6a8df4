package middleware

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cibere/starapi"
)

func newApp() *starapi.Application {
	return starapi.New(starapi.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func do(app *starapi.Application, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRequestIDGenerated(t *testing.T) {
	app := newApp()
	app.Use(RequestID())
	var inside string
	app.Get("/ok", func(r *starapi.Request) (*starapi.Response, error) {
		inside = RequestIDFrom(r)
		return starapi.OK("x"), nil
	})

	rec := do(app, http.MethodGet, "/ok")

	echoed := rec.Header().Get(RequestIDHeader)
	require.NotEmpty(t, echoed)
	assert.Equal(t, inside, echoed)
	_, err := uuid.Parse(echoed)
	assert.NoError(t, err, "generated ids are UUIDs")
}

func TestRequestIDEchoesIncoming(t *testing.T) {
	app := newApp()
	app.Use(RequestID())
	app.Get("/ok", func(r *starapi.Request) (*starapi.Response, error) {
		return starapi.OK("x"), nil
	})

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestRequestIDOnRoutingFailure(t *testing.T) {
	app := newApp()
	app.Use(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/absent", nil)
	req.Header.Set(RequestIDHeader, "req-404")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	// The id rides along on the error, so even the router's own 404
	// carries it.
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "req-404", rec.Header().Get(RequestIDHeader))
}

func TestLoggerEmitsRequestLine(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	app := newApp()
	app.Use(Logger(log))
	app.Get("/messages/{id:int}", func(r *starapi.Request) (*starapi.Response, error) {
		return starapi.OK("x"), nil
	})

	do(app, http.MethodGet, "/messages/5")

	line := buf.String()
	assert.Contains(t, line, `"msg":"request"`)
	assert.Contains(t, line, `"method":"GET"`)
	assert.Contains(t, line, `"path":"/messages/5"`)
	assert.Contains(t, line, `"status":200`)
	assert.Contains(t, line, `"latency_ms"`)
}

func TestLoggerRecordsErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	app := newApp()
	app.Use(Logger(log))
	app.Get("/broken", func(r *starapi.Request) (*starapi.Response, error) {
		return nil, errors.New("db exploded")
	})

	do(app, http.MethodGet, "/broken")

	line := buf.String()
	assert.Contains(t, line, `"level":"ERROR"`)
	assert.Contains(t, line, `"status":500`)
	assert.Contains(t, line, "db exploded")
}

func TestLoggerSeesRoutingFailures(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	app := newApp()
	app.Use(Logger(log))

	do(app, http.MethodGet, "/absent")

	line := buf.String()
	assert.Contains(t, line, `"status":404`)
	assert.Contains(t, line, `"level":"INFO"`)
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	app := newApp()
	app.Use(Recover(log))
	app.Get("/panic", func(r *starapi.Request) (*starapi.Response, error) {
		panic("nil map write")
	})

	rec := do(app, http.MethodGet, "/panic")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error", rec.Body.String())
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "nil map write")
}

func TestRecoverLeavesNormalResponsesAlone(t *testing.T) {
	app := newApp()
	app.Use(Recover(slog.New(slog.NewTextHandler(io.Discard, nil))))
	app.Get("/fine", func(r *starapi.Request) (*starapi.Response, error) {
		return starapi.OK("fine"), nil
	})

	rec := do(app, http.MethodGet, "/fine")
	assert.Equal(t, http.StatusOK, rec.Code)
}
