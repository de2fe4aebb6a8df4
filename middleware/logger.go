package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/cibere/starapi"
)

// Logger emits one structured log line per request with the final status,
// including requests that fail before reaching a handler. When the request is
// traced the line carries the trace id so logs and spans can be correlated.
func Logger(log *slog.Logger) starapi.Middleware {
	return func(next starapi.HandlerFunc) starapi.HandlerFunc {
		return func(r *starapi.Request) (*starapi.Response, error) {
			start := time.Now()
			resp, err := next(r)
			latency := time.Since(start)

			var status int
			switch {
			case err != nil:
				status = starapi.StatusFromError(err)
			case resp == nil:
				status = http.StatusNoContent
			default:
				status = resp.StatusCode
			}

			attrs := []any{
				"request_id", RequestIDFrom(r),
				"method", r.Method(),
				"path", r.Path(),
				"status", status,
				"latency_ms", float64(latency.Microseconds()) / 1000.0,
			}
			if sc := trace.SpanFromContext(r.Context()).SpanContext(); sc.HasTraceID() {
				attrs = append(attrs, "trace_id", sc.TraceID().String())
			}

			if status >= http.StatusInternalServerError && err != nil {
				log.Error("request", append(attrs, "error", err.Error())...)
			} else {
				log.Info("request", attrs...)
			}
			return resp, err
		}
	}
}
