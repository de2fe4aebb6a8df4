package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/cibere/starapi"
)

// Recover converts handler panics into a 500 error and logs the stack trace.
func Recover(log *slog.Logger) starapi.Middleware {
	return func(next starapi.HandlerFunc) starapi.HandlerFunc {
		return func(r *starapi.Request) (resp *starapi.Response, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("panic recovered",
						"panic", fmt.Sprint(rec),
						"method", r.Method(),
						"path", r.Path(),
						"stack", string(debug.Stack()),
					)
					resp = nil
					err = starapi.NewError(http.StatusInternalServerError)
				}
			}()
			return next(r)
		}
	}
}
