// Package starapi is a convenience-focused web framework built on net/http.
//
// It provides route registration with typed path parameters, route groups,
// request and response helpers, middleware, response formatters keyed by
// status code, OpenAPI document generation, and WebSocket routes.
//
// A minimal application:
//
//	app := starapi.New()
//	app.Get("/users/{id:int}", func(r *starapi.Request) (*starapi.Response, error) {
//		return starapi.OK(map[string]any{"id": r.Param("id")}), nil
//	})
//	app.Run(":8000")
package starapi
