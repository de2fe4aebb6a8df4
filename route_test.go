package starapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompilePath(t *testing.T) {
	converters := defaultConverters()

	tests := []struct {
		name       string
		path       string
		matches    map[string]bool
		wantParams []string
	}{
		{
			name: "static path",
			path: "/users",
			matches: map[string]bool{
				"/users":    true,
				"/users/":   false,
				"/users/1":  false,
				"/usersxxx": false,
			},
		},
		{
			name: "default converter is str",
			path: "/users/{name}",
			matches: map[string]bool{
				"/users/ami":   true,
				"/users/a.b-c": true,
				"/users/a/b":   false,
				"/users/":      false,
			},
			wantParams: []string{"name"},
		},
		{
			name: "int converter",
			path: "/users/{id:int}",
			matches: map[string]bool{
				"/users/42":  true,
				"/users/ami": false,
			},
			wantParams: []string{"id"},
		},
		{
			name: "two params",
			path: "/users/{id:int}/posts/{slug}",
			matches: map[string]bool{
				"/users/1/posts/hello": true,
				"/users/1/posts":       false,
			},
			wantParams: []string{"id", "slug"},
		},
		{
			name: "path converter spans slashes",
			path: "/files/{rest:path}",
			matches: map[string]bool{
				"/files/a/b/c.txt": true,
				"/files/":          true,
			},
			wantParams: []string{"rest"},
		},
		{
			name: "regex metacharacters in literals are quoted",
			path: "/v1.0/users",
			matches: map[string]bool{
				"/v1.0/users": true,
				"/v1x0/users": false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re, names, convs := compilePath(tt.path, converters)
			assert.Equal(t, tt.wantParams, names)
			assert.Len(t, convs, len(tt.wantParams))
			for path, want := range tt.matches {
				assert.Equal(t, want, re.MatchString(path), "path %q", path)
			}
		})
	}
}

func TestCompilePathUnknownConverterPanics(t *testing.T) {
	defer func() {
		rec := recover()
		require.NotNil(t, rec)
		err, ok := rec.(*ConverterNotFoundError)
		require.True(t, ok, "panic value should be *ConverterNotFoundError, got %T", rec)
		assert.Equal(t, "nope", err.Name)
	}()
	compilePath("/users/{id:nope}", defaultConverters())
}

func TestCompilePathDuplicateParamPanics(t *testing.T) {
	assert.Panics(t, func() {
		compilePath("/{id}/{id}", defaultConverters())
	})
}

func TestRouteMatch(t *testing.T) {
	app := New()
	rt := app.Get("/messages/{id:int}", func(r *Request) (*Response, error) {
		return nil, nil
	})

	t.Run("full match converts params", func(t *testing.T) {
		m, params, raw := rt.match(http.MethodGet, "/messages/42")
		assert.Equal(t, MatchFull, m)
		assert.Equal(t, 42, params["id"])
		assert.Equal(t, "42", raw["id"])
	})

	t.Run("auto head answers too", func(t *testing.T) {
		m, _, _ := rt.match(http.MethodHead, "/messages/42")
		assert.Equal(t, MatchFull, m)
	})

	t.Run("wrong method is partial", func(t *testing.T) {
		m, _, _ := rt.match(http.MethodPost, "/messages/42")
		assert.Equal(t, MatchPartial, m)
	})

	t.Run("wrong path is none", func(t *testing.T) {
		m, _, _ := rt.match(http.MethodGet, "/messages/ami")
		assert.Equal(t, MatchNone, m)
	})
}

func TestRouteMatchConverterFailure(t *testing.T) {
	app := New()
	// The datetime regex accepts any segment, so conversion can still fail.
	rt := app.Get("/since/{when:datetime}", func(r *Request) (*Response, error) {
		return nil, nil
	})

	m, params, _ := rt.match(http.MethodGet, "/since/2024-01-02")
	require.Equal(t, MatchFull, m)
	assert.NotNil(t, params["when"])

	m, _, _ = rt.match(http.MethodGet, "/since/notadate")
	assert.Equal(t, MatchNone, m)
}

func TestRouteMethods(t *testing.T) {
	app := New()
	rt := app.Route("/things", func(r *Request) (*Response, error) { return nil, nil },
		"get", "post", "GET")

	assert.Equal(t, []string{"GET", "POST", "HEAD"}, rt.Methods())

	// Methods returns a copy.
	rt.Methods()[0] = "PUT"
	assert.Equal(t, []string{"GET", "POST", "HEAD"}, rt.Methods())
}

func TestDocPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/users", "/users"},
		{"/users/{id:int}", "/users/{id}"},
		{"/users/{id}", "/users/{id}"},
		{"/a/{x:float}/b/{y:uuid}", "/a/{x}/b/{y}"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, docPath(tt.in))
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		parts []string
		want  string
	}{
		{[]string{"", "/users", "/{id}"}, "/users/{id}"},
		{[]string{"/api", "/users/", "/"}, "/api/users"},
		{[]string{"api", "users"}, "/api/users"},
		{[]string{"", ""}, "/"},
		{[]string{"/v1", ""}, "/v1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, joinPath(tt.parts...))
	}
}
