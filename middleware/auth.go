package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cibere/starapi"
)

// Scopes granted by the built-in backends.
const (
	ScopeAuthed = "authed"
	ScopeBearer = "bearer"
	ScopeBot    = "bot"
	ScopeStaff  = "staff"
)

// AuthResult is a resolved identity with the scopes it carries.
type AuthResult struct {
	User   any
	Scopes []string
}

// AuthBackend resolves the identity behind a request. Returning (nil, nil)
// leaves the request anonymous; an error aborts the request through the
// application's error path.
type AuthBackend interface {
	Authenticate(r *starapi.Request) (*AuthResult, error)
}

// Authentication resolves the user before the handler runs. It never rejects
// a request on its own, pair it with RequireScopes on the routes that need
// protection.
func Authentication(backend AuthBackend) starapi.Middleware {
	return func(next starapi.HandlerFunc) starapi.HandlerFunc {
		return func(r *starapi.Request) (*starapi.Response, error) {
			result, err := backend.Authenticate(r)
			if err != nil {
				return nil, err
			}
			if result != nil {
				r.SetUser(result.User)
				r.SetScopes(result.Scopes)
			}
			return next(r)
		}
	}
}

// RequireScopes rejects requests that lack any of the scopes: 401 when the
// request is anonymous, 403 when a scope is missing.
func RequireScopes(scopes ...string) starapi.Middleware {
	return func(next starapi.HandlerFunc) starapi.HandlerFunc {
		return func(r *starapi.Request) (*starapi.Response, error) {
			if r.User() == nil {
				return nil, starapi.NewError(http.StatusUnauthorized)
			}
			for _, scope := range scopes {
				if !r.HasScope(scope) {
					return nil, starapi.NewError(http.StatusForbidden, fmt.Sprintf("missing scope %q", scope))
				}
			}
			return next(r)
		}
	}
}

// TokenClaims are the claims JWTBackend expects in a bearer token.
type TokenClaims struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTBackend authenticates "Authorization: Bearer <token>" requests carrying
// an HS256 signed token. Requests with a missing, malformed or expired token
// stay anonymous rather than failing, so public routes behind the middleware
// keep working.
type JWTBackend struct {
	// Secret is the HMAC signing key.
	Secret []byte

	// Issuer and Audience, when set, must match the token's registered
	// claims.
	Issuer   string
	Audience string

	// Scopes granted to authenticated requests. Defaults to authed and
	// bearer.
	Scopes []string

	// Lookup resolves the claims to an application user. When nil the
	// claims themselves become the user. Returning (nil, nil) leaves the
	// request anonymous, which lets callers drop tokens for deleted users.
	Lookup func(r *starapi.Request, claims *TokenClaims) (any, error)
}

func (b *JWTBackend) Authenticate(r *starapi.Request) (*AuthResult, error) {
	scheme, token, ok := strings.Cut(r.Header().Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return nil, nil
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if b.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(b.Issuer))
	}
	if b.Audience != "" {
		opts = append(opts, jwt.WithAudience(b.Audience))
	}

	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return b.Secret, nil
	}, opts...)
	if err != nil {
		return nil, nil
	}

	user := any(claims)
	if b.Lookup != nil {
		user, err = b.Lookup(r, claims)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, nil
		}
	}

	scopes := b.Scopes
	if scopes == nil {
		scopes = []string{ScopeAuthed, ScopeBearer}
	}
	return &AuthResult{User: user, Scopes: scopes}, nil
}

// APIKeyBackend authenticates "Authorization: <Scheme> <key>" requests, the
// scheme defaulting to "Bot". The key is resolved through Lookup, which is
// required.
type APIKeyBackend struct {
	Scheme string
	Scopes []string
	Lookup func(r *starapi.Request, key string) (any, error)
}

func (b *APIKeyBackend) Authenticate(r *starapi.Request) (*AuthResult, error) {
	if b.Lookup == nil {
		return nil, errors.New("middleware: APIKeyBackend requires a Lookup func")
	}
	scheme := b.Scheme
	if scheme == "" {
		scheme = "Bot"
	}
	got, key, ok := strings.Cut(r.Header().Get("Authorization"), " ")
	if !ok || !strings.EqualFold(got, scheme) {
		return nil, nil
	}

	user, err := b.Lookup(r, key)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}

	scopes := b.Scopes
	if scopes == nil {
		scopes = []string{ScopeAuthed, ScopeBot}
	}
	return &AuthResult{User: user, Scopes: scopes}, nil
}
