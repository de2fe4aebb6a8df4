package middleware

import (
	"errors"
	"net/http"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/cibere/starapi"
)

var allMethods = []string{
	http.MethodDelete, http.MethodGet, http.MethodHead,
	http.MethodOptions, http.MethodPatch, http.MethodPost, http.MethodPut,
}

// Headers browsers may send without being listed in AllowHeaders.
var safelistedHeaders = []string{"Accept", "Accept-Language", "Content-Language", "Content-Type"}

// CORSConfig configures the CORS middleware. Zero values mean: no origins
// allowed, GET only, a preflight max age of 600 seconds.
type CORSConfig struct {
	AllowOrigins     []string
	AllowOriginRegex string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// CORS answers preflight requests and decorates responses with the
// Access-Control headers. Requests without an Origin header pass through
// untouched. "*" in AllowOrigins allows every origin, but credentialed
// requests always get the origin echoed back instead of the wildcard.
func CORS(config ...CORSConfig) starapi.Middleware {
	cfg := CORSConfig{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{http.MethodGet}
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 600
	}

	c := &cors{cfg: cfg}
	c.allowAllOrigins = slices.Contains(cfg.AllowOrigins, "*")
	c.allowAllHeaders = slices.Contains(cfg.AllowHeaders, "*")
	if slices.Contains(cfg.AllowMethods, "*") {
		c.methods = allMethods
	} else {
		for _, m := range cfg.AllowMethods {
			c.methods = append(c.methods, strings.ToUpper(m))
		}
	}
	if cfg.AllowOriginRegex != "" {
		c.originRe = regexp.MustCompile("^(?:" + cfg.AllowOriginRegex + ")$")
	}
	if !c.allowAllHeaders {
		seen := map[string]bool{}
		for _, h := range append(slices.Clone(safelistedHeaders), cfg.AllowHeaders...) {
			key := strings.ToLower(h)
			if !seen[key] {
				seen[key] = true
				c.headers = append(c.headers, h)
			}
		}
		sort.Strings(c.headers)
	}

	return func(next starapi.HandlerFunc) starapi.HandlerFunc {
		return func(r *starapi.Request) (*starapi.Response, error) {
			origin := r.Header().Get("Origin")
			if origin == "" {
				return next(r)
			}
			if r.Method() == http.MethodOptions && r.Header().Get("Access-Control-Request-Method") != "" {
				return c.preflight(r, origin), nil
			}
			return c.simple(next, r, origin)
		}
	}
}

type cors struct {
	cfg             CORSConfig
	methods         []string
	headers         []string
	originRe        *regexp.Regexp
	allowAllOrigins bool
	allowAllHeaders bool
}

func (c *cors) originAllowed(origin string) bool {
	if c.allowAllOrigins {
		return true
	}
	if c.originRe != nil && c.originRe.MatchString(origin) {
		return true
	}
	return slices.Contains(c.cfg.AllowOrigins, origin)
}

// explicitOrigin reports whether responses must echo the origin instead of
// the wildcard.
func (c *cors) explicitOrigin() bool {
	return !c.allowAllOrigins || c.cfg.AllowCredentials
}

func (c *cors) preflight(r *starapi.Request, origin string) *starapi.Response {
	headers := http.Header{}
	var failures []string

	if c.originAllowed(origin) {
		if c.explicitOrigin() {
			headers.Set("Access-Control-Allow-Origin", origin)
			headers.Add("Vary", "Origin")
		} else {
			headers.Set("Access-Control-Allow-Origin", "*")
		}
	} else {
		failures = append(failures, "origin")
	}

	requestMethod := strings.ToUpper(r.Header().Get("Access-Control-Request-Method"))
	if !slices.Contains(c.methods, requestMethod) {
		failures = append(failures, "method")
	}
	headers.Set("Access-Control-Allow-Methods", strings.Join(c.methods, ", "))

	if requested := r.Header().Get("Access-Control-Request-Headers"); requested != "" {
		if c.allowAllHeaders {
			headers.Set("Access-Control-Allow-Headers", requested)
		} else if !c.headersAllowed(requested) {
			failures = append(failures, "headers")
		}
	}
	if !c.allowAllHeaders {
		headers.Set("Access-Control-Allow-Headers", strings.Join(c.headers, ", "))
	}
	if c.cfg.AllowCredentials {
		headers.Set("Access-Control-Allow-Credentials", "true")
	}
	headers.Set("Access-Control-Max-Age", strconv.Itoa(c.cfg.MaxAge))

	var resp *starapi.Response
	if len(failures) > 0 {
		resp = starapi.Text(http.StatusBadRequest, "Disallowed CORS "+strings.Join(failures, ", "))
	} else {
		resp = starapi.Text(http.StatusOK, "OK")
	}
	mergeHeaders(resp.Header, headers)
	return resp
}

func (c *cors) headersAllowed(requested string) bool {
	for _, h := range strings.Split(requested, ",") {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		found := false
		for _, allowed := range c.headers {
			if strings.EqualFold(h, allowed) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (c *cors) simple(next starapi.HandlerFunc, r *starapi.Request, origin string) (*starapi.Response, error) {
	headers := http.Header{}
	if c.allowAllOrigins && !c.cfg.AllowCredentials {
		headers.Set("Access-Control-Allow-Origin", "*")
	} else if c.originAllowed(origin) {
		headers.Set("Access-Control-Allow-Origin", origin)
		headers.Add("Vary", "Origin")
	}
	if c.cfg.AllowCredentials {
		headers.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(c.cfg.ExposeHeaders) > 0 {
		headers.Set("Access-Control-Expose-Headers", strings.Join(c.cfg.ExposeHeaders, ", "))
	}

	resp, err := next(r)
	if resp != nil {
		mergeHeaders(resp.Header, headers)
	}
	var he *starapi.HTTPError
	if errors.As(err, &he) {
		for k, vals := range headers {
			for _, v := range vals {
				he.WithHeader(k, v)
			}
		}
	}
	return resp, err
}

func mergeHeaders(dst, src http.Header) {
	for k, vals := range src {
		for _, v := range vals {
			dst.Add(k, v)
		}
	}
}
