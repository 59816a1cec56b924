package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"mercator-hq/pollgate/pkg/config"
)

// CORSConfig contains configuration for CORS middleware.
type CORSConfig struct {
	Enabled bool

	// AllowedOrigins lists the origins echoed back to browsers. "*" allows
	// any origin.
	AllowedOrigins []string

	AllowedMethods []string
	AllowedHeaders []string

	// ExposedHeaders lists the response headers browser scripts may read.
	ExposedHeaders []string

	// MaxAge is how long, in seconds, browsers may cache a preflight answer.
	MaxAge int

	AllowCredentials bool
}

// NewCORSConfig builds the middleware configuration from the server's CORS
// section. Both correlation headers are always allowed on requests and the
// poll header is always exposed, because browser clients read the
// correlation id from interim responses.
func NewCORSConfig(cfg config.CORSConfig, protection config.ProtectionConfig) *CORSConfig {
	return &CORSConfig{
		Enabled:          cfg.Enabled,
		AllowedOrigins:   slices.Clone(cfg.AllowedOrigins),
		AllowedMethods:   slices.Clone(cfg.AllowedMethods),
		AllowedHeaders:   mergeHeaderNames(cfg.AllowedHeaders, protection.InitialRequestHeader, protection.PollHeader),
		ExposedHeaders:   mergeHeaderNames(cfg.ExposedHeaders, protection.PollHeader),
		MaxAge:           cfg.MaxAge,
		AllowCredentials: cfg.AllowCredentials,
	}
}

// mergeHeaderNames returns a copy of base with every non-empty extra name
// that base does not already contain.
func mergeHeaderNames(base []string, extra ...string) []string {
	out := slices.Clone(base)
	for _, name := range extra {
		if name == "" {
			continue
		}
		canonical := http.CanonicalHeaderKey(name)
		if !slices.ContainsFunc(out, func(h string) bool { return http.CanonicalHeaderKey(h) == canonical }) {
			out = append(out, name)
		}
	}
	return out
}

// corsPolicy is a CORSConfig with its header values joined once.
type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]struct{}
	credentials bool
	methods     string
	headers     string
	exposed     string
	maxAge      string
}

func newCORSPolicy(cfg *CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:     make(map[string]struct{}, len(cfg.AllowedOrigins)),
		credentials: cfg.AllowCredentials,
		methods:     strings.Join(cfg.AllowedMethods, ", "),
		headers:     strings.Join(cfg.AllowedHeaders, ", "),
		exposed:     strings.Join(cfg.ExposedHeaders, ", "),
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[o] = struct{}{}
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed. A listed origin is echoed so that
// credentials work; otherwise a wildcard policy answers "*".
func (p *corsPolicy) allowOrigin(origin string) string {
	if origin != "" {
		if _, ok := p.origins[origin]; ok {
			return origin
		}
		if p.anyOrigin && p.credentials {
			return origin
		}
	}
	if p.anyOrigin {
		return "*"
	}
	return ""
}

func (p *corsPolicy) apply(h http.Header, origin string) bool {
	allowed := p.allowOrigin(origin)
	if allowed == "" {
		return false
	}
	h.Set("Access-Control-Allow-Origin", allowed)
	if allowed != "*" {
		h.Add("Vary", "Origin")
		if p.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
	}
	if p.exposed != "" {
		h.Set("Access-Control-Expose-Headers", p.exposed)
	}
	return true
}

func (p *corsPolicy) preflight(h http.Header) {
	if p.methods != "" {
		h.Set("Access-Control-Allow-Methods", p.methods)
	}
	if p.headers != "" {
		h.Set("Access-Control-Allow-Headers", p.headers)
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
}

// isPreflight reports whether r is a CORS preflight rather than an OPTIONS
// request meant for the application.
func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions &&
		r.Header.Get("Origin") != "" &&
		r.Header.Get("Access-Control-Request-Method") != ""
}

// CORSMiddleware adds Cross-Origin Resource Sharing headers. Preflight
// requests are answered with 204 and never reach next, so they are never
// protected or counted against limits.
//
//	handler = CORSMiddleware(NewCORSConfig(cfg.Server.CORS, cfg.Protection))(handler)
func CORSMiddleware(cfg *CORSConfig) func(http.Handler) http.Handler {
	if cfg == nil || !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed := policy.apply(w.Header(), r.Header.Get("Origin"))

			if isPreflight(r) {
				if allowed {
					policy.preflight(w.Header())
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
