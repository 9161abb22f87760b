package session

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/your-org/fluxpost/internal/security"
)

// DefaultPublicPaths need no token.
var DefaultPublicPaths = []string{
	"/", "/healthz", "/readyz",
	"/auth/login", "/auth/register", "/auth/forgot-password",
	"/privacy", "/terms",
}

type ctxKey struct{}

// FromContext returns the claims the guard attached to an authenticated request.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

type rule struct {
	prefix string
	action security.Action
}

type GuardOption func(*guard)

// WithRule requires action for every path under prefix. The longest
// matching prefix wins.
func WithRule(prefix string, action security.Action) GuardOption {
	return func(g *guard) { g.rules = append(g.rules, rule{prefix: prefix, action: action}) }
}

func WithPolicy(p security.Policy) GuardOption {
	return func(g *guard) { g.policy = p }
}

type guard struct {
	issuer *Issuer
	public map[string]struct{}
	policy security.Policy
	rules  []rule
}

// Guard wraps handlers with bearer-token checks. A nil issuer disables it.
// Authenticated requests for /auth/* are sent to /dashboard; everything not
// in public needs a valid token (401) and a role allowed by the matching
// rule (403).
func Guard(issuer *Issuer, public []string, opts ...GuardOption) func(http.Handler) http.Handler {
	g := &guard{
		issuer: issuer,
		public: make(map[string]struct{}, len(public)),
		policy: security.DefaultPolicy(),
	}
	for _, p := range public {
		g.public[p] = struct{}{}
	}
	for _, opt := range opts {
		opt(g)
	}

	return func(next http.Handler) http.Handler {
		if g.issuer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.authenticate(r)
			path := r.URL.Path

			if err == nil && (path == "/auth" || strings.HasPrefix(path, "/auth/")) {
				http.Redirect(w, r, "/dashboard", http.StatusFound)
				return
			}
			if _, ok := g.public[path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			if action, ok := g.actionFor(path); ok {
				role, _ := security.ParseRole(claims.Role)
				if !g.policy.IsAllowed(role, action) {
					writeError(w, http.StatusForbidden, "role "+claims.Role+" may not "+string(action))
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
		})
	}
}

func (g *guard) authenticate(r *http.Request) (*Claims, error) {
	raw := BearerToken(r.Header.Get("Authorization"))
	if raw == "" {
		return nil, errMissingToken
	}
	return g.issuer.Verify(raw)
}

func (g *guard) actionFor(path string) (security.Action, bool) {
	best := -1
	var action security.Action
	for _, rl := range g.rules {
		if strings.HasPrefix(path, rl.prefix) && len(rl.prefix) > best {
			best = len(rl.prefix)
			action = rl.action
		}
	}
	return action, best >= 0
}

type guardError string

func (e guardError) Error() string { return string(e) }

const errMissingToken = guardError("missing bearer token")

// BearerToken strips an optional "Bearer " prefix.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"statusCode": status, "message": msg})
}
