// Package gateway composes the request-admission pipeline: session
// check, freshness check, access policy, CSRF guard and rate limiter,
// in that order. It decides forward / redirect / structured error and
// leaves admitted requests untouched.
package gateway

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gaushala-ops/gaushala/internal/csrf"
	"github.com/gaushala-ops/gaushala/internal/policy"
	"github.com/gaushala-ops/gaushala/internal/ratelimit"
	"github.com/gaushala-ops/gaushala/internal/session"
	"github.com/gaushala-ops/gaushala/internal/shared"
)

// Decision outcomes recorded per request.
const (
	OutcomeAllowed         = "allowed"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeStale           = "stale"
	OutcomeForbidden       = "forbidden"
	OutcomeCSRFInvalid     = "csrf_invalid"
	OutcomeRateLimited     = "rate_limited"
)

// DecisionRecorder receives the terminal outcome of each request.
type DecisionRecorder interface {
	RecordDecision(outcome string)
}

// Limits holds one limiter per endpoint class.
type Limits struct {
	API      *ratelimit.Limiter
	Mutation *ratelimit.Limiter
	Export   *ratelimit.Limiter
}

// Gateway is the admission orchestrator.
type Gateway struct {
	logger    *slog.Logger
	sessions  *session.Manager
	policy    *policy.Policy
	guard     *csrf.Guard
	limits    Limits
	decisions DecisionRecorder
	now       func() time.Time

	bypassExact    map[string]struct{}
	bypassPrefixes []string
}

// Config groups Gateway dependencies.
type Config struct {
	Logger    *slog.Logger
	Sessions  *session.Manager
	Policy    *policy.Policy
	Guard     *csrf.Guard
	Limits    Limits
	Decisions DecisionRecorder
}

// New constructs a Gateway with the bootstrap allow-list installed:
// session issuance, CSRF issuance and unauthenticated probes skip the
// pipeline entirely.
func New(cfg Config) *Gateway {
	return &Gateway{
		logger:    cfg.Logger,
		sessions:  cfg.Sessions,
		policy:    cfg.Policy,
		guard:     cfg.Guard,
		limits:    cfg.Limits,
		decisions: cfg.Decisions,
		now:       time.Now,
		bypassExact: map[string]struct{}{
			"/":               {},
			"/unauthorized":   {},
			"/healthz":        {},
			"/metrics":        {},
			"/api/csrf-token": {},
		},
		bypassPrefixes: []string{"/auth/", "/static/"},
	}
}

// Middleware runs the admission pipeline around next.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if g.bypassed(path) {
			next.ServeHTTP(w, r)
			return
		}

		sess := g.sessions.FromRequest(r)
		if sess == nil {
			g.deny(w, r, OutcomeUnauthenticated, shared.ErrUnauthenticated)
			return
		}
		if !g.sessions.Fresh(sess, g.now()) {
			// Stale equals unauthenticated: redirect pages to login,
			// 401 for the API.
			g.deny(w, r, OutcomeStale, shared.ErrStaleSession)
			return
		}

		if path == "/dashboard" || path == "/dashboard/" {
			g.record(OutcomeAllowed)
			http.Redirect(w, r, g.policy.RoleHome(sess.Role), http.StatusFound)
			return
		}

		if capability, required := g.policy.Capability(path); required {
			bypassCheck := isAPIRoute(path) && g.policy.IsAPISuperRole(sess.Role)
			if !bypassCheck && !g.policy.CanAccess(sess.Role, capability) {
				g.forbid(w, r, sess.Role, capability)
				return
			}
		}

		if mutating(r.Method) {
			if err := g.guard.Validate(r); err != nil {
				g.record(OutcomeCSRFInvalid)
				g.logger.Info("csrf rejected",
					slog.String("path", path),
					slog.String("reason", err.Error()))
				shared.JSONError(w, http.StatusForbidden, err.Error())
				return
			}
		}

		if limiter := g.limiterFor(r); limiter != nil {
			result := limiter.Check(r.Context(), ratelimit.RequestKey(r, sess.Identity))
			if result.Limited {
				g.record(OutcomeRateLimited)
				retryAfter := int(time.Until(result.ResetTime).Seconds() + 1)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Max()))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
				shared.JSONError(w, http.StatusTooManyRequests, shared.ErrRateLimited.Error())
				return
			}
		}

		g.record(OutcomeAllowed)
		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
	})
}

func (g *Gateway) bypassed(path string) bool {
	if _, ok := g.bypassExact[path]; ok {
		return true
	}
	for _, prefix := range g.bypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// deny handles the unauthenticated and stale outcomes.
func (g *Gateway) deny(w http.ResponseWriter, r *http.Request, outcome string, err error) {
	g.record(outcome)
	if isAPIRoute(r.URL.Path) {
		shared.JSONError(w, http.StatusUnauthorized, err.Error())
		return
	}
	redirect := "/?next=" + url.QueryEscape(r.URL.Path)
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (g *Gateway) forbid(w http.ResponseWriter, r *http.Request, role, capability string) {
	g.record(OutcomeForbidden)
	g.logger.Info("access denied",
		slog.String("path", r.URL.Path),
		slog.String("role", role),
		slog.String("capability", capability))
	if isAPIRoute(r.URL.Path) {
		shared.JSONError(w, http.StatusForbidden, shared.ErrForbidden.Error())
		return
	}
	http.Redirect(w, r, "/unauthorized", http.StatusFound)
}

// limiterFor picks the endpoint-class budget: export-class mutations get
// the tightest budget, other mutations the mutation budget, API reads
// the read budget. Page reads are not counted.
func (g *Gateway) limiterFor(r *http.Request) *ratelimit.Limiter {
	if mutating(r.Method) {
		if exportClass(r.URL.Path) && g.limits.Export != nil {
			return g.limits.Export
		}
		return g.limits.Mutation
	}
	if isAPIRoute(r.URL.Path) {
		return g.limits.API
	}
	return nil
}

func (g *Gateway) record(outcome string) {
	if g.decisions != nil {
		g.decisions.RecordDecision(outcome)
	}
}

func isAPIRoute(path string) bool {
	return strings.HasPrefix(path, "/api/") || path == "/api"
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func exportClass(path string) bool {
	for _, segment := range strings.Split(path, "/") {
		switch segment {
		case "export", "import", "backup":
			return true
		}
	}
	return false
}
