package app

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gaushala-ops/gaushala/internal/auth"
	"github.com/gaushala-ops/gaushala/internal/gateway"
	"github.com/gaushala-ops/gaushala/internal/observability"
	"github.com/gaushala-ops/gaushala/internal/session"
	"github.com/gaushala-ops/gaushala/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger      *slog.Logger
	Config      *Config
	AuthHandler *auth.Handler
	Gateway     *gateway.Gateway
	Metrics     *observability.Metrics

	// Downstream receives admitted dashboard and API requests. The
	// business handlers live outside this repository; when nil a
	// placeholder echoing the admitted request is mounted.
	Downstream http.Handler
}

// NewRouter constructs the chi.Router with gateway defaults. Every route
// registered here sits behind the admission pipeline; the pipeline's own
// allow-list admits the bootstrap endpoints.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.Gateway.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		shared.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Login entry point; the SPA served here reads the next query
	// parameter to resume the originally requested page.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<!doctype html><title>Gaushala</title><h1>Sign in</h1>"))
	})

	r.Get("/unauthorized", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<!doctype html><title>Unauthorized</title><h1>You do not have access to this section</h1>"))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Get("/api/csrf-token", params.AuthHandler.CSRFToken)

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	downstream := params.Downstream
	if downstream == nil {
		downstream = placeholderHandler()
	}
	r.Handle("/dashboard", downstream)
	r.Handle("/dashboard/*", downstream)
	r.Handle("/api/*", downstream)

	return r
}

// placeholderHandler stands in for the business CRUD handlers, which
// consume admitted requests downstream of the gateway.
func placeholderHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		identity := ""
		if sess != nil {
			identity = sess.Identity
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			shared.JSON(w, http.StatusOK, map[string]string{
				"status":   "ok",
				"path":     r.URL.Path,
				"identity": identity,
			})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<!doctype html><title>Gaushala</title><h1>" + r.URL.Path + "</h1>"))
	})
}
