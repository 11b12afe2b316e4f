package gateway_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gaushala-ops/gaushala/internal/csrf"
	"github.com/gaushala-ops/gaushala/internal/gateway"
	"github.com/gaushala-ops/gaushala/internal/policy"
	"github.com/gaushala-ops/gaushala/internal/ratelimit"
	"github.com/gaushala-ops/gaushala/internal/session"
	_ "github.com/gaushala-ops/gaushala/testing"
)

func newPipeline(t *testing.T) (http.Handler, *session.Manager) {
	t.Helper()
	sessions := session.NewManager("test-secret", 12*time.Hour, 24*time.Hour, 720*time.Hour, false)
	store := ratelimit.NewLocalStore()
	gw := gateway.New(gateway.Config{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Sessions: sessions,
		Policy:   policy.Default(),
		Guard:    csrf.NewGuard(false),
		Limits: gateway.Limits{
			API:      ratelimit.NewLimiter(store, time.Minute, 100),
			Mutation: ratelimit.NewLimiter(store, time.Minute, 20),
			Export:   ratelimit.NewLimiter(store, 5*time.Minute, 5),
		},
	})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("forwarded"))
	})
	return gw.Middleware(next), sessions
}

func sessionCookie(t *testing.T, sessions *session.Manager, identity, role string, remember bool, loginAt time.Time) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	if _, err := sessions.Issue(rec, identity, role, remember, loginAt); err != nil {
		t.Fatalf("issue session: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestAnonymousPageRequestRedirectsToLogin(t *testing.T) {
	handler, _ := newPipeline(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/admin", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", res.Code)
	}
	if got := res.Header().Get("Location"); got != "/?next=%2Fdashboard%2Fadmin" {
		t.Fatalf("unexpected redirect target %q", got)
	}
}

func TestAnonymousAPIRequestReturns401(t *testing.T) {
	handler, _ := newPipeline(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cows", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), `"error"`) {
		t.Fatalf("expected structured error body, got %q", res.Body.String())
	}
}

func TestUnauthorizedRoleRedirects(t *testing.T) {
	handler, sessions := newPipeline(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/admin", nil)
	req.AddCookie(sessionCookie(t, sessions, "bahadur", policy.RoleWatchman, false, time.Now()))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", res.Code)
	}
	if got := res.Header().Get("Location"); got != "/unauthorized" {
		t.Fatalf("unexpected redirect target %q", got)
	}
}

func TestUnauthorizedRoleAPIReturns403(t *testing.T) {
	handler, sessions := newPipeline(t)

	req := httptest.NewRequest(http.MethodGet, "/api/finance", nil)
	req.AddCookie(sessionCookie(t, sessions, "bahadur", policy.RoleWatchman, false, time.Now()))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestStaleSessionTreatedAsUnauthenticated(t *testing.T) {
	handler, sessions := newPipeline(t)
	loginAt := time.Now().Add(-13 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/gate-logs", nil)
	req.AddCookie(sessionCookie(t, sessions, "bahadur", policy.RoleWatchman, false, loginAt))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", res.Code)
	}
	if got := res.Header().Get("Location"); !strings.HasPrefix(got, "/?next=") {
		t.Fatalf("expected login redirect, got %q", got)
	}

	// A remembered session of the same age stays valid.
	req = httptest.NewRequest(http.MethodGet, "/dashboard/gate-logs", nil)
	req.AddCookie(sessionCookie(t, sessions, "bahadur", policy.RoleWatchman, true, loginAt))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestStaleSessionAPIReturns401(t *testing.T) {
	handler, sessions := newPipeline(t)

	req := httptest.NewRequest(http.MethodGet, "/api/gate-logs", nil)
	req.AddCookie(sessionCookie(t, sessions, "bahadur", policy.RoleWatchman, false, time.Now().Add(-13*time.Hour)))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestBareDashboardRedirectsToRoleHome(t *testing.T) {
	handler, sessions := newPipeline(t)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(sessionCookie(t, sessions, "bahadur", policy.RoleWatchman, false, time.Now()))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", res.Code)
	}
	if got := res.Header().Get("Location"); got != "/dashboard/gate-logs" {
		t.Fatalf("unexpected redirect target %q", got)
	}
}

func mutationRequest(path, headerToken, cookieToken string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if headerToken != "" {
		req.Header.Set(csrf.HeaderName, headerToken)
	}
	if cookieToken != "" {
		req.AddCookie(&http.Cookie{Name: csrf.CookieName, Value: cookieToken})
	}
	return req
}

func TestAdminMutationForwarded(t *testing.T) {
	handler, sessions := newPipeline(t)

	req := mutationRequest("/api/admin/users", "tok", "tok")
	req.AddCookie(sessionCookie(t, sessions, "gopal", policy.RoleAdmin, false, time.Now()))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if res.Body.String() != "forwarded" {
		t.Fatalf("request was not forwarded untouched: %q", res.Body.String())
	}
}

func TestCSRFMismatchRejected(t *testing.T) {
	handler, sessions := newPipeline(t)

	req := mutationRequest("/api/gate-logs", "tok", "other")
	req.AddCookie(sessionCookie(t, sessions, "bahadur", policy.RoleWatchman, false, time.Now()))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "mismatch") {
		t.Fatalf("expected mismatch reason, got %q", res.Body.String())
	}
}

func TestMutationBudgetExhausted(t *testing.T) {
	handler, sessions := newPipeline(t)
	cookie := sessionCookie(t, sessions, "gopal", policy.RoleAdmin, false, time.Now())

	for i := 0; i < 20; i++ {
		req := mutationRequest("/api/admin/users", "tok", "tok")
		req.AddCookie(cookie)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("call %d: expected 200, got %d", i+1, res.Code)
		}
	}

	req := mutationRequest("/api/admin/users", "tok", "tok")
	req.AddCookie(cookie)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", res.Code)
	}
	if res.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestAdminBypassesAPINamespaceCheck(t *testing.T) {
	handler, sessions := newPipeline(t)

	// gatelogs is not in any explicit Admin set entry; the API super-role
	// escape hatch admits it.
	req := httptest.NewRequest(http.MethodGet, "/api/gate-logs", nil)
	req.AddCookie(sessionCookie(t, sessions, "gopal", policy.RoleAdmin, false, time.Now()))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestBootstrapPathsBypassPipeline(t *testing.T) {
	handler, _ := newPipeline(t)

	for _, path := range []string{"/", "/healthz", "/api/csrf-token", "/auth/login", "/unauthorized"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected bypass, got %d", path, res.Code)
		}
	}
}
