package session

import (
	"context"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "gaushala_session"

// Session holds the identity claims extracted from a verified token.
type Session struct {
	Identity string
	Role     string
	LoginAt  time.Time
	Remember bool
}

type sessionClaims struct {
	Role     string `json:"role"`
	LoginAt  int64  `json:"login_at"`
	Remember bool   `json:"remember"`
	jwt.RegisteredClaims
}

// Manager issues and verifies signed session tokens and applies the
// freshness policy for non-persistent logins.
type Manager struct {
	secret      []byte
	freshTTL    time.Duration
	tokenTTL    time.Duration
	rememberTTL time.Duration
	secure      bool
}

// NewManager constructs a Manager. freshTTL bounds how long a session
// without "remember me" stays usable after login.
func NewManager(secret string, freshTTL, tokenTTL, rememberTTL time.Duration, secure bool) *Manager {
	return &Manager{
		secret:      []byte(secret),
		freshTTL:    freshTTL,
		tokenTTL:    tokenTTL,
		rememberTTL: rememberTTL,
		secure:      secure,
	}
}

// Issue signs a new session token for identity/role and sets the cookie.
func (m *Manager) Issue(w http.ResponseWriter, identity, role string, remember bool, now time.Time) (string, error) {
	ttl := m.tokenTTL
	if remember {
		ttl = m.rememberTTL
	}
	claims := sessionClaims{
		Role:     role,
		LoginAt:  now.Unix(),
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Validate verifies a raw token. A missing or cryptographically invalid
// token is an expected state and yields nil, not an error.
func (m *Manager) Validate(raw string) *Session {
	if raw == "" {
		return nil
	}
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil
	}
	return &Session{
		Identity: claims.Subject,
		Role:     claims.Role,
		LoginAt:  time.Unix(claims.LoginAt, 0),
		Remember: claims.Remember,
	}
}

// FromRequest extracts and verifies the session cookie.
func (m *Manager) FromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}
	return m.Validate(cookie.Value)
}

// Fresh reports whether the session is still within its freshness window.
// Sessions issued with "remember me" are never aged out by this policy.
func (m *Manager) Fresh(sess *Session, now time.Time) bool {
	if sess == nil {
		return false
	}
	if sess.Remember {
		return true
	}
	return now.Sub(sess.LoginAt) <= m.freshTTL
}

type contextKey struct{}

// NewContext stores the session in ctx.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext extracts the session stored by NewContext.
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(contextKey{}).(*Session)
	return sess
}
