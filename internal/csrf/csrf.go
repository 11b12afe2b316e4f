// Package csrf implements the double-submit-cookie pattern: a random
// token is set as a readable cookie and must be echoed in a request
// header on state-changing requests. No server-side state is kept.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"mime"
	"net/http"

	"github.com/gaushala-ops/gaushala/internal/shared"
)

const (
	// CookieName is the readable cookie carrying the issued token.
	CookieName = "csrftoken"
	// HeaderName must echo the cookie value on mutations.
	HeaderName = "X-CSRF-Token"

	tokenBytes = 16
)

// Guard issues and validates double-submit tokens.
type Guard struct {
	secure bool
}

// NewGuard constructs a Guard. secure controls the cookie's Secure
// attribute and is disabled in development.
func NewGuard(secure bool) *Guard {
	return &Guard{secure: secure}
}

// Issue mints a fresh random token, overwrites the cookie and returns
// the value so the caller can echo it in the header. Issuance is
// idempotent; tokens are not single use.
func (g *Guard) Issue(w http.ResponseWriter) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)
	// Deliberately not HttpOnly: same-origin script must be able to read
	// the cookie to reproduce it in the header.
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

// Validate checks the double-submit pair on r. Safe methods always pass.
// Mutations must declare a JSON body and carry byte-equal, non-empty
// cookie and header tokens. Parse failures fail closed.
func (g *Guard) Validate(r *http.Request) error {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return nil
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return shared.ErrCSRFContentType
	}
	header := r.Header.Get(HeaderName)
	if header == "" {
		return shared.ErrCSRFTokenMissing
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return shared.ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(cookie.Value), []byte(header)) {
		return shared.ErrCSRFTokenMismatch
	}
	return nil
}
