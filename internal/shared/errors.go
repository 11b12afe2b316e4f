package shared

import "errors"

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates the request carries no valid session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrStaleSession indicates a valid token whose freshness window elapsed.
	ErrStaleSession = errors.New("session stale, re-authentication required")
	// ErrForbidden indicates the role lacks the required capability.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited indicates the request exceeded its window budget.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrCSRFTokenMissing occurs when the CSRF header or cookie is absent.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF header and cookie disagree.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrCSRFContentType occurs when a mutation does not declare a JSON body.
	ErrCSRFContentType = errors.New("unsupported content type for mutation")
	// ErrCounterUnavailable indicates the distributed counter backend failed.
	ErrCounterUnavailable = errors.New("counter backend unavailable")
)
