package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gaushala-ops/gaushala/internal/csrf"
	"github.com/gaushala-ops/gaushala/internal/policy"
	"github.com/gaushala-ops/gaushala/internal/session"
	"github.com/gaushala-ops/gaushala/internal/shared"
)

// Handler wires the bootstrap endpoints the gateway allow-lists:
// session issuance and CSRF token issuance.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *session.Manager
	guard     *csrf.Guard
	policy    *policy.Policy
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *session.Manager, guard *csrf.Guard, pol *policy.Policy) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		guard:     guard,
		policy:    pol,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
	Remember bool   `json:"remember"`
}

type loginResponse struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
	Home     string `json:"home"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.JSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.JSONError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		// Expected traffic shape, not an error condition.
		h.logger.Info("login rejected", slog.String("username", req.Username))
		shared.JSONError(w, http.StatusUnauthorized, shared.ErrInvalidCredentials.Error())
		return
	}

	if _, err := h.sessions.Issue(w, user.Username, user.Role, req.Remember, time.Now()); err != nil {
		h.logger.Error("issue session", slog.Any("error", err))
		shared.JSONError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	shared.JSON(w, http.StatusOK, loginResponse{
		Identity: user.Username,
		Role:     user.Role,
		Home:     h.policy.RoleHome(user.Role),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// CSRFToken mints a fresh double-submit token. Each call overwrites the
// cookie; callers echo the returned value in the X-CSRF-Token header.
func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.guard.Issue(w)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		shared.JSONError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	shared.JSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}
