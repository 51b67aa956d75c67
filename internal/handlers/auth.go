package handlers

import (
	"log/slog"
	"net/http"

	"github.com/crucial707/ndt-dochub/internal/apperr"
	"github.com/crucial707/ndt-dochub/internal/audit"
	"github.com/crucial707/ndt-dochub/internal/auth"
	"github.com/crucial707/ndt-dochub/internal/metrics"
	"github.com/crucial707/ndt-dochub/internal/middleware"
	"github.com/crucial707/ndt-dochub/internal/models"
	"github.com/crucial707/ndt-dochub/internal/repo"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Users    *repo.UserRepo
	Sessions *repo.SessionRepo
	Hasher   *auth.Hasher
	Audit    *audit.Logger
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string          `json:"token"`
	User  *auth.Principal `json:"user"`
}

// ==========================
// Login (verify fully, then create a fresh session)
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	fields := make(map[string]string)
	if input.Username == "" {
		fields["username"] = "required"
	}
	if input.Password == "" {
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	user, err := h.Users.GetByUsername(r.Context(), input.Username)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			WriteError(w, r, err)
			return
		}
		h.Hasher.DummyVerify(input.Password)
		h.loginFailed(w, r, input.Username, "unknown_user")
		return
	}
	if !h.Hasher.Verify(input.Password, user.PasswordHash) {
		h.loginFailed(w, r, input.Username, "bad_password")
		return
	}
	if !user.IsActive {
		metrics.IncLoginAttempt("inactive")
		h.Audit.Record(r.Context(), nil, audit.LoginFailed, audit.Metadata{
			"username": input.Username,
			"reason":   "inactive",
		})
		JSONError(w, "user inactive", http.StatusForbidden)
		return
	}

	token, err := h.Sessions.Create(r.Context(), user.ID, repo.SessionMeta{
		IP:        middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	principal := &auth.Principal{ID: user.ID, Username: user.Username, Role: user.Role}
	h.Audit.Record(r.Context(), principal, audit.LoginSuccess, audit.Metadata{"username": user.Username})
	metrics.IncLoginAttempt("success")
	h.upgradeCredential(r, user, input.Password)

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: principal})
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, username, reason string) {
	metrics.IncLoginAttempt("invalid")
	h.Audit.Record(r.Context(), nil, audit.LoginFailed, audit.Metadata{
		"username": username,
		"reason":   reason,
	})
	JSONError(w, "invalid credentials", http.StatusUnauthorized)
}

// upgradeCredential rehashes legacy or under-iterated credentials after a
// successful login. Failures only log.
func (h *AuthHandler) upgradeCredential(r *http.Request, user *models.User, password string) {
	if !h.Hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	cred, err := h.Hasher.Hash(password)
	if err == nil {
		err = h.Users.Update(r.Context(), user.ID, models.UserUpdate{PasswordHash: &cred})
	}
	if err != nil {
		slog.Warn("credential upgrade failed",
			"request_id", chimw.GetReqID(r.Context()),
			"user_id", user.ID,
			"error", err)
	}
}

// ==========================
// Logout (destroys only the calling session)
// ==========================
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	token, ok := auth.TokenFrom(r.Context())
	if p == nil || !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.Sessions.Destroy(r.Context(), token); err != nil {
		WriteError(w, r, err)
		return
	}
	h.Audit.Record(r.Context(), p, audit.Logout, audit.Metadata{"username": p.Username})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==========================
// Me
// ==========================
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFrom(r.Context())
	if p == nil {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
