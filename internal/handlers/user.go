package handlers

import (
	"net/http"
	"sort"

	"github.com/crucial707/ndt-dochub/internal/audit"
	"github.com/crucial707/ndt-dochub/internal/auth"
	"github.com/crucial707/ndt-dochub/internal/models"
	"github.com/crucial707/ndt-dochub/internal/repo"
)

// ==========================
// UserHandler (admin user management)
// ==========================
type UserHandler struct {
	Repo   *repo.UserRepo
	Hasher *auth.Hasher
	Audit  *audit.Logger
}

// ==========================
// List Users
// ==========================
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 100, 500)
	users, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ==========================
// Create User (role defaults to user)
// ==========================
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
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
	role := input.Role
	if role == "" {
		role = auth.RoleUser
	}
	if !auth.ValidRole(role) {
		fields["role"] = "must be admin or user"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	cred, err := h.Hasher.Hash(input.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := h.Repo.Create(r.Context(), input.Username, cred, role)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	h.Audit.Record(r.Context(), auth.PrincipalFrom(r.Context()), audit.AdminCreateUser, audit.Metadata{
		"target_user_id": user.ID,
		"username":       user.Username,
		"role":           user.Role,
	})
	writeJSON(w, http.StatusCreated, user)
}

// ==========================
// Update User (role, is_active, password; only fields present)
// ==========================
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		JSONError(w, "invalid user id", http.StatusBadRequest)
		return
	}
	var input struct {
		Role     *string `json:"role"`
		IsActive *bool   `json:"is_active"`
		Password *string `json:"password"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	fields := make(map[string]string)
	if input.Role != nil && !auth.ValidRole(*input.Role) {
		fields["role"] = "must be admin or user"
	}
	if input.Password != nil && *input.Password == "" {
		fields["password"] = "must not be empty"
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	upd := models.UserUpdate{Role: input.Role, IsActive: input.IsActive}
	changed := []string{}
	if input.Role != nil {
		changed = append(changed, "role")
	}
	if input.IsActive != nil {
		changed = append(changed, "is_active")
	}
	if input.Password != nil {
		cred, err := h.Hasher.Hash(*input.Password)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		upd.PasswordHash = &cred
		changed = append(changed, "password")
	}
	if upd.Empty() {
		JSONError(w, "no valid fields to update", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Update(r.Context(), id, upd); err != nil {
		WriteError(w, r, err)
		return
	}

	sort.Strings(changed)
	meta := audit.Metadata{"target_user_id": id, "fields": changed}
	if input.Role != nil {
		meta["role"] = *input.Role
	}
	if input.IsActive != nil {
		meta["is_active"] = *input.IsActive
	}
	h.Audit.Record(r.Context(), auth.PrincipalFrom(r.Context()), audit.AdminUpdateUser, meta)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
