package handlers

import (
	"net/http"

	"github.com/crucial707/ndt-dochub/internal/activity"
	"github.com/crucial707/ndt-dochub/internal/auth"
)

// ActivityHandler accepts client heartbeats.
type ActivityHandler struct {
	Tracker *activity.Tracker
}

// Heartbeat touches the caller's session. Body is optional: {"path": "/current/page"}.
func (h *ActivityHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.TokenFrom(r.Context())
	if !ok {
		JSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var input struct {
		Path string `json:"path"`
	}
	if !decodeOptionalJSON(w, r, &input) {
		return
	}
	if err := h.Tracker.Heartbeat(r.Context(), token, input.Path); err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
