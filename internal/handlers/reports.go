package handlers

import (
	"net/http"
	"strconv"

	"github.com/crucial707/ndt-dochub/internal/activity"
	"github.com/crucial707/ndt-dochub/internal/audit"
	"github.com/crucial707/ndt-dochub/internal/models"
	"github.com/crucial707/ndt-dochub/internal/repo"
)

// ReportHandler serves the admin session and audit reports.
type ReportHandler struct {
	SessionRepo *repo.SessionRepo
	AuditRepo   *repo.AuditRepo
}

// Sessions lists sessions with their duration so far. Query: limit (default 100), offset.
func (h *ReportHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 100, 1000)
	list, err := h.SessionRepo.Report(r.Context(), limit, offset)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	for i := range list {
		list[i].DurationSeconds = activity.Duration(list[i].CreatedAt, list[i].LastSeenAt)
	}
	writeJSON(w, http.StatusOK, list)
}

// AuditLog lists audit entries newest first. Query: limit (default 100), offset,
// action (one audit action type), user_id.
func (h *ReportHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r, 100, 1000)
	f := models.AuditFilter{Limit: limit, Offset: offset}

	fields := make(map[string]string)
	if a := r.URL.Query().Get("action"); a != "" {
		action, ok := audit.ParseAction(a)
		if !ok {
			fields["action"] = "unknown action type"
		}
		f.ActionType = string(action)
	}
	if u := r.URL.Query().Get("user_id"); u != "" {
		id, err := strconv.Atoi(u)
		if err != nil || id <= 0 {
			fields["user_id"] = "must be a positive integer"
		}
		f.UserID = id
	}
	if len(fields) > 0 {
		JSONValidationError(w, "validation failed", fields, http.StatusBadRequest)
		return
	}

	entries, err := h.AuditRepo.List(r.Context(), f)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
