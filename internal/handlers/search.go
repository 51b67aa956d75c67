package handlers

import (
	"net/http"
	"strings"

	"github.com/crucial707/ndt-dochub/internal/audit"
	"github.com/crucial707/ndt-dochub/internal/auth"
	"github.com/crucial707/ndt-dochub/internal/search"
)

// SearchHandler runs the external supplier search tool.
type SearchHandler struct {
	Client *search.Client
	Audit  *audit.Logger
}

type searchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Query string `json:"query"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	query := strings.TrimSpace(input.Query)
	if query == "" {
		JSONValidationError(w, "validation failed", map[string]string{"query": "required"}, http.StatusBadRequest)
		return
	}

	results := h.Client.Search(r.Context(), query)
	count := len(results)
	if count == 1 && results[0].Source == search.NoResults.Source {
		count = 0
	}
	h.Audit.Record(r.Context(), auth.PrincipalFrom(r.Context()), audit.ToolSearch, audit.Metadata{
		"query": query,
		"count": count,
	})
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Results: results})
}
