package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	"github.com/crucial707/ndt-dochub/internal/audit"
	"github.com/crucial707/ndt-dochub/internal/auth"
	"github.com/crucial707/ndt-dochub/internal/repo"
	"github.com/go-chi/chi/v5"
)

// requestWithChiURLParams builds a request with chi URL params set (for handlers that use chi.URLParam).
func requestWithChiURLParams(method, path string, body []byte, params map[string]string) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	return r
}

var (
	testAdmin = &auth.Principal{ID: 1, Username: "admin", Role: auth.RoleAdmin}
	testUser  = &auth.Principal{ID: 2, Username: "user", Role: auth.RoleUser}
)

// as attaches p and its session token to r, as Authenticate would.
func as(r *http.Request, p *auth.Principal, token string) *http.Request {
	return r.WithContext(auth.WithPrincipal(r.Context(), p, token))
}

func newTestAudit(db *sql.DB) *audit.Logger {
	return audit.NewLogger(repo.NewAuditRepo(db), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var testHasher = auth.NewHasher(auth.MinIterations)
