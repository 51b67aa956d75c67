package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/crucial707/ndt-dochub/internal/auth"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// SessionResolver looks up and touches sessions. repo.SessionRepo implements it.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*auth.Principal, error)
	Touch(ctx context.Context, token, path string) error
}

// Authenticator attaches the session principal, if any, to each request.
type Authenticator struct {
	Sessions SessionResolver

	// selfTouching paths touch the session in their handler, so Authenticate skips it.
	selfTouching map[string]bool
}

// NewAuthenticator builds an Authenticator. Requests to any of selfTouching
// are resolved but not touched.
func NewAuthenticator(sessions SessionResolver, selfTouching ...string) *Authenticator {
	a := &Authenticator{Sessions: sessions, selfTouching: make(map[string]bool, len(selfTouching))}
	for _, p := range selfTouching {
		a.selfTouching[p] = true
	}
	return a
}

// Authenticate resolves the bearer token. Missing, malformed, or unknown tokens
// leave the request anonymous; RequireUser and RequireAdmin do the rejecting.
// A valid session is touched before the handler runs unless its path is self-touching.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := auth.BearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		p, err := a.Sessions.Resolve(r.Context(), token)
		if err != nil {
			slog.Error("session resolve failed",
				"request_id", chimw.GetReqID(r.Context()),
				"token_prefix", auth.TokenPrefix(token),
				"error", err)
			writeError(w, "internal server error", http.StatusInternalServerError)
			return
		}
		if p == nil {
			next.ServeHTTP(w, r)
			return
		}

		if !a.selfTouching[r.URL.Path] {
			if err := a.Sessions.Touch(r.Context(), token, r.URL.Path); err != nil {
				slog.Warn("session touch failed",
					"request_id", chimw.GetReqID(r.Context()),
					"user_id", p.ID,
					"error", err)
			}
		}

		setLogUser(r.Context(), p.ID)
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p, token)))
	})
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.PrincipalFrom(r.Context()) == nil {
			writeError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := auth.PrincipalFrom(r.Context())
		if p == nil {
			writeError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !p.IsAdmin() {
			writeError(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
