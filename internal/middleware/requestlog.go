package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// responseWriter wraps http.ResponseWriter to capture status and size.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// Flush lets PDF streaming reach the client through the wrapper.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type logUserKey struct{}

// logUser is filled in by Authenticate, which runs inside RequestLog.
type logUser struct {
	id int
}

func setLogUser(ctx context.Context, id int) {
	if u, ok := ctx.Value(logUserKey{}).(*logUser); ok {
		u.id = id
	}
}

// RequestLog logs each request with request_id, method, path, status, duration, size
// and user_id (0 for anonymous). Use after RequestID middleware so the ID is available.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		user := &logUser{}
		next.ServeHTTP(wrap, r.WithContext(context.WithValue(r.Context(), logUserKey{}, user)))
		dur := time.Since(start)
		reqID := chimw.GetReqID(r.Context())
		slog.Info("request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrap.status,
			"duration_ms", dur.Milliseconds(),
			"size", wrap.size,
			"user_id", user.id)
	})
}
