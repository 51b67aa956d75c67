package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/crucial707/ndt-dochub/internal/activity"
	"github.com/crucial707/ndt-dochub/internal/audit"
	"github.com/crucial707/ndt-dochub/internal/auth"
	"github.com/crucial707/ndt-dochub/internal/config"
	"github.com/crucial707/ndt-dochub/internal/handlers"
	"github.com/crucial707/ndt-dochub/internal/middleware"
	"github.com/crucial707/ndt-dochub/internal/repo"
	"github.com/crucial707/ndt-dochub/internal/search"
	"github.com/crucial707/ndt-dochub/internal/storage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// heartbeatPath touches the session in its handler with the client's page.
const heartbeatPath = "/activity/heartbeat"

// newRouter wires repos, handlers and the route table around the shared DB handle.
func newRouter(db *sql.DB, cfg config.Config, blobs storage.BlobStore, limiter middleware.Limiter) http.Handler {
	// ==========================
	// Repos & services
	// ==========================
	userRepo := repo.NewUserRepo(db)
	sessionRepo := repo.NewSessionRepo(db, cfg.SessionMaxIdle)
	auditRepo := repo.NewAuditRepo(db)
	hasher := auth.NewHasher(cfg.PasswordIterations)
	auditLog := audit.NewLogger(auditRepo, slog.Default())

	authH := &handlers.AuthHandler{Users: userRepo, Sessions: sessionRepo, Hasher: hasher, Audit: auditLog}
	userH := &handlers.UserHandler{Repo: userRepo, Hasher: hasher, Audit: auditLog}
	reportH := &handlers.ReportHandler{SessionRepo: sessionRepo, AuditRepo: auditRepo}
	activityH := &handlers.ActivityHandler{Tracker: activity.NewTracker(sessionRepo)}
	docH := &handlers.DocumentHandler{
		Manufacturers:  repo.NewManufacturerRepo(db),
		Documents:      repo.NewDocumentRepo(db),
		Blobs:          blobs,
		Audit:          auditLog,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	searchH := &handlers.SearchHandler{Client: search.NewClient(cfg.SearchSources, cfg.SearchTimeout), Audit: auditLog}
	authn := middleware.NewAuthenticator(sessionRepo, heartbeatPath)

	// ==========================
	// Middleware stack
	// ==========================
	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		slog.Error("ignoring trusted proxies", "error", err)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(trusted))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(authn.Authenticate)

	// ==========================
	// Public
	// ==========================
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/manufacturers", docH.ListManufacturers)

	// Upload sets its own, larger body cap.
	r.With(middleware.RequireAdmin).Post("/manufacturers/{id}/documents", docH.UploadDocument)

	r.Group(func(r chi.Router) {
		r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

		r.With(middleware.RateLimit(limiter)).Post("/auth/login", authH.Login)

		// ==========================
		// Signed-in users
		// ==========================
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Post("/auth/logout", authH.Logout)
			r.Get("/auth/me", authH.Me)
			r.Post(heartbeatPath, activityH.Heartbeat)

			r.Get("/manufacturers/{id}/documents", docH.ListDocuments)
			r.Get("/documents/{id}/sections", docH.ListSections)
			r.Get("/documents/{id}/pdf", docH.DownloadPDF)
			r.Get("/sections/{id}/figures", docH.ListFigures)
			r.Post("/tool/search", searchH.Search)
		})

		// ==========================
		// Admin
		// ==========================
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/admin/users", userH.ListUsers)
			r.Post("/admin/users", userH.CreateUser)
			r.Patch("/admin/users/{id}", userH.UpdateUser)
			r.Get("/admin/reports/sessions", reportH.Sessions)
			r.Get("/admin/reports/audit", reportH.AuditLog)

			r.Patch("/documents/{id}", docH.UpdateDocument)
			r.Delete("/documents/{id}", docH.DeleteDocument)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.JSONError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.JSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}
