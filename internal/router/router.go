package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/bugsage/bugsage/internal/api"
	"github.com/bugsage/bugsage/internal/api/auth"
	"github.com/bugsage/bugsage/internal/api/bugs"
	"github.com/bugsage/bugsage/internal/api/dashboard"
	"github.com/bugsage/bugsage/internal/api/projects"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	AuthHandler      *auth.AuthHandler
	BugsHandler      *bugs.BugsHandler
	ProjectsHandler  *projects.ProjectsHandler
	DashboardHandler *dashboard.DashboardHandler

	AuthenticateMiddleware func(http.Handler) http.Handler
	RequireAdminMiddleware func(http.Handler) http.Handler

	// StaticHandler serves the client views; optional.
	StaticHandler http.Handler
}

// SetupRouter wires the API surface. Server-wide middleware (request id,
// logging, recoverer) is applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	// Wildcard CORS with a preflight no-op, matching the single-operator
	// deployment model.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		api.ErrorResponse(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	// Public: login/register/logout are multiplexed on the action field.
	r.Post("/auth", cfg.AuthHandler.Dispatch)

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(cfg.AuthenticateMiddleware)

		r.Get("/auth", cfg.AuthHandler.CurrentUser)

		r.Get("/bugs", cfg.BugsHandler.List)
		r.Post("/bugs", cfg.BugsHandler.Create)
		r.Put("/bugs", cfg.BugsHandler.Update)
		r.Post("/bugs/status", cfg.BugsHandler.UpdateStatus)

		r.Get("/projects", cfg.ProjectsHandler.List)

		r.Get("/dashboard", cfg.DashboardHandler.Get)

		// Admin-only mutations.
		r.Group(func(r chi.Router) {
			r.Use(cfg.RequireAdminMiddleware)

			r.Delete("/bugs", cfg.BugsHandler.Delete)
			r.Post("/projects", cfg.ProjectsHandler.Create)
			r.Put("/projects", cfg.ProjectsHandler.Update)
			r.Delete("/projects", cfg.ProjectsHandler.Delete)
		})
	})

	if cfg.StaticHandler != nil {
		r.Handle("/*", cfg.StaticHandler)
	}

	return r
}
