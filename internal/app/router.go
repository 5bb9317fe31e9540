package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/healthfin/healthfin/internal/auth"
	dashboardhttp "github.com/healthfin/healthfin/internal/dashboard/http"
	"github.com/healthfin/healthfin/internal/observability"
	"github.com/healthfin/healthfin/internal/rbac"
	"github.com/healthfin/healthfin/internal/shared"
	statementhttp "github.com/healthfin/healthfin/internal/statement/http"
	"github.com/healthfin/healthfin/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Authenticator    *auth.Authenticator
	RBACMiddleware   rbac.Middleware
	DashboardHandler *dashboardhttp.Handler
	StatementHandler *statementhttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with healthfin defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(api chi.Router) {
		if params.Authenticator != nil {
			api.Use(params.Authenticator.Middleware)
		}
		if params.DashboardHandler != nil {
			api.Group(func(gr chi.Router) {
				gr.Use(params.RBACMiddleware.RequireAny(shared.PermDashboardView))
				params.DashboardHandler.MountRoutes(gr)
			})
		}
		if params.StatementHandler != nil {
			api.Group(func(gr chi.Router) {
				gr.Use(params.RBACMiddleware.RequireAny(shared.PermStatementsView))
				params.StatementHandler.MountRoutes(gr)
			})
		}
		if params.JobHandler != nil {
			api.Route("/jobs", func(gr chi.Router) {
				gr.Use(params.RBACMiddleware.RequireAny(shared.PermJobsRun))
				params.JobHandler.MountRoutes(gr)
			})
		}
	})

	return r
}
