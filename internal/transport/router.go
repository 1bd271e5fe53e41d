package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/legalpro/caseflow/internal/activity"
	"github.com/legalpro/caseflow/internal/assignment"
	"github.com/legalpro/caseflow/internal/cases"
	"github.com/legalpro/caseflow/internal/config"
	"github.com/legalpro/caseflow/internal/stats"
	"github.com/legalpro/caseflow/internal/workflow"
	"github.com/legalpro/caseflow/model"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config       *config.Config
	Authenticate func(http.Handler) http.Handler
	Cases        *cases.Service
	Workflow     *workflow.Engine
	Assignment   *assignment.Engine
	Activities   *activity.Log
	Stats        *stats.Provider

	// HealthHandler and ReadyHandler default to always-ok when nil.
	HealthHandler http.HandlerFunc
	ReadyHandler  http.HandlerFunc
	// MetricsHandler serves the metrics path when set.
	MetricsHandler http.Handler
	// Instrument wraps the authenticated group for request metrics.
	Instrument func(http.Handler) http.Handler
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery)
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	// Public routes.
	health := deps.HealthHandler
	if health == nil {
		health = alwaysOK
	}
	ready := deps.ReadyHandler
	if ready == nil {
		ready = alwaysOK
	}
	r.Get("/health", health)
	r.Get("/ready", ready)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, deps.Config.Observability.Metrics.Path, deps.MetricsHandler)
	}

	// Authenticated routes.
	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}
	instrument := deps.Instrument
	if instrument == nil {
		instrument = func(next http.Handler) http.Handler { return next }
	}

	adminOnly := RequireRole(model.RoleAdmin, model.RoleSuperAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging)
		r.Use(instrument)

		r.Post("/cases", handleCaseCreate(deps.Cases))
		r.Get("/cases", handleCaseList(deps.Cases))
		r.Get("/cases/{caseId}", handleCaseGet(deps.Cases))
		r.Patch("/cases/{caseId}", handleCaseUpdate(deps.Cases))

		r.Post("/cases/{caseId}/status", handleStatusChange(deps.Workflow))
		r.Get("/cases/{caseId}/transitions", handleTransitions(deps.Workflow))

		r.Post("/cases/{caseId}/advocates/primary", handleAssignPrimary(deps.Assignment))
		r.Post("/cases/{caseId}/advocates/secondary", handleAddSecondary(deps.Assignment))
		r.Delete("/cases/{caseId}/advocates/{advocateId}", handleRemoveAdvocate(deps.Assignment))
		r.Post("/cases/{caseId}/auto-assign", handleAutoAssign(deps.Assignment))
		r.Post("/cases/{caseId}/transfer", handleTransfer(deps.Assignment))

		r.Get("/cases/{caseId}/timeline", handleTimeline(deps.Activities))
		r.With(adminOnly).Post("/activities/{activityId}/important", handleMarkImportant(deps.Activities))
		r.With(adminOnly).Post("/activities/{activityId}/hide", handleHideActivity(deps.Activities))

		r.Get("/advocates", handleAdvocateList(deps.Stats))
		r.Get("/advocates/{advocateId}/workload", handleAdvocateWorkload(deps.Assignment))
		r.Get("/dashboard", handleDashboard(deps.Stats))
	})

	return r
}

func alwaysOK(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
