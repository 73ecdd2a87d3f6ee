package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/estateops/estateops/internal/auth"
	"github.com/estateops/estateops/internal/files"
	"github.com/estateops/estateops/internal/inspections"
	"github.com/estateops/estateops/internal/maintenance"
	"github.com/estateops/estateops/internal/masterdata/branches"
	"github.com/estateops/estateops/internal/masterdata/companies"
	"github.com/estateops/estateops/internal/owners"
	"github.com/estateops/estateops/internal/payments"
	"github.com/estateops/estateops/internal/properties"
	"github.com/estateops/estateops/internal/rbac"
	"github.com/estateops/estateops/internal/shared"
	"github.com/estateops/estateops/internal/tenants"
	"github.com/estateops/estateops/internal/users"
	"github.com/estateops/estateops/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler        *auth.Handler
	RBACHandler        *rbac.Handler
	UsersHandler       *users.Handler
	CompaniesHandler   *companies.Handler
	BranchesHandler    *branches.Handler
	PropertiesHandler  *properties.Handler
	OwnersHandler      *owners.Handler
	TenantsHandler     *tenants.Handler
	PaymentsHandler    *payments.Handler
	MaintenanceHandler *maintenance.Handler
	InspectionsHandler *inspections.Handler
	FilesHandler       *files.Handler
	JobsHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with EstateOps defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Roles and permissions administration.
	params.RBACHandler.MountRoutes(r)

	r.Route("/users", func(r chi.Router) {
		params.UsersHandler.MountRoutes(r)
		params.RBACHandler.MountUserRoutes(r)
	})

	r.Route("/companies", params.CompaniesHandler.MountRoutes)
	r.Route("/branches", params.BranchesHandler.MountRoutes)
	r.Route("/properties", params.PropertiesHandler.MountRoutes)
	r.Route("/owners", params.OwnersHandler.MountRoutes)
	r.Route("/tenants", params.TenantsHandler.MountRoutes)
	r.Route("/payments", params.PaymentsHandler.MountRoutes)
	r.Route("/maintenance", params.MaintenanceHandler.MountRoutes)
	r.Route("/inspections", params.InspectionsHandler.MountRoutes)
	r.Route("/files", params.FilesHandler.MountRoutes)

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
