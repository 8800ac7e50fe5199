package adminhandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/domain/auth"
	"appraisal/internal/platform/jobs"
	"appraisal/internal/transport/http/api"
	"appraisal/internal/transport/http/middleware"
)

type Handler struct {
	Jobs  *jobs.Service
	Perms middleware.PermissionStore
}

func NewHandler(jobsSvc *jobs.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Jobs: jobsSvc, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermSystemAdmin, h.Perms)).Post("/reconcile/run", h.handleRunReconcile)
	})
}

// handleRunReconcile triggers a synchronous reconcile pass for the caller's
// tenant instead of waiting for the next scheduler tick.
func (h *Handler) handleRunReconcile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	summary, err := h.Jobs.RunNow(r.Context(), jobs.JobReconcile, user.TenantID, func(ctx context.Context) (any, error) {
		return h.Jobs.Appraisal.Reconcile(ctx, user.TenantID), nil
	})
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "reconcile_failed", "reconcile run failed", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}
