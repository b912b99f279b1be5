// Package handlers contains the HTTP handler implementations for the
// FletoAds API. Each handler declares the narrow repository and service
// interfaces it depends on, so tests can stub them without touching the
// database.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fletoads/internal/core"
	"fletoads/internal/types"
)

// UsageReporter produces the per-resource usage-versus-ceiling report.
type UsageReporter interface {
	GetUserResourceLimits(ctx context.Context, userID string) (*types.ResourceLimitReport, error)
}

// PlanoStatsSource provides the per-plan subscriber aggregate for the admin
// stats endpoint.
type PlanoStatsSource interface {
	SubscriberStats(ctx context.Context) ([]types.PlanoStats, error)
}

// UsageHandler serves the resource-limit report and the admin plan stats.
type UsageHandler struct {
	reporter  UsageReporter
	planStats PlanoStatsSource
	logger    *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(reporter UsageReporter, planStats PlanoStatsSource, logger *slog.Logger) *UsageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageHandler{
		reporter:  reporter,
		planStats: planStats,
		logger:    logger,
	}
}

// RegisterRoutes mounts the usage routes. adminOnly guards the stats route.
func (h *UsageHandler) RegisterRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Get("/usuario/resource-limits", h.GetOwnLimits)
	r.Get("/usuarios/{id}/usage", h.GetUserUsage)
	r.With(adminOnly).Get("/admin/planos/stats", h.GetPlanStats)
}

// GetOwnLimits handles GET /v1/usuario/resource-limits. The report always
// belongs to the session's own user.
func (h *UsageHandler) GetOwnLimits(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	report, err := h.reporter.GetUserResourceLimits(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, report)
}

// GetUserUsage handles GET /v1/usuarios/{id}/usage. A user may read their
// own report; reading another user's requires the admin role.
func (h *UsageHandler) GetUserUsage(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	targetID := chi.URLParam(r, "id")
	if err := core.EnsureSelfOrAdmin(actor, targetID); err != nil {
		core.Error(w, r, err)
		return
	}

	report, err := h.reporter.GetUserResourceLimits(r.Context(), targetID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, report)
}

// GetPlanStats handles GET /v1/admin/planos/stats.
func (h *UsageHandler) GetPlanStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.planStats.SubscriberStats(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, map[string]any{"planos": stats})
}
