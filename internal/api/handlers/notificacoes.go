package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fletoads/internal/core"
	"fletoads/internal/types"
)

// NotificacaoRepo is the data access contract for in-app notifications.
type NotificacaoRepo interface {
	ListByUsuario(ctx context.Context, userID string, params types.ListParams) ([]types.Notificacao, error)
	MarkRead(ctx context.Context, id string, userID string) error
}

// NotificacaoHandler serves a user's in-app notification feed.
type NotificacaoHandler struct {
	repo   NotificacaoRepo
	logger *slog.Logger
}

// NewNotificacaoHandler creates a new NotificacaoHandler.
func NewNotificacaoHandler(repo NotificacaoRepo, logger *slog.Logger) *NotificacaoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificacaoHandler{repo: repo, logger: logger}
}

// RegisterRoutes mounts the notification routes.
func (h *NotificacaoHandler) RegisterRoutes(r chi.Router) {
	r.Route("/notificacoes", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/{id}/lida", h.MarkRead)
	})
}

// List handles GET /v1/notificacoes, newest first.
func (h *NotificacaoHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	params := listParamsFromQuery(r)
	notificacoes, err := h.repo.ListByUsuario(r.Context(), actor.ID, params)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, map[string]any{"notificacoes": notificacoes})
}

// MarkRead handles POST /v1/notificacoes/{id}/lida.
func (h *NotificacaoHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	if err := h.repo.MarkRead(r.Context(), chi.URLParam(r, "id"), actor.ID); err != nil {
		core.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
