package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fletoads/internal/billing"
	"fletoads/internal/core"
	"fletoads/internal/db"
	"fletoads/internal/types"
)

// IntegracaoRepo is the data access contract for integration registrations.
type IntegracaoRepo interface {
	CreateWithinLimit(ctx context.Context, i *types.Integracao, maxIntegracoes int64) error
	GetByID(ctx context.Context, id string, userID string) (*types.Integracao, error)
	ListByUsuario(ctx context.Context, userID string) ([]types.Integracao, error)
	Delete(ctx context.Context, id string, userID string) error
}

// CreateIntegracaoRequest is the request body for POST /v1/integracoes.
type CreateIntegracaoRequest struct {
	Tipo   types.IntegracaoTipo   `json:"tipo" validate:"required,oneof=whatsapp webhook"`
	Nome   string                 `json:"nome" validate:"required,max=120"`
	Config types.IntegracaoConfig `json:"config" validate:"required"`
}

// IntegracaoHandler manages integration registrations. The free tier has no
// integration slots at all, so availability is checked before the insert
// even attempts to count.
type IntegracaoHandler struct {
	repo      IntegracaoRepo
	users     AuthUserSource
	limits    LimitResolver
	validator *core.Validator
	logger    *slog.Logger
}

// NewIntegracaoHandler creates a new IntegracaoHandler.
func NewIntegracaoHandler(
	repo IntegracaoRepo,
	users AuthUserSource,
	limits LimitResolver,
	v *core.Validator,
	logger *slog.Logger,
) *IntegracaoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntegracaoHandler{
		repo:      repo,
		users:     users,
		limits:    limits,
		validator: v,
		logger:    logger,
	}
}

// RegisterRoutes mounts the integration routes.
func (h *IntegracaoHandler) RegisterRoutes(r chi.Router) {
	r.Route("/integracoes", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/integracoes.
func (h *IntegracaoHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req CreateIntegracaoRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := validateIntegracaoConfig(req.Tipo, req.Config); err != nil {
		core.Error(w, r, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	limits := h.limits.LimitsFor(r.Context(), user)
	if err := billing.EnsureAvailable(limits, types.ResourceIntegracoes); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	i := &types.Integracao{
		ID:        "integ_" + uuid.New().String(),
		UsuarioID: actor.ID,
		Tipo:      req.Tipo,
		Nome:      req.Nome,
		Config:    req.Config,
		Ativo:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.repo.CreateWithinLimit(r.Context(), i, limits.MaxIntegracoes); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "integracao created",
		"integracao_id", i.ID, "tipo", i.Tipo, "user_id", actor.ID)
	core.JSON(w, r, http.StatusCreated, i)
}

// List handles GET /v1/integracoes.
func (h *IntegracaoHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	integracoes, err := h.repo.ListByUsuario(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	for idx := range integracoes {
		integracoes[idx].Config = normalizeIntegracaoConfig(integracoes[idx].Config)
	}
	core.JSON(w, r, http.StatusOK, map[string]any{"integracoes": integracoes})
}

// Get handles GET /v1/integracoes/{id}.
func (h *IntegracaoHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	i, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	i.Config = normalizeIntegracaoConfig(i.Config)
	core.JSON(w, r, http.StatusOK, i)
}

// Delete handles DELETE /v1/integracoes/{id}.
func (h *IntegracaoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id"), actor.ID); err != nil {
		core.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// normalizeIntegracaoConfig runs a stored config document through the
// document serializer so identifiers and timestamps written by in-process
// components reach the caller as plain strings.
func normalizeIntegracaoConfig(cfg types.IntegracaoConfig) types.IntegracaoConfig {
	norm, ok := db.NormalizeDocument(map[string]any(cfg)).(map[string]any)
	if !ok {
		return cfg
	}
	return types.IntegracaoConfig(norm)
}

// validateIntegracaoConfig enforces the minimal shape each integration type
// needs to function.
func validateIntegracaoConfig(tipo types.IntegracaoTipo, cfg types.IntegracaoConfig) error {
	switch tipo {
	case types.IntegracaoWebhook:
		url, _ := cfg["url"].(string)
		if url == "" {
			return types.NewAppError(types.ErrCodeValidationInvalidBody,
				"webhook integrations require config.url", nil)
		}
	case types.IntegracaoWhatsApp:
		phone, _ := cfg["telefone"].(string)
		if phone == "" {
			return types.NewAppError(types.ErrCodeValidationInvalidBody,
				"whatsapp integrations require config.telefone", nil)
		}
	}
	return nil
}
