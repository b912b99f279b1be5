package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fletoads/internal/core"
	"fletoads/internal/types"
)

// PlanoRepo is the catalog access contract for the plan handler.
type PlanoRepo interface {
	GetBySlug(ctx context.Context, slug types.PlanTier) (*types.Plano, error)
	List(ctx context.Context) ([]types.Plano, error)
	Create(ctx context.Context, p *types.Plano) error
	Update(ctx context.Context, p *types.Plano) error
}

// CreatePlanoRequest is the admin request body for POST /v1/admin/planos.
type CreatePlanoRequest struct {
	Nome          string            `json:"nome" validate:"required,max=80"`
	Slug          string            `json:"slug" validate:"required,slug"`
	Preco         int64             `json:"preco" validate:"gte=0"`
	Limites       types.PlanLimites `json:"limites"`
	StripePriceID string            `json:"stripe_price_id"`
	Ativo         *bool             `json:"ativo"`
}

// UpdatePlanoRequest is the admin request body for PUT /v1/admin/planos/{slug}.
// Nil fields keep their current values.
type UpdatePlanoRequest struct {
	Nome          *string            `json:"nome,omitempty" validate:"omitempty,max=80"`
	Preco         *int64             `json:"preco,omitempty" validate:"omitempty,gte=0"`
	Limites       *types.PlanLimites `json:"limites,omitempty"`
	StripePriceID *string            `json:"stripe_price_id,omitempty"`
	Ativo         *bool              `json:"ativo,omitempty"`
}

// PlanoHandler serves the public plan catalog and the admin plan management.
type PlanoHandler struct {
	repo      PlanoRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewPlanoHandler creates a new PlanoHandler.
func NewPlanoHandler(repo PlanoRepo, v *core.Validator, logger *slog.Logger) *PlanoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlanoHandler{
		repo:      repo,
		validator: v,
		logger:    logger,
	}
}

// RegisterRoutes mounts the plan routes. The catalog reads are public; the
// write routes sit behind adminOnly.
func (h *PlanoHandler) RegisterRoutes(r chi.Router, adminOnly func(http.Handler) http.Handler) {
	r.Route("/planos", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{slug}", h.GetBySlug)
	})
	r.Route("/admin/planos", func(r chi.Router) {
		r.Use(adminOnly)
		r.Post("/", h.Create)
		r.Put("/{slug}", h.Update)
	})
}

// List handles GET /v1/planos. Active plans only, cheapest first.
func (h *PlanoHandler) List(w http.ResponseWriter, r *http.Request) {
	planos, err := h.repo.List(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, map[string]any{"planos": planos})
}

// GetBySlug handles GET /v1/planos/{slug}. An unknown slug is a plain 404.
func (h *PlanoHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := types.PlanTier(chi.URLParam(r, "slug"))

	plano, err := h.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, plano)
}

// Create handles POST /v1/admin/planos.
func (h *PlanoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanoRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	ativo := true
	if req.Ativo != nil {
		ativo = *req.Ativo
	}

	plano := &types.Plano{
		ID:            "plano_" + uuid.New().String(),
		Nome:          req.Nome,
		Slug:          types.PlanTier(req.Slug),
		Preco:         req.Preco,
		Ativo:         ativo,
		Limites:       req.Limites,
		StripePriceID: req.StripePriceID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.repo.Create(r.Context(), plano); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "plano created", "plano_id", plano.ID, "slug", plano.Slug)
	core.JSON(w, r, http.StatusCreated, plano)
}

// Update handles PUT /v1/admin/planos/{slug}. Partial update: absent fields
// keep their stored values.
func (h *PlanoHandler) Update(w http.ResponseWriter, r *http.Request) {
	slug := types.PlanTier(chi.URLParam(r, "slug"))

	var req UpdatePlanoRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	plano, err := h.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Nome != nil {
		plano.Nome = *req.Nome
	}
	if req.Preco != nil {
		plano.Preco = *req.Preco
	}
	if req.Limites != nil {
		plano.Limites = *req.Limites
	}
	if req.StripePriceID != nil {
		plano.StripePriceID = *req.StripePriceID
	}
	if req.Ativo != nil {
		plano.Ativo = *req.Ativo
	}
	plano.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), plano); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "plano updated", "plano_id", plano.ID, "slug", plano.Slug)
	core.JSON(w, r, http.StatusOK, plano)
}
