package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fletoads/internal/core"
	"fletoads/internal/types"
)

// CupomRepo is the data access contract for discount coupons.
type CupomRepo interface {
	Create(ctx context.Context, c *types.Cupom) error
	GetByID(ctx context.Context, id string, userID string) (*types.Cupom, error)
	ListByUsuario(ctx context.Context, userID string) ([]types.Cupom, error)
	Update(ctx context.Context, c *types.Cupom) error
	Delete(ctx context.Context, id string, userID string) error
}

// CreateCupomRequest is the request body for POST /v1/cupons.
type CreateCupomRequest struct {
	Codigo     string          `json:"codigo" validate:"required,max=40"`
	Tipo       types.CupomTipo `json:"tipo" validate:"required,oneof=percentual valor_fixo"`
	Valor      int64           `json:"valor" validate:"required,gt=0"`
	DataInicio time.Time       `json:"dataInicio" validate:"required"`
	DataFim    time.Time       `json:"dataFim" validate:"required"`
}

// UpdateCupomRequest is the request body for PATCH /v1/cupons/{id}.
type UpdateCupomRequest struct {
	Valor      *int64     `json:"valor,omitempty" validate:"omitempty,gt=0"`
	DataInicio *time.Time `json:"dataInicio,omitempty"`
	DataFim    *time.Time `json:"dataFim,omitempty"`
	Ativo      *bool      `json:"ativo,omitempty"`
}

// CupomHandler manages coupon CRUD. Coupons have no plan ceiling.
type CupomHandler struct {
	repo      CupomRepo
	validator *core.Validator
	logger    *slog.Logger
}

// NewCupomHandler creates a new CupomHandler.
func NewCupomHandler(repo CupomRepo, v *core.Validator, logger *slog.Logger) *CupomHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CupomHandler{repo: repo, validator: v, logger: logger}
}

// RegisterRoutes mounts the coupon routes.
func (h *CupomHandler) RegisterRoutes(r chi.Router) {
	r.Route("/cupons", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/cupons. Codes are stored uppercase so lookups at
// redemption time are case insensitive.
func (h *CupomHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req CreateCupomRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if req.DataFim.Before(req.DataInicio) {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationPeriod,
			"dataFim must not be before dataInicio", nil))
		return
	}
	if req.Tipo == types.CupomPercentual && req.Valor > 100 {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidBody,
			"percentual coupons cannot exceed 100", nil))
		return
	}

	now := time.Now().UTC()
	c := &types.Cupom{
		ID:         "cupom_" + uuid.New().String(),
		UsuarioID:  actor.ID,
		LojaID:     actor.LojaID,
		Codigo:     strings.ToUpper(strings.TrimSpace(req.Codigo)),
		Tipo:       req.Tipo,
		Valor:      req.Valor,
		DataInicio: req.DataInicio,
		DataFim:    req.DataFim,
		Ativo:      true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.repo.Create(r.Context(), c); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "cupom created", "cupom_id", c.ID, "user_id", actor.ID)
	core.JSON(w, r, http.StatusCreated, c)
}

// List handles GET /v1/cupons.
func (h *CupomHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	cupons, err := h.repo.ListByUsuario(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, map[string]any{"cupons": cupons})
}

// Get handles GET /v1/cupons/{id}.
func (h *CupomHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	c, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, c)
}

// Update handles PATCH /v1/cupons/{id}. The code and type are immutable
// once issued; only the value, window and active flag may change.
func (h *CupomHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req UpdateCupomRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	c, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Valor != nil {
		c.Valor = *req.Valor
	}
	if req.DataInicio != nil {
		c.DataInicio = *req.DataInicio
	}
	if req.DataFim != nil {
		c.DataFim = *req.DataFim
	}
	if req.Ativo != nil {
		c.Ativo = *req.Ativo
	}
	if c.DataFim.Before(c.DataInicio) {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationPeriod,
			"dataFim must not be before dataInicio", nil))
		return
	}
	if c.Tipo == types.CupomPercentual && c.Valor > 100 {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidBody,
			"percentual coupons cannot exceed 100", nil))
		return
	}
	c.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), c); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, c)
}

// Delete handles DELETE /v1/cupons/{id}.
func (h *CupomHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
