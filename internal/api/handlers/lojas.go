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

// LojaRepo is the data access contract for stores.
type LojaRepo interface {
	GetByUsuario(ctx context.Context, userID string) (*types.Loja, error)
	GetByRef(ctx context.Context, ref string) (*types.Loja, error)
	Create(ctx context.Context, l *types.Loja) error
	Update(ctx context.Context, l *types.Loja) error
}

// VitrinePanfletoSource lists the flyers shown on a store's public page.
type VitrinePanfletoSource interface {
	ListAtivosByLoja(ctx context.Context, lojaID string) ([]types.Panfleto, error)
}

// CreateLojaRequest is the request body for POST /v1/loja.
type CreateLojaRequest struct {
	Nome      string          `json:"nome" validate:"required,max=120"`
	Slug      string          `json:"slug" validate:"required,slug,max=60"`
	Descricao string          `json:"descricao" validate:"max=2000"`
	Telefone  string          `json:"telefone" validate:"max=20"`
	Endereco  *types.Endereco `json:"endereco,omitempty"`
	Branding  *types.Branding `json:"branding,omitempty"`
}

// UpdateLojaRequest is the request body for PATCH /v1/loja.
type UpdateLojaRequest struct {
	Nome      *string         `json:"nome,omitempty" validate:"omitempty,max=120"`
	Descricao *string         `json:"descricao,omitempty" validate:"omitempty,max=2000"`
	Telefone  *string         `json:"telefone,omitempty" validate:"omitempty,max=20"`
	Endereco  *types.Endereco `json:"endereco,omitempty"`
	Branding  *types.Branding `json:"branding,omitempty"`
	Ativo     *bool           `json:"ativo,omitempty"`
}

// LojaHandler manages the merchant's own store and the public vitrine page.
// Each user owns at most one loja.
type LojaHandler struct {
	repo      LojaRepo
	panfletos VitrinePanfletoSource
	validator *core.Validator
	logger    *slog.Logger
}

// NewLojaHandler creates a new LojaHandler.
func NewLojaHandler(
	repo LojaRepo,
	panfletos VitrinePanfletoSource,
	v *core.Validator,
	logger *slog.Logger,
) *LojaHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LojaHandler{repo: repo, panfletos: panfletos, validator: v, logger: logger}
}

// RegisterRoutes mounts the authenticated store routes.
func (h *LojaHandler) RegisterRoutes(r chi.Router) {
	r.Route("/loja", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.GetOwn)
		r.Patch("/", h.Update)
	})
}

// RegisterPublicRoutes mounts the unauthenticated vitrine route.
func (h *LojaHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/vitrine/{ref}", h.Vitrine)
}

// Create handles POST /v1/loja.
func (h *LojaHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req CreateLojaRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	l := &types.Loja{
		ID:        "loja_" + uuid.New().String(),
		UsuarioID: actor.ID,
		Nome:      req.Nome,
		Slug:      req.Slug,
		Descricao: req.Descricao,
		Telefone:  req.Telefone,
		Endereco:  req.Endereco,
		Branding:  req.Branding,
		Ativo:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.repo.Create(r.Context(), l); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "loja created", "loja_id", l.ID, "user_id", actor.ID)
	core.JSON(w, r, http.StatusCreated, l)
}

// GetOwn handles GET /v1/loja.
func (h *LojaHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	l, err := h.repo.GetByUsuario(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, l)
}

// Update handles PATCH /v1/loja. The slug is immutable after creation since
// it is the store's public address.
func (h *LojaHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req UpdateLojaRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	l, err := h.repo.GetByUsuario(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Nome != nil {
		l.Nome = *req.Nome
	}
	if req.Descricao != nil {
		l.Descricao = *req.Descricao
	}
	if req.Telefone != nil {
		l.Telefone = *req.Telefone
	}
	if req.Endereco != nil {
		l.Endereco = req.Endereco
	}
	if req.Branding != nil {
		l.Branding = req.Branding
	}
	if req.Ativo != nil {
		l.Ativo = *req.Ativo
	}
	l.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), l); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, l)
}

// Vitrine handles GET /v1/vitrine/{ref}, the public store page. The ref may
// be either a loja ID or a slug; the repository resolves both forms.
func (h *LojaHandler) Vitrine(w http.ResponseWriter, r *http.Request) {
	l, err := h.repo.GetByRef(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if !l.Ativo {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundLoja, "loja not found", nil))
		return
	}

	panfletos, err := h.panfletos.ListAtivosByLoja(r.Context(), l.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, map[string]any{
		"loja":      l,
		"panfletos": panfletos,
	})
}
