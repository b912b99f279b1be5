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
	"fletoads/internal/types"
)

// ProdutoRepo is the data access contract for catalog items.
type ProdutoRepo interface {
	CreateWithinLimit(ctx context.Context, p *types.Produto, maxProdutos int64) error
	GetByID(ctx context.Context, id string, userID string) (*types.Produto, error)
	ListByUsuario(ctx context.Context, userID string, params types.ListParams) ([]types.Produto, error)
	Update(ctx context.Context, p *types.Produto) error
	Delete(ctx context.Context, id string, userID string) error
}

// CreateProdutoRequest is the request body for POST /v1/produtos.
type CreateProdutoRequest struct {
	Nome      string `json:"nome" validate:"required,max=200"`
	Descricao string `json:"descricao" validate:"max=2000"`
	Preco     int64  `json:"preco" validate:"gte=0"`
	ImagemURL string `json:"imagem_url" validate:"omitempty,url"`
	Categoria string `json:"categoria" validate:"max=80"`
}

// UpdateProdutoRequest is the request body for PATCH /v1/produtos/{id}.
type UpdateProdutoRequest struct {
	Nome      *string `json:"nome,omitempty" validate:"omitempty,max=200"`
	Descricao *string `json:"descricao,omitempty" validate:"omitempty,max=2000"`
	Preco     *int64  `json:"preco,omitempty" validate:"omitempty,gte=0"`
	ImagemURL *string `json:"imagem_url,omitempty" validate:"omitempty,url"`
	Categoria *string `json:"categoria,omitempty" validate:"omitempty,max=80"`
	Ativo     *bool   `json:"ativo,omitempty"`
}

// ProdutoHandler manages catalog item CRUD with plan limit enforcement on
// create.
type ProdutoHandler struct {
	repo      ProdutoRepo
	users     AuthUserSource
	limits    LimitResolver
	validator *core.Validator
	logger    *slog.Logger
}

// NewProdutoHandler creates a new ProdutoHandler.
func NewProdutoHandler(
	repo ProdutoRepo,
	users AuthUserSource,
	limits LimitResolver,
	v *core.Validator,
	logger *slog.Logger,
) *ProdutoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProdutoHandler{
		repo:      repo,
		users:     users,
		limits:    limits,
		validator: v,
		logger:    logger,
	}
}

// RegisterRoutes mounts the catalog routes.
func (h *ProdutoHandler) RegisterRoutes(r chi.Router) {
	r.Route("/produtos", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/produtos.
func (h *ProdutoHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req CreateProdutoRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	limits := h.limits.LimitsFor(r.Context(), user)
	if err := billing.EnsureAvailable(limits, types.ResourceProdutos); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	p := &types.Produto{
		ID:        "prod_" + uuid.New().String(),
		UsuarioID: actor.ID,
		LojaID:    actor.LojaID,
		Nome:      req.Nome,
		Descricao: req.Descricao,
		Preco:     req.Preco,
		ImagemURL: req.ImagemURL,
		Categoria: req.Categoria,
		Ativo:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.repo.CreateWithinLimit(r.Context(), p, limits.MaxProdutos); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "produto created", "produto_id", p.ID, "user_id", actor.ID)
	core.JSON(w, r, http.StatusCreated, p)
}

// List handles GET /v1/produtos for the session's own catalog.
func (h *ProdutoHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	params := listParamsFromQuery(r)
	produtos, err := h.repo.ListByUsuario(r.Context(), actor.ID, params)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, map[string]any{"produtos": produtos})
}

// Get handles GET /v1/produtos/{id}.
func (h *ProdutoHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	p, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, p)
}

// Update handles PATCH /v1/produtos/{id}.
func (h *ProdutoHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req UpdateProdutoRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	p, err := h.repo.GetByID(r.Context(), chi.URLParam(r, "id"), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if req.Nome != nil {
		p.Nome = *req.Nome
	}
	if req.Descricao != nil {
		p.Descricao = *req.Descricao
	}
	if req.Preco != nil {
		p.Preco = *req.Preco
	}
	if req.ImagemURL != nil {
		p.ImagemURL = *req.ImagemURL
	}
	if req.Categoria != nil {
		p.Categoria = *req.Categoria
	}
	if req.Ativo != nil {
		p.Ativo = *req.Ativo
	}
	p.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), p); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, p)
}

// Delete handles DELETE /v1/produtos/{id}. Soft delete.
func (h *ProdutoHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
