package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"fletoads/internal/billing"
	"fletoads/internal/core"
	"fletoads/internal/types"
)

// PanfletoRepo is the data access contract for flyer operations.
type PanfletoRepo interface {
	CreateWithinLimit(ctx context.Context, p *types.Panfleto, maxAtivos int64) error
	GetByID(ctx context.Context, id string, userID string) (*types.Panfleto, error)
	ListByUsuario(ctx context.Context, userID string, params types.ListParams) ([]types.Panfleto, error)
	Update(ctx context.Context, p *types.Panfleto) error
	Delete(ctx context.Context, id string, userID string) error
}

// LimitResolver resolves the enforcement ceilings for a user's plan.
type LimitResolver interface {
	LimitsFor(ctx context.Context, user *types.Usuario) types.PlanLimites
}

// CreatePanfletoRequest is the request body for POST /v1/panfletos.
type CreatePanfletoRequest struct {
	Titulo     string    `json:"titulo" validate:"required,max=200"`
	Descricao  string    `json:"descricao" validate:"max=2000"`
	ImagemURL  string    `json:"imagem_url" validate:"omitempty,url"`
	Categoria  string    `json:"categoria" validate:"max=80"`
	Preco      int64     `json:"preco" validate:"gte=0"`
	ProdutoIDs []string  `json:"produto_ids" validate:"max=50"`
	DataInicio time.Time `json:"dataInicio" validate:"required"`
	DataFim    time.Time `json:"dataFim" validate:"required"`
}

// UpdatePanfletoRequest is the request body for PATCH /v1/panfletos/{id}.
type UpdatePanfletoRequest struct {
	Titulo     *string    `json:"titulo,omitempty" validate:"omitempty,max=200"`
	Descricao  *string    `json:"descricao,omitempty" validate:"omitempty,max=2000"`
	ImagemURL  *string    `json:"imagem_url,omitempty" validate:"omitempty,url"`
	Categoria  *string    `json:"categoria,omitempty" validate:"omitempty,max=80"`
	Preco      *int64     `json:"preco,omitempty" validate:"omitempty,gte=0"`
	ProdutoIDs *[]string  `json:"produto_ids,omitempty" validate:"omitempty,max=50"`
	DataInicio *time.Time `json:"dataInicio,omitempty"`
	DataFim    *time.Time `json:"dataFim,omitempty"`
	Ativo      *bool      `json:"ativo,omitempty"`
}

// PanfletoHandler manages flyer CRUD with plan limit enforcement on create.
type PanfletoHandler struct {
	repo      PanfletoRepo
	users     AuthUserSource
	limits    LimitResolver
	validator *core.Validator
	logger    *slog.Logger
}

// NewPanfletoHandler creates a new PanfletoHandler.
func NewPanfletoHandler(
	repo PanfletoRepo,
	users AuthUserSource,
	limits LimitResolver,
	v *core.Validator,
	logger *slog.Logger,
) *PanfletoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PanfletoHandler{
		repo:      repo,
		users:     users,
		limits:    limits,
		validator: v,
		logger:    logger,
	}
}

// RegisterRoutes mounts the flyer routes.
func (h *PanfletoHandler) RegisterRoutes(r chi.Router) {
	r.Route("/panfletos", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
}

// Create handles POST /v1/panfletos.
//
//  1. Decode and validate, including the advisory validity window.
//  2. Resolve the caller's plan ceilings and check the resource is
//     available on the plan at all.
//  3. Insert through the count-and-insert statement so a concurrent create
//     cannot push the account over its ceiling.
func (h *PanfletoHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req CreatePanfletoRequest
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

	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	limits := h.limits.LimitsFor(r.Context(), user)
	if err := billing.EnsureAvailable(limits, types.ResourcePanfletos); err != nil {
		core.Error(w, r, err)
		return
	}

	now := time.Now().UTC()
	p := &types.Panfleto{
		ID:         "pan_" + uuid.New().String(),
		UsuarioID:  actor.ID,
		LojaID:     actor.LojaID,
		Titulo:     req.Titulo,
		Descricao:  req.Descricao,
		ImagemURL:  req.ImagemURL,
		Categoria:  req.Categoria,
		Preco:      req.Preco,
		ProdutoIDs: req.ProdutoIDs,
		DataInicio: req.DataInicio,
		DataFim:    req.DataFim,
		Ativo:      true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.repo.CreateWithinLimit(r.Context(), p, limits.MaxPanfletos); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "panfleto created", "panfleto_id", p.ID, "user_id", actor.ID)
	core.JSON(w, r, http.StatusCreated, p)
}

// List handles GET /v1/panfletos for the session's own flyers.
func (h *PanfletoHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	params := listParamsFromQuery(r)
	panfletos, err := h.repo.ListByUsuario(r.Context(), actor.ID, params)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, map[string]any{"panfletos": panfletos})
}

// Get handles GET /v1/panfletos/{id}.
func (h *PanfletoHandler) Get(w http.ResponseWriter, r *http.Request) {
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

// Update handles PATCH /v1/panfletos/{id}.
func (h *PanfletoHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req UpdatePanfletoRequest
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

	if req.Titulo != nil {
		p.Titulo = *req.Titulo
	}
	if req.Descricao != nil {
		p.Descricao = *req.Descricao
	}
	if req.ImagemURL != nil {
		p.ImagemURL = *req.ImagemURL
	}
	if req.Categoria != nil {
		p.Categoria = *req.Categoria
	}
	if req.Preco != nil {
		p.Preco = *req.Preco
	}
	if req.ProdutoIDs != nil {
		p.ProdutoIDs = *req.ProdutoIDs
	}
	if req.DataInicio != nil {
		p.DataInicio = *req.DataInicio
	}
	if req.DataFim != nil {
		p.DataFim = *req.DataFim
	}
	if req.Ativo != nil {
		p.Ativo = *req.Ativo
	}
	if p.DataFim.Before(p.DataInicio) {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationPeriod,
			"dataFim must not be before dataInicio", nil))
		return
	}
	p.UpdatedAt = time.Now().UTC()

	if err := h.repo.Update(r.Context(), p); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, p)
}

// Delete handles DELETE /v1/panfletos/{id}. Soft delete.
func (h *PanfletoHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// listParamsFromQuery reads the limit/offset query parameters, clamped to
// sane bounds.
func listParamsFromQuery(r *http.Request) types.ListParams {
	var params types.ListParams
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Offset = n
		}
	}
	params.Normalize()
	return params
}
