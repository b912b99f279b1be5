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

// ArquivoRepo is the data access contract for upload metadata.
type ArquivoRepo interface {
	CreateWithinLimit(ctx context.Context, a *types.Arquivo, maxBytes int64) error
	ListByUsuario(ctx context.Context, userID string) ([]types.Arquivo, error)
	Delete(ctx context.Context, id string, userID string) error
}

// CreateArquivoRequest is the request body for POST /v1/arquivos. The bytes
// themselves live in blob storage; this registers the metadata and charges
// the size against the plan's storage ceiling.
type CreateArquivoRequest struct {
	Nome        string `json:"nome" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,max=120"`
	Tamanho     int64  `json:"tamanho" validate:"required,gt=0"`
	URL         string `json:"url" validate:"required,url"`
}

// ArquivoHandler manages upload metadata and storage accounting.
type ArquivoHandler struct {
	repo      ArquivoRepo
	users     AuthUserSource
	limits    LimitResolver
	validator *core.Validator
	logger    *slog.Logger
}

// NewArquivoHandler creates a new ArquivoHandler.
func NewArquivoHandler(
	repo ArquivoRepo,
	users AuthUserSource,
	limits LimitResolver,
	v *core.Validator,
	logger *slog.Logger,
) *ArquivoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArquivoHandler{
		repo:      repo,
		users:     users,
		limits:    limits,
		validator: v,
		logger:    logger,
	}
}

// RegisterRoutes mounts the file metadata routes.
func (h *ArquivoHandler) RegisterRoutes(r chi.Router) {
	r.Route("/arquivos", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Delete("/{id}", h.Delete)
	})
}

// Create handles POST /v1/arquivos.
func (h *ArquivoHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req CreateArquivoRequest
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
	if err := billing.EnsureAvailable(limits, types.ResourceArmazenamento); err != nil {
		core.Error(w, r, err)
		return
	}

	a := &types.Arquivo{
		ID:          "arq_" + uuid.New().String(),
		UsuarioID:   actor.ID,
		Nome:        req.Nome,
		ContentType: req.ContentType,
		Tamanho:     req.Tamanho,
		URL:         req.URL,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.repo.CreateWithinLimit(r.Context(), a, limits.MaxArmazenamentoBytes); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "arquivo registered",
		"arquivo_id", a.ID, "tamanho", a.Tamanho, "user_id", actor.ID)
	core.JSON(w, r, http.StatusCreated, a)
}

// List handles GET /v1/arquivos.
func (h *ArquivoHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	arquivos, err := h.repo.ListByUsuario(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, map[string]any{"arquivos": arquivos})
}

// Delete handles DELETE /v1/arquivos/{id}. Deleting releases the file's
// bytes from the storage accounting.
func (h *ArquivoHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
