package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fletoads/internal/types"
)

// =============================================================================
// Mock Implementations for Produto Handler
// =============================================================================

type mockProdutoRepo struct {
	createFn func(ctx context.Context, p *types.Produto, maxProdutos int64) error
	getFn    func(ctx context.Context, id, userID string) (*types.Produto, error)
	listFn   func(ctx context.Context, userID string, params types.ListParams) ([]types.Produto, error)
	updateFn func(ctx context.Context, p *types.Produto) error
	deleteFn func(ctx context.Context, id, userID string) error

	createdProduto *types.Produto
	createdCeiling int64
}

func (m *mockProdutoRepo) CreateWithinLimit(ctx context.Context, p *types.Produto, maxProdutos int64) error {
	m.createdProduto = p
	m.createdCeiling = maxProdutos
	if m.createFn != nil {
		return m.createFn(ctx, p, maxProdutos)
	}
	return nil
}

func (m *mockProdutoRepo) GetByID(ctx context.Context, id, userID string) (*types.Produto, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id, userID)
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundProduto, "produto not found", nil)
}

func (m *mockProdutoRepo) ListByUsuario(ctx context.Context, userID string, params types.ListParams) ([]types.Produto, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, params)
	}
	return nil, nil
}

func (m *mockProdutoRepo) Update(ctx context.Context, p *types.Produto) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}

func (m *mockProdutoRepo) Delete(ctx context.Context, id, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, userID)
	}
	return nil
}

func newTestProdutoHandler() (*ProdutoHandler, *mockProdutoRepo, *stubLimitResolver) {
	repo := &mockProdutoRepo{}
	users := &stubUserSource{user: &types.Usuario{
		ID:     "user_1",
		Email:  "maria@example.com",
		Status: types.UserStatusActive,
		Plano:  types.PlanBasico,
	}}
	limits := &stubLimitResolver{limits: types.PlanLimites{
		MaxPanfletos:          10,
		MaxProdutos:           50,
		MaxArmazenamentoBytes: 250 << 20,
		MaxIntegracoes:        1,
	}}
	h := NewProdutoHandler(repo, users, limits, newTestValidator(), discardTestLogger())
	return h, repo, limits
}

func createProdutoBody() string {
	return `{"nome":"Pão francês","descricao":"Assado na hora","preco":120,"categoria":"padaria"}`
}

// =============================================================================
// Produto Handler Tests
// =============================================================================

func TestProdutoHandler_Create_Success(t *testing.T) {
	h, repo, _ := newTestProdutoHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/produtos", bytes.NewBufferString(createProdutoBody()))
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	require.NotNil(t, repo.createdProduto)
	assert.Contains(t, repo.createdProduto.ID, "prod_")
	assert.Equal(t, "user_1", repo.createdProduto.UsuarioID)
	assert.Equal(t, "loja_user_1", repo.createdProduto.LojaID)
	assert.True(t, repo.createdProduto.Ativo)
	assert.Equal(t, int64(50), repo.createdCeiling)
}

func TestProdutoHandler_Create_NegativePrecoRejected(t *testing.T) {
	h, repo, _ := newTestProdutoHandler()

	body := `{"nome":"Pão francês","preco":-1}`
	req := httptest.NewRequest(http.MethodPost, "/v1/produtos", bytes.NewBufferString(body))
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, repo.createdProduto)
}

func TestProdutoHandler_Create_CeilingReached(t *testing.T) {
	h, repo, _ := newTestProdutoHandler()

	repo.createFn = func(_ context.Context, _ *types.Produto, _ int64) error {
		return types.NewAppError(types.ErrCodeLimitPlanExceeded, "plan limit reached", nil)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/produtos", bytes.NewBufferString(createProdutoBody()))
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeLimitPlanExceeded), resp.Error.Code)
}

func TestProdutoHandler_Create_ResourceNotOnPlan(t *testing.T) {
	h, repo, limits := newTestProdutoHandler()
	limits.limits.MaxProdutos = -1

	req := httptest.NewRequest(http.MethodPost, "/v1/produtos", bytes.NewBufferString(createProdutoBody()))
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, repo.createdProduto)
}

func TestProdutoHandler_Create_UnlimitedPlanPassesZeroCeiling(t *testing.T) {
	h, repo, limits := newTestProdutoHandler()
	limits.limits.MaxProdutos = 0

	req := httptest.NewRequest(http.MethodPost, "/v1/produtos", bytes.NewBufferString(createProdutoBody()))
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(0), repo.createdCeiling)
}

func TestProdutoHandler_List_PassesNormalizedParams(t *testing.T) {
	h, repo, _ := newTestProdutoHandler()

	repo.listFn = func(_ context.Context, userID string, params types.ListParams) ([]types.Produto, error) {
		assert.Equal(t, "user_1", userID)
		assert.Equal(t, 25, params.Limit)
		assert.Equal(t, 50, params.Offset)
		return []types.Produto{{ID: "prod_1", Nome: "Pão francês"}}, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/produtos?limit=25&offset=50", nil)
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	w := httptest.NewRecorder()

	h.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProdutoHandler_Get_NotFound(t *testing.T) {
	h, _, _ := newTestProdutoHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/produtos/prod_missing", nil)
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	req = withURLParam(req, "id", "prod_missing")
	w := httptest.NewRecorder()

	h.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProdutoHandler_Update_MergesFields(t *testing.T) {
	h, repo, _ := newTestProdutoHandler()

	repo.getFn = func(_ context.Context, id, userID string) (*types.Produto, error) {
		assert.Equal(t, "prod_1", id)
		assert.Equal(t, "user_1", userID)
		return &types.Produto{
			ID:        "prod_1",
			UsuarioID: "user_1",
			Nome:      "Pão francês",
			Descricao: "Assado na hora",
			Preco:     120,
			Categoria: "padaria",
			Ativo:     true,
		}, nil
	}

	var updated *types.Produto
	repo.updateFn = func(_ context.Context, p *types.Produto) error {
		updated = p
		return nil
	}

	body := `{"preco":150,"ativo":false}`
	req := httptest.NewRequest(http.MethodPatch, "/v1/produtos/prod_1", bytes.NewBufferString(body))
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	req = withURLParam(req, "id", "prod_1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, updated)
	assert.Equal(t, "Pão francês", updated.Nome)
	assert.Equal(t, "Assado na hora", updated.Descricao)
	assert.Equal(t, int64(150), updated.Preco)
	assert.False(t, updated.Ativo)
}

func TestProdutoHandler_Delete(t *testing.T) {
	h, repo, _ := newTestProdutoHandler()

	deleted := ""
	repo.deleteFn = func(_ context.Context, id, userID string) error {
		deleted = id
		assert.Equal(t, "user_1", userID)
		return nil
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/produtos/prod_1", nil)
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	req = withURLParam(req, "id", "prod_1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "prod_1", deleted)
}
