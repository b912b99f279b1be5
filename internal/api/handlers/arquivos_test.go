package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fletoads/internal/types"
)

type mockArquivoRepo struct {
	createFn func(ctx context.Context, a *types.Arquivo, maxBytes int64) error
	listFn   func(ctx context.Context, userID string) ([]types.Arquivo, error)
	deleteFn func(ctx context.Context, id, userID string) error

	created        *types.Arquivo
	createdCeiling int64
}

func (m *mockArquivoRepo) CreateWithinLimit(ctx context.Context, a *types.Arquivo, maxBytes int64) error {
	m.created = a
	m.createdCeiling = maxBytes
	if m.createFn != nil {
		return m.createFn(ctx, a, maxBytes)
	}
	return nil
}

func (m *mockArquivoRepo) ListByUsuario(ctx context.Context, userID string) ([]types.Arquivo, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockArquivoRepo) Delete(ctx context.Context, id, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, userID)
	}
	return nil
}

func newTestArquivoHandler(limits types.PlanLimites) (*ArquivoHandler, *mockArquivoRepo) {
	repo := &mockArquivoRepo{}
	users := &stubUserSource{user: &types.Usuario{
		ID:     "user_1",
		Status: types.UserStatusActive,
		Plano:  types.PlanBasico,
	}}
	h := NewArquivoHandler(repo, users, &stubLimitResolver{limits: limits}, newTestValidator(), discardTestLogger())
	return h, repo
}

func TestArquivoHandler_Create_ChargesStorageCeiling(t *testing.T) {
	h, repo := newTestArquivoHandler(types.PlanLimites{MaxArmazenamentoBytes: 250 << 20})

	body := `{"nome":"banner.png","content_type":"image/png","tamanho":204800,"url":"https://cdn.fletoads.com/u/user_1/banner.png"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/arquivos", bytes.NewBufferString(body))
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	require.NotNil(t, repo.created)
	assert.Contains(t, repo.created.ID, "arq_")
	assert.Equal(t, int64(204800), repo.created.Tamanho)
	assert.Equal(t, int64(250<<20), repo.createdCeiling)
}

func TestArquivoHandler_Create_StorageFull(t *testing.T) {
	h, repo := newTestArquivoHandler(types.PlanLimites{MaxArmazenamentoBytes: 250 << 20})

	repo.createFn = func(_ context.Context, _ *types.Arquivo, _ int64) error {
		return types.NewAppError(types.ErrCodeLimitPlanExceeded, "storage limit reached", nil)
	}

	body := `{"nome":"video.mp4","content_type":"video/mp4","tamanho":524288000,"url":"https://cdn.fletoads.com/u/user_1/video.mp4"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/arquivos", bytes.NewBufferString(body))
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestArquivoHandler_Create_ZeroSizeRejected(t *testing.T) {
	h, repo := newTestArquivoHandler(types.PlanLimites{MaxArmazenamentoBytes: 250 << 20})

	body := `{"nome":"vazio.bin","content_type":"application/octet-stream","tamanho":0,"url":"https://cdn.fletoads.com/u/user_1/vazio.bin"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/arquivos", bytes.NewBufferString(body))
	req = req.WithContext(actorContext("user_1", types.RoleUser))
	w := httptest.NewRecorder()

	h.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, repo.created)
}
