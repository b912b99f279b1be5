package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fletoads/internal/types"
)

// --- Mock implementations ---

type mockUserLookup struct {
	mock.Mock
}

func (m *mockUserLookup) GetByID(ctx context.Context, id string) (*types.Usuario, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*types.Usuario), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPlanoLookup struct {
	mock.Mock
}

func (m *mockPlanoLookup) GetBySlug(ctx context.Context, slug types.PlanTier) (*types.Plano, error) {
	args := m.Called(ctx, slug)
	if p := args.Get(0); p != nil {
		return p.(*types.Plano), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockUsageDB struct {
	mock.Mock
}

func (m *mockUsageDB) CountPanfletosAtivos(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageDB) CountProdutos(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageDB) SumArmazenamento(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockUsageDB) CountIntegracoes(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Helpers ---

func setupReporter() (*usageReporterImpl, *mockUserLookup, *mockPlanoLookup, *mockUsageDB) {
	users := new(mockUserLookup)
	planos := new(mockPlanoLookup)
	usageDB := new(mockUsageDB)
	reporter := NewUsageReporter(users, planos, usageDB, NewStaticPlanRegistry())
	return reporter, users, planos, usageDB
}

func testUser(plano types.PlanTier) *types.Usuario {
	return &types.Usuario{
		ID:    "user_0195a4f2-1111-7000-8000-000000000001",
		Email: "dono@example.com",
		Nome:  "Dono da Loja",
		Role:  types.RoleUser,
		Plano: plano,
	}
}

func completoPlano() *types.Plano {
	return &types.Plano{
		ID:    "plano_0195a4f2-2222-7000-8000-000000000001",
		Nome:  "Completo",
		Slug:  types.PlanCompleto,
		Preco: 9900,
		Ativo: true,
		Limites: types.PlanLimites{
			MaxPanfletos:          30,
			MaxProdutos:           200,
			MaxArmazenamentoBytes: 1 << 30,
			MaxIntegracoes:        3,
		},
	}
}

func stubCounts(usageDB *mockUsageDB, panfletos, produtos, bytes, integracoes int64) {
	usageDB.On("CountPanfletosAtivos", mock.Anything, mock.Anything).Return(panfletos, nil)
	usageDB.On("CountProdutos", mock.Anything, mock.Anything).Return(produtos, nil)
	usageDB.On("SumArmazenamento", mock.Anything, mock.Anything).Return(bytes, nil)
	usageDB.On("CountIntegracoes", mock.Anything, mock.Anything).Return(integracoes, nil)
}

// --- GetUserResourceLimits tests ---

func TestGetUserResourceLimits_Success(t *testing.T) {
	reporter, users, planos, usageDB := setupReporter()

	user := testUser(types.PlanCompleto)
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	planos.On("GetBySlug", mock.Anything, types.PlanCompleto).Return(completoPlano(), nil)
	stubCounts(usageDB, 9, 40, 512<<20, 2)

	report, err := reporter.GetUserResourceLimits(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, types.PlanCompleto, report.Plano.Slug)
	assert.Equal(t, "Completo", report.Plano.Nome)
	assert.Equal(t, int64(9900), report.Plano.Preco)

	panfletos := report.Usage[types.ResourcePanfletos]
	assert.Equal(t, int64(9), panfletos.Used)
	assert.Equal(t, int64(30), panfletos.Max)
	assert.InDelta(t, 30.0, panfletos.Percentage, 0.001)
	assert.False(t, panfletos.HasReached)

	produtos := report.Usage[types.ResourceProdutos]
	assert.Equal(t, int64(40), produtos.Used)
	assert.InDelta(t, 20.0, produtos.Percentage, 0.001)

	storage := report.Usage[types.ResourceArmazenamento]
	assert.Equal(t, int64(512<<20), storage.Used)
	assert.Equal(t, int64(1<<30), storage.Max)
	assert.InDelta(t, 50.0, storage.Percentage, 0.001)

	users.AssertExpectations(t)
	planos.AssertExpectations(t)
	usageDB.AssertExpectations(t)
}

func TestGetUserResourceLimits_AtCeiling(t *testing.T) {
	reporter, users, planos, usageDB := setupReporter()

	user := testUser(types.PlanCompleto)
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	planos.On("GetBySlug", mock.Anything, types.PlanCompleto).Return(completoPlano(), nil)
	stubCounts(usageDB, 30, 0, 0, 0)

	report, err := reporter.GetUserResourceLimits(context.Background(), user.ID)
	require.NoError(t, err)

	panfletos := report.Usage[types.ResourcePanfletos]
	assert.InDelta(t, 100.0, panfletos.Percentage, 0.001)
	assert.True(t, panfletos.HasReached)
}

func TestGetUserResourceLimits_OverCeilingStillReported(t *testing.T) {
	reporter, users, planos, usageDB := setupReporter()

	// Counts above the ceiling happen after a downgrade. The report must
	// show the real numbers rather than clamping them.
	user := testUser(types.PlanCompleto)
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	planos.On("GetBySlug", mock.Anything, types.PlanCompleto).Return(completoPlano(), nil)
	stubCounts(usageDB, 45, 0, 0, 0)

	report, err := reporter.GetUserResourceLimits(context.Background(), user.ID)
	require.NoError(t, err)

	panfletos := report.Usage[types.ResourcePanfletos]
	assert.Equal(t, int64(45), panfletos.Used)
	assert.InDelta(t, 150.0, panfletos.Percentage, 0.001)
	assert.True(t, panfletos.HasReached)
}

func TestGetUserResourceLimits_MissingPlanFallsBackToGratis(t *testing.T) {
	reporter, users, planos, usageDB := setupReporter()

	user := testUser("legacy-pro")
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	planos.On("GetBySlug", mock.Anything, types.PlanTier("legacy-pro")).
		Return(nil, types.NewAppError(types.ErrCodeNotFoundPlano, "plano not found", nil))
	stubCounts(usageDB, 1, 2, 0, 0)

	report, err := reporter.GetUserResourceLimits(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, types.PlanGratis, report.Plano.Slug)
	assert.Equal(t, int64(0), report.Plano.Preco)
	assert.Equal(t, int64(3), report.Usage[types.ResourcePanfletos].Max)
	assert.Equal(t, int64(10), report.Usage[types.ResourceProdutos].Max)
}

func TestGetUserResourceLimits_EmptyPlanSkipsCatalogLookup(t *testing.T) {
	reporter, users, planos, usageDB := setupReporter()

	user := testUser("")
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	stubCounts(usageDB, 0, 0, 0, 0)

	report, err := reporter.GetUserResourceLimits(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, types.PlanGratis, report.Plano.Slug)
	planos.AssertNotCalled(t, "GetBySlug", mock.Anything, mock.Anything)
}

func TestGetUserResourceLimits_GratisIntegracoesBlocked(t *testing.T) {
	reporter, users, planos, usageDB := setupReporter()

	user := testUser("")
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	stubCounts(usageDB, 0, 0, 0, 0)
	_ = planos

	report, err := reporter.GetUserResourceLimits(context.Background(), user.ID)
	require.NoError(t, err)

	integracoes := report.Usage[types.ResourceIntegracoes]
	assert.Equal(t, int64(0), integracoes.Max)
	assert.True(t, integracoes.HasReached)
	assert.InDelta(t, 100.0, integracoes.Percentage, 0.001)
}

func TestGetUserResourceLimits_UnlimitedTier(t *testing.T) {
	reporter, users, planos, usageDB := setupReporter()

	empresarial := &types.Plano{
		ID:      "plano_0195a4f2-2222-7000-8000-000000000005",
		Nome:    "Empresarial",
		Slug:    types.PlanEmpresarial,
		Preco:   49900,
		Ativo:   true,
		Limites: types.PlanLimites{},
	}
	user := testUser(types.PlanEmpresarial)
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	planos.On("GetBySlug", mock.Anything, types.PlanEmpresarial).Return(empresarial, nil)
	stubCounts(usageDB, 5000, 9000, 80<<30, 40)

	report, err := reporter.GetUserResourceLimits(context.Background(), user.ID)
	require.NoError(t, err)

	for _, resource := range types.TrackedResources {
		status := report.Usage[resource]
		assert.Equal(t, int64(0), status.Max, string(resource))
		assert.InDelta(t, 0.0, status.Percentage, 0.001, string(resource))
		assert.False(t, status.HasReached, string(resource))
	}
}

func TestGetUserResourceLimits_CountFailureFailsWholeReport(t *testing.T) {
	reporter, users, planos, usageDB := setupReporter()

	user := testUser(types.PlanCompleto)
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)
	planos.On("GetBySlug", mock.Anything, types.PlanCompleto).Return(completoPlano(), nil)

	usageDB.On("CountPanfletosAtivos", mock.Anything, mock.Anything).Return(int64(9), nil)
	usageDB.On("CountProdutos", mock.Anything, mock.Anything).
		Return(int64(0), types.NewAppError(types.ErrCodeInternalDB, "failed to count produtos", errors.New("conn reset")))
	usageDB.On("SumArmazenamento", mock.Anything, mock.Anything).Return(int64(0), nil)
	usageDB.On("CountIntegracoes", mock.Anything, mock.Anything).Return(int64(0), nil)

	report, err := reporter.GetUserResourceLimits(context.Background(), user.ID)
	require.Error(t, err)
	assert.Nil(t, report)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
	assert.Equal(t, 500, appErr.HTTPStatus())
}

func TestGetUserResourceLimits_UserNotFound(t *testing.T) {
	reporter, users, _, _ := setupReporter()

	users.On("GetByID", mock.Anything, "user_missing").
		Return(nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil))

	report, err := reporter.GetUserResourceLimits(context.Background(), "user_missing")
	require.Error(t, err)
	assert.Nil(t, report)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeNotFoundUser, appErr.Code)
}

// --- Enforcement helper tests ---

func TestEnsureAvailable(t *testing.T) {
	gratis := NewStaticPlanRegistry().GetLimits(types.PlanGratis)

	err := EnsureAvailable(gratis, types.ResourceIntegracoes)
	require.Error(t, err)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeLimitPlanExceeded, appErr.Code)
	assert.Equal(t, 403, appErr.HTTPStatus())

	assert.NoError(t, EnsureAvailable(gratis, types.ResourcePanfletos))

	empresarial := NewStaticPlanRegistry().GetLimits(types.PlanEmpresarial)
	assert.NoError(t, EnsureAvailable(empresarial, types.ResourceIntegracoes))
}

func TestLimitsFor_FallsBackToGratis(t *testing.T) {
	reporter, _, planos, _ := setupReporter()

	planos.On("GetBySlug", mock.Anything, types.PlanTier("gone")).
		Return(nil, types.NewAppError(types.ErrCodeNotFoundPlano, "plano not found", nil))

	limits := reporter.LimitsFor(context.Background(), testUser("gone"))
	assert.Equal(t, int64(3), limits.MaxPanfletos)
	assert.Equal(t, int64(-1), limits.MaxIntegracoes)
}
