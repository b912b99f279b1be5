package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fletoads/internal/types"
)

func TestStaticPlanRegistry_KnownTiers(t *testing.T) {
	registry := NewStaticPlanRegistry()

	gratis := registry.GetLimits(types.PlanGratis)
	assert.Equal(t, int64(3), gratis.MaxPanfletos)
	assert.Equal(t, int64(10), gratis.MaxProdutos)
	assert.Equal(t, int64(50<<20), gratis.MaxArmazenamentoBytes)
	assert.Equal(t, int64(-1), gratis.MaxIntegracoes)

	completo := registry.GetLimits(types.PlanCompleto)
	assert.Equal(t, int64(30), completo.MaxPanfletos)
	assert.Equal(t, int64(200), completo.MaxProdutos)
	assert.Equal(t, int64(1<<30), completo.MaxArmazenamentoBytes)
	assert.Equal(t, int64(3), completo.MaxIntegracoes)

	empresarial := registry.GetLimits(types.PlanEmpresarial)
	assert.Equal(t, int64(0), empresarial.MaxPanfletos)
	assert.Equal(t, int64(0), empresarial.MaxProdutos)
	assert.Equal(t, int64(0), empresarial.MaxArmazenamentoBytes)
	assert.Equal(t, int64(0), empresarial.MaxIntegracoes)
}

func TestStaticPlanRegistry_UnknownTierFallsBackToGratis(t *testing.T) {
	registry := NewStaticPlanRegistry()

	limits := registry.GetLimits(types.PlanTier("platina"))
	assert.Equal(t, registry.GetLimits(types.PlanGratis), limits)
}

func TestPlanLimites_Max(t *testing.T) {
	limits := types.PlanLimites{
		MaxPanfletos:          10,
		MaxProdutos:           50,
		MaxArmazenamentoBytes: 250 << 20,
		MaxIntegracoes:        1,
	}

	assert.Equal(t, int64(10), limits.Max(types.ResourcePanfletos))
	assert.Equal(t, int64(50), limits.Max(types.ResourceProdutos))
	assert.Equal(t, int64(250<<20), limits.Max(types.ResourceArmazenamento))
	assert.Equal(t, int64(1), limits.Max(types.ResourceIntegracoes))
	assert.Equal(t, int64(0), limits.Max(types.ResourceType("outro")))
}
