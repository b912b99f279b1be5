// Package billing provides plan management, usage accounting, and billing domain logic.
package billing

import "fletoads/internal/types"

// PlanRegistry defines the authoritative limits for each tier.
// This is the single source of truth for what each plan allows.
type PlanRegistry interface {
	// GetLimits returns the resource limits for the given plan tier.
	// For unknown tiers, returns the most restrictive (Gratis) limits
	// to fail safely.
	GetLimits(tier types.PlanTier) types.PlanLimites
}

// staticPlanRegistry is a compile-time plan registry backed by an in-memory map.
// It implements PlanRegistry and is the standard implementation for production use.
type staticPlanRegistry struct {
	limits map[types.PlanTier]types.PlanLimites
}

// planDefaults defines the hardcoded plan ceilings per tier:
//
//	| Plano       | Panfletos | Produtos | Armazenamento | Integracoes |
//	|-------------|-----------|----------|---------------|-------------|
//	| Gratis      | 3         | 10       | 50 MB         | 0 (none)    |
//	| Basico      | 10        | 50       | 250 MB        | 1           |
//	| Completo    | 30        | 200      | 1 GB          | 3           |
//	| Premium     | 100       | 1000     | 5 GB          | 10          |
//	| Empresarial | 0 (unlim) | 0 (unlim)| 0 (unlim)     | 0 (unlim)   |
//
// Empresarial uses 0 to represent "unlimited", so the "no integrations at
// all" ceiling on Gratis is expressed as -1. Enforcement code must treat 0
// as no limit and a negative ceiling as not available.
var planDefaults = map[types.PlanTier]types.PlanLimites{
	types.PlanGratis: {
		MaxPanfletos:          3,
		MaxProdutos:           10,
		MaxArmazenamentoBytes: 50 << 20,
		MaxIntegracoes:        -1,
	},
	types.PlanBasico: {
		MaxPanfletos:          10,
		MaxProdutos:           50,
		MaxArmazenamentoBytes: 250 << 20,
		MaxIntegracoes:        1,
	},
	types.PlanCompleto: {
		MaxPanfletos:          30,
		MaxProdutos:           200,
		MaxArmazenamentoBytes: 1 << 30,
		MaxIntegracoes:        3,
	},
	types.PlanPremium: {
		MaxPanfletos:          100,
		MaxProdutos:           1000,
		MaxArmazenamentoBytes: 5 << 30,
		MaxIntegracoes:        10,
	},
	types.PlanEmpresarial: {
		MaxPanfletos:          0,
		MaxProdutos:           0,
		MaxArmazenamentoBytes: 0,
		MaxIntegracoes:        0,
	},
}

// gratisLimits is cached to avoid map lookups on the fallback path.
var gratisLimits = planDefaults[types.PlanGratis]

// NewStaticPlanRegistry returns a PlanRegistry backed by the hardcoded plan
// ceilings. This is the standard production implementation; no database or
// external service is required.
func NewStaticPlanRegistry() PlanRegistry {
	// Copy the defaults into a new map so callers cannot mutate the package-level variable.
	m := make(map[types.PlanTier]types.PlanLimites, len(planDefaults))
	for k, v := range planDefaults {
		m[k] = v
	}
	return &staticPlanRegistry{limits: m}
}

// GetLimits returns the resource limits for the given plan tier.
// If the tier is unknown, it returns the Gratis tier limits as a safe default.
func (r *staticPlanRegistry) GetLimits(tier types.PlanTier) types.PlanLimites {
	if limits, ok := r.limits[tier]; ok {
		return limits
	}
	return gratisLimits
}
