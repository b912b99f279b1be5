package billing

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"fletoads/internal/types"
)

// UsageReporter aggregates a user's resource consumption against plan ceilings.
type UsageReporter interface {
	// GetUserResourceLimits returns a snapshot of usage against limits for
	// every tracked resource. Counts are taken live from the database.
	GetUserResourceLimits(ctx context.Context, userID string) (*types.ResourceLimitReport, error)
}

// UserLookup provides the minimal user data needed for usage reporting.
// This is a focused interface to avoid depending on the full UserRepository.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*types.Usuario, error)
}

// PlanoLookup resolves a plan tier slug to its catalog row.
type PlanoLookup interface {
	GetBySlug(ctx context.Context, slug types.PlanTier) (*types.Plano, error)
}

// UsageDB provides the direct count queries the reporter needs. Implemented
// by UsageRepository in internal/db.
type UsageDB interface {
	// CountPanfletosAtivos performs the direct count:
	//   SELECT COUNT(*) FROM panfletos
	//   WHERE usuario_id = $1 AND ativo = true AND deleted_at IS NULL
	CountPanfletosAtivos(ctx context.Context, userID string) (int64, error)

	// CountProdutos counts the user's live products.
	CountProdutos(ctx context.Context, userID string) (int64, error)

	// SumArmazenamento aggregates stored file sizes in bytes:
	//   SELECT COALESCE(SUM(tamanho), 0) FROM arquivos WHERE usuario_id = $1
	SumArmazenamento(ctx context.Context, userID string) (int64, error)

	// CountIntegracoes counts the user's registered integrations.
	CountIntegracoes(ctx context.Context, userID string) (int64, error)
}

// usageReporterImpl implements UsageReporter.
type usageReporterImpl struct {
	users        UserLookup
	planos       PlanoLookup
	usageDB      UsageDB
	planRegistry PlanRegistry
}

// NewUsageReporter creates the production UsageReporter implementation.
func NewUsageReporter(
	users UserLookup,
	planos PlanoLookup,
	usageDB UsageDB,
	planRegistry PlanRegistry,
) *usageReporterImpl {
	return &usageReporterImpl{
		users:        users,
		planos:       planos,
		usageDB:      usageDB,
		planRegistry: planRegistry,
	}
}

var _ UsageReporter = (*usageReporterImpl)(nil)

// gratisResumo is the plan summary reported when a user's plan cannot be
// resolved to a catalog row.
var gratisResumo = types.PlanoResumo{
	Slug:  types.PlanGratis,
	Nome:  "Grátis",
	Preco: 0,
}

// GetUserResourceLimits returns a snapshot of the user's resource usage
// against plan ceilings.
//
// Flow:
//  1. Load the user and resolve their plan. A user without a plan, or with
//     a plan slug that no longer exists in the catalog, silently falls back
//     to the Gratis tier; a stale subscription reference must not break the
//     dashboard.
//  2. Run the four live counts concurrently. Any count failure fails the
//     whole report; a partially wrong snapshot is worse than an error.
//  3. Assemble per-resource LimitStatus entries.
func (r *usageReporterImpl) GetUserResourceLimits(ctx context.Context, userID string) (*types.ResourceLimitReport, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resumo, limits := r.resolvePlan(ctx, user.Plano)

	var counts types.UsageCounts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.usageDB.CountPanfletosAtivos(gctx, userID)
		counts.Panfletos = n
		return err
	})
	g.Go(func() error {
		n, err := r.usageDB.CountProdutos(gctx, userID)
		counts.Produtos = n
		return err
	})
	g.Go(func() error {
		n, err := r.usageDB.SumArmazenamento(gctx, userID)
		counts.ArmazenamentoBytes = n
		return err
	})
	g.Go(func() error {
		n, err := r.usageDB.CountIntegracoes(gctx, userID)
		counts.Integracoes = n
		return err
	})
	if err := g.Wait(); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to count resource usage", err)
	}

	report := &types.ResourceLimitReport{
		Plano: resumo,
		Usage: make(map[types.ResourceType]types.LimitStatus, len(types.TrackedResources)),
	}
	for _, resource := range types.TrackedResources {
		report.Usage[resource] = buildLimitStatus(counts.Count(resource), limits.Max(resource))
	}
	return report, nil
}

// resolvePlan maps the user's plan slug to its catalog row and ceilings.
// An empty or unresolvable slug falls back to Gratis without error.
func (r *usageReporterImpl) resolvePlan(ctx context.Context, tier types.PlanTier) (types.PlanoResumo, types.PlanLimites) {
	if tier == "" {
		return gratisResumo, r.planRegistry.GetLimits(types.PlanGratis)
	}

	plano, err := r.planos.GetBySlug(ctx, tier)
	if err != nil {
		return gratisResumo, r.planRegistry.GetLimits(types.PlanGratis)
	}
	resumo := types.PlanoResumo{
		Slug:  plano.Slug,
		Nome:  plano.Nome,
		Preco: plano.Preco,
	}
	return resumo, plano.Limites
}

// buildLimitStatus derives the reported status for one resource.
// A zero ceiling means unlimited: percentage stays 0 and the limit is never
// reached. A negative ceiling means the resource is not available on the
// plan, reported as a ceiling of 0 that is always reached.
func buildLimitStatus(used, max int64) types.LimitStatus {
	switch {
	case max == 0:
		return types.LimitStatus{Used: used, Max: 0, Percentage: 0, HasReached: false}
	case max < 0:
		return types.LimitStatus{Used: used, Max: 0, Percentage: 100, HasReached: true}
	default:
		return types.LimitStatus{
			Used:       used,
			Max:        max,
			Percentage: float64(used) / float64(max) * 100,
			HasReached: used >= max,
		}
	}
}

// LimitsFor resolves the enforcement ceilings for a user, falling back to
// the Gratis tier when the plan slug has no catalog row.
func (r *usageReporterImpl) LimitsFor(ctx context.Context, user *types.Usuario) types.PlanLimites {
	_, limits := r.resolvePlan(ctx, user.Plano)
	return limits
}

// EnsureAvailable rejects creation of a resource whose ceiling marks it as
// not available on the plan. Positive and unlimited ceilings pass; the
// actual count check happens atomically at insert time.
func EnsureAvailable(limits types.PlanLimites, resource types.ResourceType) error {
	if limits.Max(resource) < 0 {
		return types.NewAppError(types.ErrCodeLimitPlanExceeded,
			string(resource)+" not available on current plan", nil)
	}
	return nil
}
