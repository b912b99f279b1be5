package types

// UserRole defines a user's authorization level.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
)

// roleRank orders roles for RoleHasAtLeast comparisons.
var roleRank = map[UserRole]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// RoleHasAtLeast reports whether role grants at least the privileges of min.
// Unknown roles rank below every known role.
func RoleHasAtLeast(role, min UserRole) bool {
	return roleRank[role] >= roleRank[min]
}

// PlanTier identifies a subscription plan by its slug.
type PlanTier string

const (
	PlanGratis      PlanTier = "gratis"
	PlanBasico      PlanTier = "basico"
	PlanCompleto    PlanTier = "completo"
	PlanPremium     PlanTier = "premium"
	PlanEmpresarial PlanTier = "empresarial"
)

// ResourceType identifies a quota-tracked resource category.
type ResourceType string

const (
	ResourcePanfletos     ResourceType = "panfletos"
	ResourceProdutos      ResourceType = "produtos"
	ResourceArmazenamento ResourceType = "armazenamento"
	ResourceIntegracoes   ResourceType = "integracoes"
)

// TrackedResources lists every quota-tracked resource category in report order.
var TrackedResources = []ResourceType{
	ResourcePanfletos,
	ResourceProdutos,
	ResourceArmazenamento,
	ResourceIntegracoes,
}

// UserStatus represents the account lifecycle state of a user.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// IntegracaoTipo identifies the kind of external integration registered.
type IntegracaoTipo string

const (
	IntegracaoWhatsApp IntegracaoTipo = "whatsapp"
	IntegracaoWebhook  IntegracaoTipo = "webhook"
)

// CupomTipo determines how a coupon discount is applied.
type CupomTipo string

const (
	CupomPercentual CupomTipo = "percentual"
	CupomValorFixo  CupomTipo = "valor_fixo"
)

// SubscriptionStatus represents the state of a billing subscription.
type SubscriptionStatus string

const (
	SubStatusActive   SubscriptionStatus = "active"
	SubStatusPastDue  SubscriptionStatus = "past_due"
	SubStatusCanceled SubscriptionStatus = "canceled"
	SubStatusTrialing SubscriptionStatus = "trialing"
	SubStatusUnpaid   SubscriptionStatus = "unpaid"
)
