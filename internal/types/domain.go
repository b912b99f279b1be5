package types

import "time"

// Plano is a subscription tier with named resource ceilings.
// Plans are reference data: seeded once, edited by administrators only.
type Plano struct {
	ID            string      `json:"id" db:"id"`
	Nome          string      `json:"nome" db:"nome"`
	Slug          PlanTier    `json:"slug" db:"slug"`
	Preco         int64       `json:"preco" db:"preco"` // centavos/month
	Ativo         bool        `json:"ativo" db:"ativo"`
	Limites       PlanLimites `json:"limites" db:"limites"`
	StripePriceID string      `json:"-" db:"stripe_price_id"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
}

// Usuario represents a merchant account.
type Usuario struct {
	ID           string     `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Nome         string     `json:"nome" db:"nome"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         UserRole   `json:"role" db:"role"`
	Status       UserStatus `json:"status" db:"status"`

	// Plano holds the slug of the user's subscription plan. Empty or unknown
	// values resolve to the free tier during limit accounting.
	Plano PlanTier `json:"plano" db:"plano"`

	StripeCustomerID string `json:"-" db:"stripe_customer_id"`
	EmailVerificado  bool   `json:"email_verificado" db:"email_verificado"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	DeletedAt   *time.Time `json:"-" db:"deleted_at"`
}

// Loja is a merchant's store, owner of the public vitrine page.
type Loja struct {
	ID        string     `json:"id" db:"id"`
	UsuarioID string     `json:"usuario_id" db:"usuario_id"`
	Nome      string     `json:"nome" db:"nome"`
	Slug      string     `json:"slug" db:"slug"`
	Descricao string     `json:"descricao,omitempty" db:"descricao"`
	Telefone  string     `json:"telefone,omitempty" db:"telefone"`
	Endereco  *Endereco  `json:"endereco,omitempty" db:"endereco"`
	Branding  *Branding  `json:"branding,omitempty" db:"branding"`
	Ativo     bool       `json:"ativo" db:"ativo"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// Panfleto is a digital flyer with an advisory validity window.
type Panfleto struct {
	ID         string     `json:"id" db:"id"`
	UsuarioID  string     `json:"usuario_id" db:"usuario_id"`
	LojaID     string     `json:"loja_id" db:"loja_id"`
	Titulo     string     `json:"titulo" db:"titulo"`
	Descricao  string     `json:"descricao,omitempty" db:"descricao"`
	ImagemURL  string     `json:"imagem_url,omitempty" db:"imagem_url"`
	Categoria  string     `json:"categoria,omitempty" db:"categoria"`
	Preco      int64      `json:"preco" db:"preco"`
	ProdutoIDs []string   `json:"produto_ids,omitempty" db:"produto_ids"`
	DataInicio time.Time  `json:"dataInicio" db:"data_inicio"`
	DataFim    time.Time  `json:"dataFim" db:"data_fim"`
	Ativo      bool       `json:"ativo" db:"ativo"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt  *time.Time `json:"-" db:"deleted_at"`
}

// Produto is a catalog item offered by a loja.
type Produto struct {
	ID        string     `json:"id" db:"id"`
	UsuarioID string     `json:"usuario_id" db:"usuario_id"`
	LojaID    string     `json:"loja_id" db:"loja_id"`
	Nome      string     `json:"nome" db:"nome"`
	Descricao string     `json:"descricao,omitempty" db:"descricao"`
	Preco     int64      `json:"preco" db:"preco"`
	ImagemURL string     `json:"imagem_url,omitempty" db:"imagem_url"`
	Categoria string     `json:"categoria,omitempty" db:"categoria"`
	Ativo     bool       `json:"ativo" db:"ativo"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// Cupom is a discount coupon scoped to a loja.
type Cupom struct {
	ID         string    `json:"id" db:"id"`
	UsuarioID  string    `json:"usuario_id" db:"usuario_id"`
	LojaID     string    `json:"loja_id" db:"loja_id"`
	Codigo     string    `json:"codigo" db:"codigo"`
	Tipo       CupomTipo `json:"tipo" db:"tipo"`
	Valor      int64     `json:"valor" db:"valor"`
	DataInicio time.Time `json:"dataInicio" db:"data_inicio"`
	DataFim    time.Time `json:"dataFim" db:"data_fim"`
	Ativo      bool      `json:"ativo" db:"ativo"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Integracao is a registered external integration. Only the registration is
// modeled here; the outbound transport lives outside this service.
type Integracao struct {
	ID        string           `json:"id" db:"id"`
	UsuarioID string           `json:"usuario_id" db:"usuario_id"`
	Tipo      IntegracaoTipo   `json:"tipo" db:"tipo"`
	Nome      string           `json:"nome" db:"nome"`
	Config    IntegracaoConfig `json:"config" db:"config"`
	Ativo     bool             `json:"ativo" db:"ativo"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// Arquivo is upload metadata. Byte transport happens against blob storage
// elsewhere; only name, type and size are tracked, feeding storage accounting.
type Arquivo struct {
	ID          string    `json:"id" db:"id"`
	UsuarioID   string    `json:"usuario_id" db:"usuario_id"`
	Nome        string    `json:"nome" db:"nome"`
	ContentType string    `json:"content_type" db:"content_type"`
	Tamanho     int64     `json:"tamanho" db:"tamanho"`
	URL         string    `json:"url" db:"url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Notificacao is an in-app notification for a user.
type Notificacao struct {
	ID        string    `json:"id" db:"id"`
	UsuarioID string    `json:"usuario_id" db:"usuario_id"`
	Titulo    string    `json:"titulo" db:"titulo"`
	Mensagem  string    `json:"mensagem" db:"mensagem"`
	Lida      bool      `json:"lida" db:"lida"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Sessao represents an authenticated user session.
type Sessao struct {
	ID             string    `json:"id" db:"id"`
	UsuarioID      string    `json:"usuario_id" db:"usuario_id"`
	LojaID         string    `json:"loja_id" db:"loja_id"`
	CSRFToken      string    `json:"-" db:"csrf_token"`
	UserAgent      string    `json:"user_agent" db:"user_agent"`
	IPAddress      string    `json:"ip_address" db:"ip_address"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// SecurityEvent represents a unified security event for abuse tracking.
type SecurityEvent struct {
	ID            int64     `db:"id"`
	EventType     string    `db:"event_type"`
	Identifier    string    `db:"identifier"`
	IPAddress     string    `db:"ip_address"`
	AttemptedAt   time.Time `db:"attempted_at"`
	Success       bool      `db:"success"`
	FailureReason string    `db:"failure_reason"`
}

// LimitStatus is the per-resource used-versus-ceiling record.
// Percentage is 0 and HasReached false when the ceiling is unlimited.
type LimitStatus struct {
	Used       int64   `json:"used"`
	Max        int64   `json:"max"`
	Percentage float64 `json:"percentage"`
	HasReached bool    `json:"hasReached"`
}

// PlanoResumo is the plan summary embedded in a resource-limit report.
type PlanoResumo struct {
	Slug  PlanTier `json:"slug"`
	Nome  string   `json:"nome"`
	Preco int64    `json:"preco"`
}

// ResourceLimitReport compares a user's usage against their plan ceilings
// for every tracked resource category.
type ResourceLimitReport struct {
	Plano PlanoResumo                  `json:"plano"`
	Usage map[ResourceType]LimitStatus `json:"usage"`
}

// UsageCounts holds the raw per-resource counts for one user.
type UsageCounts struct {
	Panfletos          int64
	Produtos           int64
	ArmazenamentoBytes int64
	Integracoes        int64
}

// Count returns the raw count for the given resource category.
func (u UsageCounts) Count(r ResourceType) int64 {
	switch r {
	case ResourcePanfletos:
		return u.Panfletos
	case ResourceProdutos:
		return u.Produtos
	case ResourceArmazenamento:
		return u.ArmazenamentoBytes
	case ResourceIntegracoes:
		return u.Integracoes
	default:
		return 0
	}
}

// PlanoStats is a per-plan subscriber aggregate for the admin stats view.
type PlanoStats struct {
	PlanoID    string   `json:"plano_id"`
	Slug       PlanTier `json:"slug"`
	Nome       string   `json:"nome"`
	Assinantes int64    `json:"assinantes"`
}

// SubscriptionDetails abstracts the billing provider's subscription object.
type SubscriptionDetails struct {
	Plan               PlanTier           `json:"plan"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	PaymentMethod      *PaymentMethodInfo `json:"payment_method,omitempty"`
}

// PaymentMethodInfo contains payment method details.
type PaymentMethodInfo struct {
	Type     string `json:"type"`
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
}

// RedirectURLs guides the user back from provider-hosted checkout pages.
type RedirectURLs struct {
	Success string
	Cancel  string
}
