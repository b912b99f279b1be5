package types

// PlanLimites defines the resource ceilings attached to a plan.
// A zero ceiling means the resource is unlimited on that plan; a negative
// ceiling means the resource is not available on that plan at all.
type PlanLimites struct {
	MaxPanfletos          int64 `json:"panfletos"`
	MaxProdutos           int64 `json:"produtos"`
	MaxArmazenamentoBytes int64 `json:"armazenamento"`
	MaxIntegracoes        int64 `json:"integracoes"`
}

// Max returns the ceiling for the given resource category
// (0 = unlimited, negative = not available).
func (l PlanLimites) Max(r ResourceType) int64 {
	switch r {
	case ResourcePanfletos:
		return l.MaxPanfletos
	case ResourceProdutos:
		return l.MaxProdutos
	case ResourceArmazenamento:
		return l.MaxArmazenamentoBytes
	case ResourceIntegracoes:
		return l.MaxIntegracoes
	default:
		return 0
	}
}

// Endereco is a loja's postal address, stored as a JSONB document.
type Endereco struct {
	Rua    string `json:"rua,omitempty"`
	Numero string `json:"numero,omitempty"`
	Bairro string `json:"bairro,omitempty"`
	Cidade string `json:"cidade,omitempty"`
	Estado string `json:"estado,omitempty"`
	CEP    string `json:"cep,omitempty"`
}

// Branding holds a loja's vitrine appearance settings,
// stored as a JSONB document.
type Branding struct {
	CorPrimaria   string `json:"cor_primaria,omitempty"`
	CorSecundaria string `json:"cor_secundaria,omitempty"`
	LogoURL       string `json:"logo_url,omitempty"`
	BannerURL     string `json:"banner_url,omitempty"`
}

// IntegracaoConfig is the free-form configuration blob of an integration,
// stored as a JSONB document. Keys depend on the integration type.
type IntegracaoConfig map[string]any
