package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fletoads/internal/core"
	"fletoads/internal/types"
)

// maxWebhookBody caps the webhook payload read. Stripe events are small;
// anything beyond this is not a legitimate event.
const maxWebhookBody = 1 << 20

// BillingProvider is the payment provider surface the billing endpoints use.
type BillingProvider interface {
	EnsureCustomer(ctx context.Context, userID string, email string) (string, error)
	CreateCheckoutSession(ctx context.Context, userID string, plan types.PlanTier, urls types.RedirectURLs) (string, string, error)
	CreatePortalSession(ctx context.Context, userID string, returnURL string) (string, error)
	GetSubscription(ctx context.Context, userID string) (*types.SubscriptionDetails, error)
}

// WebhookVerifier validates a raw webhook payload against its signature
// header.
type WebhookVerifier interface {
	Verify(payload []byte, header string, secret string) error
}

// WebhookSink applies a verified provider event to local state.
type WebhookSink interface {
	Process(ctx context.Context, payload []byte) error
}

// CheckoutRequest is the request body for POST /v1/billing/checkout.
type CheckoutRequest struct {
	Plano      types.PlanTier `json:"plano" validate:"required,plan_tier"`
	SuccessURL string         `json:"success_url" validate:"required,url"`
	CancelURL  string         `json:"cancel_url" validate:"required,url"`
}

// PortalRequest is the request body for POST /v1/billing/portal.
type PortalRequest struct {
	ReturnURL string `json:"return_url" validate:"required,url"`
}

// BillingHandler exposes subscription management backed by the payment
// provider, plus the webhook entry point that keeps local plan state in
// sync.
type BillingHandler struct {
	provider      BillingProvider
	users         AuthUserSource
	verifier      WebhookVerifier
	sink          WebhookSink
	webhookSecret string
	validator     *core.Validator
	logger        *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(
	provider BillingProvider,
	users AuthUserSource,
	verifier WebhookVerifier,
	sink WebhookSink,
	webhookSecret string,
	v *core.Validator,
	logger *slog.Logger,
) *BillingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BillingHandler{
		provider:      provider,
		users:         users,
		verifier:      verifier,
		sink:          sink,
		webhookSecret: webhookSecret,
		validator:     v,
		logger:        logger,
	}
}

// RegisterRoutes mounts the authenticated billing routes.
func (h *BillingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/billing", func(r chi.Router) {
		r.Post("/checkout", h.CreateCheckout)
		r.Post("/portal", h.CreatePortal)
		r.Get("/subscription", h.GetSubscription)
	})
}

// RegisterWebhookRoutes mounts the unauthenticated provider callback.
// Authenticity comes from the signature check, not from a session.
func (h *BillingHandler) RegisterWebhookRoutes(r chi.Router) {
	r.Post("/webhooks/stripe", h.HandleWebhook)
}

// CreateCheckout handles POST /v1/billing/checkout. The plan change itself
// happens later, when the provider confirms payment through the webhook.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req CheckoutRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if req.Plano == types.PlanGratis {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidBody,
			"the free plan has no checkout", nil))
		return
	}

	user, err := h.users.GetByID(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if _, err := h.provider.EnsureCustomer(r.Context(), user.ID, user.Email); err != nil {
		core.Error(w, r, err)
		return
	}

	checkoutURL, sessionID, err := h.provider.CreateCheckoutSession(r.Context(), user.ID, req.Plano, types.RedirectURLs{
		Success: req.SuccessURL,
		Cancel:  req.CancelURL,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "checkout session created",
		"user_id", user.ID, "plano", req.Plano, "session_id", sessionID)
	core.JSON(w, r, http.StatusOK, map[string]any{
		"url":        checkoutURL,
		"session_id": sessionID,
	})
}

// CreatePortal handles POST /v1/billing/portal.
func (h *BillingHandler) CreatePortal(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	var req PortalRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	portalURL, err := h.provider.CreatePortalSession(r.Context(), actor.ID, req.ReturnURL)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, map[string]any{"url": portalURL})
}

// GetSubscription handles GET /v1/billing/subscription.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return
	}

	sub, err := h.provider.GetSubscription(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, sub)
}

// HandleWebhook handles POST /webhooks/stripe. Processing errors other than
// malformed payloads return 5xx so the provider retries delivery.
func (h *BillingHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidBody, "unreadable payload", err))
		return
	}

	if err := h.verifier.Verify(payload, r.Header.Get("Stripe-Signature"), h.webhookSecret); err != nil {
		h.logger.WarnContext(r.Context(), "webhook signature rejected", "error", err)
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid webhook signature", err))
		return
	}

	if err := h.sink.Process(r.Context(), payload); err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, map[string]any{"received": true})
}
