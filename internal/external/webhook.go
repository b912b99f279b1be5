package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fletoads/internal/types"
)

// BillingUserStore is the slice of the user repository the webhook processor
// needs to apply plan changes.
type BillingUserStore interface {
	GetByStripeCustomerID(ctx context.Context, customerID string) (*types.Usuario, error)
	UpdatePlano(ctx context.Context, userID string, plano types.PlanTier) error
}

// NotificationWriter records in-app notifications for plan changes.
type NotificationWriter interface {
	Create(ctx context.Context, n *types.Notificacao) error
}

// WebhookProcessor applies Stripe webhook events to local user accounts.
// Signature verification happens in the HTTP handler before events reach
// this type.
type WebhookProcessor struct {
	users  BillingUserStore
	notifs NotificationWriter
	logger *slog.Logger
}

// NewWebhookProcessor creates a WebhookProcessor. notifs may be nil, in which
// case plan changes are applied without writing a notification.
func NewWebhookProcessor(users BillingUserStore, notifs NotificationWriter, logger *slog.Logger) *WebhookProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookProcessor{users: users, notifs: notifs, logger: logger}
}

// notifyPlanChange writes the in-app notification for a plan move. A write
// failure is logged and swallowed: the plan change already committed and the
// event must not be redelivered over a cosmetic row.
func (p *WebhookProcessor) notifyPlanChange(ctx context.Context, userID string, titulo, mensagem string) {
	if p.notifs == nil {
		return
	}
	n := &types.Notificacao{
		ID:        "notif_" + uuid.New().String(),
		UsuarioID: userID,
		Titulo:    titulo,
		Mensagem:  mensagem,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.notifs.Create(ctx, n); err != nil {
		p.logger.WarnContext(ctx, "failed to write plan change notification",
			"user_id", userID, "error", err)
	}
}

// stripeEvent is the envelope Stripe posts to the webhook endpoint.
type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Process dispatches a verified webhook payload. Event types the platform
// does not care about are acknowledged without action so Stripe stops
// redelivering them.
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte) error {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return types.NewAppError(
			types.ErrCodeValidationInvalidBody,
			"malformed webhook payload",
			err,
		)
	}

	switch event.Type {
	case "checkout.session.completed":
		return p.handleCheckoutCompleted(ctx, &event)
	case "customer.subscription.updated":
		return p.handleSubscriptionUpdated(ctx, &event)
	case "customer.subscription.deleted":
		return p.handleSubscriptionDeleted(ctx, &event)
	default:
		p.logger.DebugContext(ctx, "ignoring webhook event", "event_type", event.Type, "event_id", event.ID)
		return nil
	}
}

// handleCheckoutCompleted activates the purchased plan. The checkout session
// carries the user ID in client_reference_id and the plan slug in metadata,
// both set by CreateCheckoutSession.
func (p *WebhookProcessor) handleCheckoutCompleted(ctx context.Context, event *stripeEvent) error {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return types.NewAppError(
			types.ErrCodeValidationInvalidBody,
			"malformed checkout session object",
			err,
		)
	}

	userID := session.ClientReferenceID
	plan := types.PlanTier(session.Metadata["plano"])
	if userID == "" || plan == "" {
		return types.NewAppError(
			types.ErrCodeValidationInvalidBody,
			fmt.Sprintf("checkout session %s is missing user or plan reference", session.ID),
			nil,
		)
	}

	if err := p.users.UpdatePlano(ctx, userID, plan); err != nil {
		return err
	}
	p.notifyPlanChange(ctx, userID, "Plano ativado",
		fmt.Sprintf("Seu plano %s está ativo.", plan))

	p.logger.InfoContext(ctx, "plan activated via checkout",
		"user_id", userID,
		"plano", plan,
		"event_id", event.ID,
	)
	return nil
}

// handleSubscriptionUpdated keeps the local plan in sync with the provider.
// Only states where the customer retains access move the plan; a past_due
// subscription keeps its tier until Stripe gives up and deletes it.
func (p *WebhookProcessor) handleSubscriptionUpdated(ctx context.Context, event *stripeEvent) error {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return types.NewAppError(
			types.ErrCodeValidationInvalidBody,
			"malformed subscription object",
			err,
		)
	}

	user, err := p.users.GetByStripeCustomerID(ctx, sub.Customer)
	if err != nil {
		return err
	}

	status := mapSubscriptionStatus(sub.Status)
	if status != types.SubStatusActive && status != types.SubStatusTrialing {
		p.logger.InfoContext(ctx, "subscription not in an access-granting state, keeping current plan",
			"user_id", user.ID,
			"status", sub.Status,
		)
		return nil
	}

	if len(sub.Items.Data) == 0 {
		return nil
	}

	plan := planFromPrice(&sub.Items.Data[0].Price)
	if plan == user.Plano {
		return nil
	}

	if err := p.users.UpdatePlano(ctx, user.ID, plan); err != nil {
		return err
	}
	p.notifyPlanChange(ctx, user.ID, "Plano atualizado",
		fmt.Sprintf("Sua assinatura agora é o plano %s.", plan))

	p.logger.InfoContext(ctx, "plan synced from subscription update",
		"user_id", user.ID,
		"plano", plan,
		"event_id", event.ID,
	)
	return nil
}

// handleSubscriptionDeleted drops the user back to the free tier.
func (p *WebhookProcessor) handleSubscriptionDeleted(ctx context.Context, event *stripeEvent) error {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return types.NewAppError(
			types.ErrCodeValidationInvalidBody,
			"malformed subscription object",
			err,
		)
	}

	user, err := p.users.GetByStripeCustomerID(ctx, sub.Customer)
	if err != nil {
		return err
	}

	if err := p.users.UpdatePlano(ctx, user.ID, types.PlanGratis); err != nil {
		return err
	}
	p.notifyPlanChange(ctx, user.ID, "Assinatura cancelada",
		"Sua conta voltou para o plano grátis.")

	p.logger.InfoContext(ctx, "subscription canceled, downgraded to free tier",
		"user_id", user.ID,
		"event_id", event.ID,
	)
	return nil
}
