package external

import (
	"context"
	"errors"
	"testing"

	"fletoads/internal/types"
)

// fakeBillingStore is an in-memory BillingUserStore.
type fakeBillingStore struct {
	userByCustomer map[string]*types.Usuario
	planUpdates    map[string]types.PlanTier
	updateErr      error
}

func newFakeBillingStore() *fakeBillingStore {
	return &fakeBillingStore{
		userByCustomer: map[string]*types.Usuario{},
		planUpdates:    map[string]types.PlanTier{},
	}
}

func (f *fakeBillingStore) GetByStripeCustomerID(ctx context.Context, customerID string) (*types.Usuario, error) {
	u, ok := f.userByCustomer[customerID]
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	return u, nil
}

func (f *fakeBillingStore) UpdatePlano(ctx context.Context, userID string, plano types.PlanTier) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.planUpdates[userID] = plano
	return nil
}

// fakeNotificationWriter records notifications in memory.
type fakeNotificationWriter struct {
	created   []*types.Notificacao
	createErr error
}

func (f *fakeNotificationWriter) Create(ctx context.Context, n *types.Notificacao) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, n)
	return nil
}

func TestProcess_CheckoutCompletedActivatesPlan(t *testing.T) {
	store := newFakeBillingStore()
	proc := NewWebhookProcessor(store, nil, nil)

	payload := []byte(`{
		"id":"evt_1",
		"type":"checkout.session.completed",
		"data":{"object":{
			"id":"cs_1",
			"client_reference_id":"user_1",
			"customer":"cus_1",
			"metadata":{"plano":"completo"}
		}}
	}`)

	if err := proc.Process(context.Background(), payload); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if store.planUpdates["user_1"] != types.PlanCompleto {
		t.Errorf("expected user_1 upgraded to completo, got %s", store.planUpdates["user_1"])
	}
}

func TestProcess_CheckoutCompletedMissingReference(t *testing.T) {
	store := newFakeBillingStore()
	proc := NewWebhookProcessor(store, nil, nil)

	payload := []byte(`{
		"id":"evt_1",
		"type":"checkout.session.completed",
		"data":{"object":{"id":"cs_1"}}
	}`)

	err := proc.Process(context.Background(), payload)
	if err == nil {
		t.Fatal("expected error")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeValidationInvalidBody {
		t.Errorf("expected validation_invalid_body, got %s", appErr.Code)
	}
}

func TestProcess_SubscriptionUpdatedSyncsPlan(t *testing.T) {
	store := newFakeBillingStore()
	store.userByCustomer["cus_1"] = &types.Usuario{ID: "user_1", Plano: types.PlanBasico}
	proc := NewWebhookProcessor(store, nil, nil)

	payload := []byte(`{
		"id":"evt_2",
		"type":"customer.subscription.updated",
		"data":{"object":{
			"id":"sub_1",
			"status":"active",
			"customer":"cus_1",
			"items":{"data":[{"price":{"id":"price_premium"}}]}
		}}
	}`)

	if err := proc.Process(context.Background(), payload); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if store.planUpdates["user_1"] != types.PlanPremium {
		t.Errorf("expected sync to premium, got %s", store.planUpdates["user_1"])
	}
}

func TestProcess_SubscriptionPastDueKeepsPlan(t *testing.T) {
	store := newFakeBillingStore()
	store.userByCustomer["cus_1"] = &types.Usuario{ID: "user_1", Plano: types.PlanCompleto}
	proc := NewWebhookProcessor(store, nil, nil)

	payload := []byte(`{
		"id":"evt_3",
		"type":"customer.subscription.updated",
		"data":{"object":{
			"id":"sub_1",
			"status":"past_due",
			"customer":"cus_1",
			"items":{"data":[{"price":{"id":"price_gratis"}}]}
		}}
	}`)

	if err := proc.Process(context.Background(), payload); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if _, updated := store.planUpdates["user_1"]; updated {
		t.Error("past_due must not move the plan")
	}
}

func TestProcess_SubscriptionDeletedDowngradesToGratis(t *testing.T) {
	store := newFakeBillingStore()
	store.userByCustomer["cus_1"] = &types.Usuario{ID: "user_1", Plano: types.PlanPremium}
	proc := NewWebhookProcessor(store, nil, nil)

	payload := []byte(`{
		"id":"evt_4",
		"type":"customer.subscription.deleted",
		"data":{"object":{"id":"sub_1","status":"canceled","customer":"cus_1"}}
	}`)

	if err := proc.Process(context.Background(), payload); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if store.planUpdates["user_1"] != types.PlanGratis {
		t.Errorf("expected downgrade to gratis, got %s", store.planUpdates["user_1"])
	}
}

func TestProcess_PlanChangeWritesNotification(t *testing.T) {
	store := newFakeBillingStore()
	store.userByCustomer["cus_1"] = &types.Usuario{ID: "user_1", Plano: types.PlanPremium}
	notifs := &fakeNotificationWriter{}
	proc := NewWebhookProcessor(store, notifs, nil)

	payload := []byte(`{
		"id":"evt_4",
		"type":"customer.subscription.deleted",
		"data":{"object":{"id":"sub_1","status":"canceled","customer":"cus_1"}}
	}`)

	if err := proc.Process(context.Background(), payload); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(notifs.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifs.created))
	}
	n := notifs.created[0]
	if n.UsuarioID != "user_1" {
		t.Errorf("notification for wrong user: %s", n.UsuarioID)
	}
	if n.Lida {
		t.Error("new notification must start unread")
	}
}

func TestProcess_NotificationFailureDoesNotFailEvent(t *testing.T) {
	store := newFakeBillingStore()
	store.userByCustomer["cus_1"] = &types.Usuario{ID: "user_1", Plano: types.PlanPremium}
	notifs := &fakeNotificationWriter{createErr: errors.New("insert failed")}
	proc := NewWebhookProcessor(store, notifs, nil)

	payload := []byte(`{
		"id":"evt_4",
		"type":"customer.subscription.deleted",
		"data":{"object":{"id":"sub_1","status":"canceled","customer":"cus_1"}}
	}`)

	if err := proc.Process(context.Background(), payload); err != nil {
		t.Fatalf("plan change committed; notification failure must not surface: %v", err)
	}
	if store.planUpdates["user_1"] != types.PlanGratis {
		t.Errorf("expected downgrade to gratis, got %s", store.planUpdates["user_1"])
	}
}

func TestProcess_UnknownEventIsIgnored(t *testing.T) {
	store := newFakeBillingStore()
	proc := NewWebhookProcessor(store, nil, nil)

	payload := []byte(`{"id":"evt_5","type":"invoice.finalized","data":{"object":{}}}`)

	if err := proc.Process(context.Background(), payload); err != nil {
		t.Fatalf("unknown events must be acknowledged, got: %v", err)
	}
	if len(store.planUpdates) != 0 {
		t.Error("no plan updates expected")
	}
}

func TestProcess_MalformedPayload(t *testing.T) {
	proc := NewWebhookProcessor(newFakeBillingStore(), nil, nil)

	err := proc.Process(context.Background(), []byte(`not-json`))
	if err == nil {
		t.Fatal("expected error")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodeValidationInvalidBody {
		t.Errorf("expected validation_invalid_body, got %s", appErr.Code)
	}
}
