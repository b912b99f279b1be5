package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fletoads/internal/types"

	stripe "github.com/stripe/stripe-go/v82"
)

// stripeAPIBase is the default Stripe API base URL. Tests override it via
// StripeClientConfig.BaseURL.
const stripeAPIBase = "https://api.stripe.com"

// UserBillingLookup is the slice of the user repository that StripeClient
// needs to resolve a user into a Stripe customer.
type UserBillingLookup interface {
	// GetBillingInfo returns the stripe_customer_id and email for the user.
	// An existing user without a customer yet returns ("", email, nil).
	GetBillingInfo(ctx context.Context, userID string) (stripeCustomerID string, email string, err error)

	// UpdateStripeCustomerID persists the customer reference for the user.
	UpdateStripeCustomerID(ctx context.Context, userID string, customerID string) error
}

// PlanCatalog resolves a plan slug to the full plan row, which carries the
// Stripe price ID used for checkout.
type PlanCatalog interface {
	GetBySlug(ctx context.Context, slug types.PlanTier) (*types.Plano, error)
}

// StripeClientConfig holds the configuration for creating a StripeClient.
type StripeClientConfig struct {
	SecretKey string
	BaseURL   string // test override; defaults to stripeAPIBase
	Logger    *slog.Logger
}

// StripeClient talks to the Stripe REST API directly through BaseClient, so
// checkout and portal calls ride the platform's circuit breaker and retry
// loop, and tests can point it at an httptest server.
type StripeClient struct {
	base       *BaseClient
	secretKey  string
	baseURL    string
	userLookup UserBillingLookup
	plans      PlanCatalog
	logger     *slog.Logger
}

// NewStripeClient creates a new StripeClient. The httpClient should carry a
// timeout of its own; Stripe calls are slow but bounded.
func NewStripeClient(
	httpClient *http.Client,
	userLookup UserBillingLookup,
	plans PlanCatalog,
	cfg StripeClientConfig,
) *StripeClient {
	base := NewBaseClient(
		httpClient,
		"stripe",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    500 * time.Millisecond,
			MaxWait:    5 * time.Second,
		},
		"FletoAds/1.0",
	)
	return NewStripeClientWithBase(base, userLookup, plans, cfg)
}

// NewStripeClientWithBase creates a StripeClient around a pre-configured
// BaseClient. Tests use this to control retry and breaker behavior.
func NewStripeClientWithBase(
	base *BaseClient,
	userLookup UserBillingLookup,
	plans PlanCatalog,
	cfg StripeClientConfig,
) *StripeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = stripeAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &StripeClient{
		base:       base,
		secretKey:  cfg.SecretKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		userLookup: userLookup,
		plans:      plans,
		logger:     logger,
	}
}

// EnsureCustomer retrieves or creates the Stripe customer for a user.
// Search-first to avoid duplicate customers when the local reference was
// lost:
//
//  1. Search Stripe for metadata['user_id'] matching the user.
//  2. Found: persist and return the existing customer ID.
//  3. Not found: create a customer carrying the user_id metadata, then
//     persist the new ID.
func (s *StripeClient) EnsureCustomer(ctx context.Context, userID string, email string) (string, error) {
	searchQuery := fmt.Sprintf("metadata['user_id']:'%s'", userID)
	params := url.Values{}
	params.Set("query", searchQuery)

	searchResp, err := s.doGet(ctx, "/v1/customers/search", params)
	if err != nil {
		return "", s.wrapStripeError("EnsureCustomer.search", err)
	}
	defer searchResp.Body.Close()

	if searchResp.StatusCode != http.StatusOK {
		return "", s.handleErrorResponse(searchResp, "EnsureCustomer.search")
	}

	var searchResult stripeSearchResult
	if err := json.NewDecoder(searchResp.Body).Decode(&searchResult); err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe customer search response",
			err,
		)
	}

	if len(searchResult.Data) > 0 {
		customerID := searchResult.Data[0].ID
		if dbErr := s.userLookup.UpdateStripeCustomerID(ctx, userID, customerID); dbErr != nil {
			s.logger.WarnContext(ctx, "failed to persist stripe_customer_id",
				"user_id", userID,
				"customer_id", customerID,
				"error", dbErr,
			)
		}
		return customerID, nil
	}

	createParams := url.Values{}
	createParams.Set("email", email)
	createParams.Set("metadata[user_id]", userID)

	createResp, err := s.doPost(ctx, "/v1/customers", createParams)
	if err != nil {
		return "", s.wrapStripeError("EnsureCustomer.create", err)
	}
	defer createResp.Body.Close()

	if createResp.StatusCode != http.StatusOK {
		return "", s.handleErrorResponse(createResp, "EnsureCustomer.create")
	}

	var customer stripeCustomer
	if err := json.NewDecoder(createResp.Body).Decode(&customer); err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe customer creation response",
			err,
		)
	}

	if dbErr := s.userLookup.UpdateStripeCustomerID(ctx, userID, customer.ID); dbErr != nil {
		s.logger.WarnContext(ctx, "failed to persist stripe_customer_id after creation",
			"user_id", userID,
			"customer_id", customer.ID,
			"error", dbErr,
		)
	}

	return customer.ID, nil
}

// CreateCheckoutSession generates a Stripe Checkout URL for a plan upgrade.
// Sets client_reference_id to the user ID so the webhook can correlate the
// completed session back to the account.
func (s *StripeClient) CreateCheckoutSession(
	ctx context.Context,
	userID string,
	plan types.PlanTier,
	urls types.RedirectURLs,
) (checkoutURL string, sessionID string, err error) {
	customerID, _, err := s.resolveCustomerID(ctx, userID)
	if err != nil {
		return "", "", err
	}

	priceID, err := s.resolvePriceID(ctx, plan)
	if err != nil {
		return "", "", err
	}

	params := url.Values{}
	params.Set("customer", customerID)
	params.Set("mode", "subscription")
	params.Set("client_reference_id", userID)
	params.Set("success_url", urls.Success)
	params.Set("cancel_url", urls.Cancel)
	params.Set("metadata[user_id]", userID)
	params.Set("metadata[plano]", string(plan))
	params.Set("line_items[0][price]", priceID)
	params.Set("line_items[0][quantity]", "1")

	resp, err := s.doPost(ctx, "/v1/checkout/sessions", params)
	if err != nil {
		return "", "", s.wrapStripeError("CreateCheckoutSession", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", s.handleErrorResponse(resp, "CreateCheckoutSession")
	}

	var session stripeCheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe checkout session response",
			err,
		)
	}

	return session.URL, session.ID, nil
}

// CreatePortalSession generates a Stripe Billing Portal URL where the user
// manages payment methods and cancellation.
func (s *StripeClient) CreatePortalSession(
	ctx context.Context,
	userID string,
	returnURL string,
) (portalURL string, err error) {
	customerID, _, err := s.resolveCustomerID(ctx, userID)
	if err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("customer", customerID)
	params.Set("return_url", returnURL)

	resp, err := s.doPost(ctx, "/v1/billing_portal/sessions", params)
	if err != nil {
		return "", s.wrapStripeError("CreatePortalSession", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", s.handleErrorResponse(resp, "CreatePortalSession")
	}

	var session stripePortalSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe portal session response",
			err,
		)
	}

	return session.URL, nil
}

// GetSubscription retrieves the user's current subscription. A customer with
// no subscription at all is reported as an active free tier.
func (s *StripeClient) GetSubscription(ctx context.Context, userID string) (*types.SubscriptionDetails, error) {
	customerID, _, err := s.resolveCustomerID(ctx, userID)
	if err != nil {
		return nil, err
	}

	queryParams := url.Values{}
	queryParams.Set("customer", customerID)
	queryParams.Set("limit", "1")

	resp, err := s.doGet(ctx, "/v1/subscriptions", queryParams)
	if err != nil {
		return nil, s.wrapStripeError("GetSubscription", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.handleErrorResponse(resp, "GetSubscription")
	}

	var listResp stripeSubscriptionList
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe subscriptions response",
			err,
		)
	}

	if len(listResp.Data) == 0 {
		return &types.SubscriptionDetails{
			Plan:   types.PlanGratis,
			Status: types.SubStatusActive,
		}, nil
	}

	return mapStripeSubscription(&listResp.Data[0]), nil
}

func (s *StripeClient) doGet(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := s.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	s.setAuthHeaders(req)

	return s.base.Do(req)
}

func (s *StripeClient) doPost(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := s.baseURL + path
	body := params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.setAuthHeaders(req)

	return s.base.Do(req)
}

func (s *StripeClient) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", stripe.APIVersion)
}

// resolveCustomerID fetches the user's Stripe customer reference from the
// database. Checkout and portal require EnsureCustomer to have run first.
func (s *StripeClient) resolveCustomerID(ctx context.Context, userID string) (string, string, error) {
	customerID, email, err := s.userLookup.GetBillingInfo(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if customerID == "" {
		return "", "", types.NewAppError(
			types.ErrCodeNotFoundUser,
			fmt.Sprintf("user %s has no Stripe customer; call EnsureCustomer first", userID),
			nil,
		)
	}
	return customerID, email, nil
}

// resolvePriceID looks up the Stripe price for a plan from the catalog, with
// a "price_<slug>" fallback for seed environments without price IDs.
func (s *StripeClient) resolvePriceID(ctx context.Context, plan types.PlanTier) (string, error) {
	plano, err := s.plans.GetBySlug(ctx, plan)
	if err != nil {
		return "", err
	}
	if plano.StripePriceID != "" {
		return plano.StripePriceID, nil
	}
	return "price_" + string(plan), nil
}

// stripeErrorResponse is the JSON error body returned by the Stripe API.
type stripeErrorResponse struct {
	Error stripeErrorBody `json:"error"`
}

type stripeErrorBody struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
	Param       string `json:"param"`
}

// handleErrorResponse reads a Stripe error response and maps it onto the
// application error taxonomy.
func (s *StripeClient) handleErrorResponse(resp *http.Response, operation string) error {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe returned status %d and response body was unreadable", operation, resp.StatusCode),
			readErr,
		)
	}

	var stripeErr stripeErrorResponse
	if jsonErr := json.Unmarshal(body, &stripeErr); jsonErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe returned status %d with non-JSON body", operation, resp.StatusCode),
			jsonErr,
		)
	}

	return s.mapStripeError(operation, resp.StatusCode, &stripeErr.Error)
}

func (s *StripeClient) mapStripeError(operation string, statusCode int, stripeErr *stripeErrorBody) error {
	if stripeErr.Code == "card_declined" || stripeErr.DeclineCode != "" {
		return types.NewAppErrorWithDetails(
			types.ErrCodePaymentDeclined,
			fmt.Sprintf("%s: payment declined: %s", operation, stripeErr.Message),
			nil,
			map[string]any{
				"decline_code": stripeErr.DeclineCode,
				"stripe_code":  stripeErr.Code,
			},
		)
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			fmt.Sprintf("%s: Stripe rate limit exceeded", operation),
			nil,
		)
	case statusCode >= 500:
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("%s: Stripe server error: %s", operation, stripeErr.Message),
			nil,
		)
	default:
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe error (%d): %s", operation, statusCode, stripeErr.Message),
			nil,
		)
	}
}

// wrapStripeError wraps a BaseClient transport error with operation context.
// AppErrors from the breaker and retry loop already carry the right code and
// pass through untouched.
func (s *StripeClient) wrapStripeError(operation string, err error) error {
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamStripe,
		fmt.Sprintf("%s: Stripe request failed: %v", operation, err),
		err,
	)
}

// Stripe response shapes, deserialization only.

type stripeCustomer struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
}

type stripeSearchResult struct {
	Data    []stripeCustomer `json:"data"`
	HasMore bool             `json:"has_more"`
}

type stripeCheckoutSession struct {
	ID                string            `json:"id"`
	URL               string            `json:"url"`
	ClientReferenceID string            `json:"client_reference_id"`
	Customer          string            `json:"customer"`
	Metadata          map[string]string `json:"metadata"`
}

type stripePortalSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type stripeSubscription struct {
	ID                   string                  `json:"id"`
	Status               string                  `json:"status"`
	Customer             string                  `json:"customer"`
	CancelAtPeriodEnd    bool                    `json:"cancel_at_period_end"`
	CurrentPeriodStart   int64                   `json:"current_period_start"`
	CurrentPeriodEnd     int64                   `json:"current_period_end"`
	Items                stripeSubscriptionItems `json:"items"`
	DefaultPaymentMethod *stripePaymentMethodRef `json:"default_payment_method"`
}

type stripeSubscriptionItems struct {
	Data []stripeSubscriptionItem `json:"data"`
}

type stripeSubscriptionItem struct {
	Price stripePrice `json:"price"`
}

type stripePrice struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
	Lookup   string            `json:"lookup_key"`
}

type stripePaymentMethodRef struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Card *stripeCardInfo `json:"card"`
}

type stripeCardInfo struct {
	Last4    string `json:"last4"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	Brand    string `json:"brand"`
}

type stripeSubscriptionList struct {
	Data    []stripeSubscription `json:"data"`
	HasMore bool                 `json:"has_more"`
}

// mapStripeSubscription converts a Stripe subscription to the domain shape.
func mapStripeSubscription(sub *stripeSubscription) *types.SubscriptionDetails {
	details := &types.SubscriptionDetails{
		Status:             mapSubscriptionStatus(sub.Status),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}

	if len(sub.Items.Data) > 0 {
		details.Plan = planFromPrice(&sub.Items.Data[0].Price)
	}

	if sub.DefaultPaymentMethod != nil && sub.DefaultPaymentMethod.Card != nil {
		details.PaymentMethod = &types.PaymentMethodInfo{
			Type:     sub.DefaultPaymentMethod.Type,
			Last4:    sub.DefaultPaymentMethod.Card.Last4,
			ExpMonth: sub.DefaultPaymentMethod.Card.ExpMonth,
			ExpYear:  sub.DefaultPaymentMethod.Card.ExpYear,
		}
	}

	return details
}

func mapSubscriptionStatus(status string) types.SubscriptionStatus {
	switch status {
	case "active":
		return types.SubStatusActive
	case "past_due":
		return types.SubStatusPastDue
	case "canceled":
		return types.SubStatusCanceled
	case "trialing":
		return types.SubStatusTrialing
	case "unpaid":
		return types.SubStatusUnpaid
	default:
		return types.SubscriptionStatus(status)
	}
}

// planFromPrice extracts the plan slug from a Stripe price. Prices created
// by the seed carry a plano metadata key; the "price_<slug>" naming is the
// fallback for manually created prices.
func planFromPrice(price *stripePrice) types.PlanTier {
	if slug, ok := price.Metadata["plano"]; ok && slug != "" {
		return types.PlanTier(slug)
	}
	if slug, found := strings.CutPrefix(price.ID, "price_"); found {
		return types.PlanTier(slug)
	}
	return types.PlanGratis
}

// StripeVerifier checks webhook signatures using stripe-go's HMAC-SHA256
// validation with timestamp tolerance.
type StripeVerifier struct{}

// Verify validates a webhook payload against the Stripe-Signature header and
// the endpoint signing secret.
func (v *StripeVerifier) Verify(payload []byte, header string, secret string) error {
	return stripe.ValidatePayload(payload, header, secret)
}
