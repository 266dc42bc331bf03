package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"github.com/hollandv/quill/internal/domain"
)

// =============================================================================
// Mock Billing Service
// =============================================================================

// mockBillingService implements billing.Service for webhook tests.
type mockBillingService struct {
	event         stripe.Event
	customerEmail string
	tierByPrice   map[string]string
}

func (m *mockBillingService) CreateCustomer(email, name string) (string, error) {
	return "cus_new", nil
}

func (m *mockBillingService) GetCustomerEmail(customerID string) (string, error) {
	if m.customerEmail == "" {
		return "", errors.New("customer not found")
	}
	return m.customerEmail, nil
}

func (m *mockBillingService) CreateCheckoutSession(customerID, priceID, successURL, cancelURL string) (string, error) {
	return "https://checkout.stripe.test/session", nil
}

func (m *mockBillingService) CreatePortalSession(customerID, returnURL string) (string, error) {
	return "https://portal.stripe.test/session", nil
}

func (m *mockBillingService) GetSubscription(subscriptionID string) (*stripe.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (m *mockBillingService) CancelSubscription(subscriptionID string) error {
	return nil
}

func (m *mockBillingService) ReactivateSubscription(subscriptionID string) error {
	return nil
}

func (m *mockBillingService) VerifyWebhookSignature(payload []byte, signature string) (stripe.Event, error) {
	if signature != "valid" {
		return stripe.Event{}, errors.New("signature verification failed")
	}
	return m.event, nil
}

func (m *mockBillingService) TierForPriceID(priceID string) string {
	return m.tierByPrice[priceID]
}

// =============================================================================
// Helpers
// =============================================================================

func subscriptionEvent(t *testing.T, eventType, customerID, subscriptionID, status, priceID string) stripe.Event {
	t.Helper()

	raw, err := json.Marshal(map[string]interface{}{
		"id":       subscriptionID,
		"status":   status,
		"customer": map[string]string{"id": customerID},
		"items": map[string]interface{}{
			"data": []map[string]interface{}{
				{"price": map[string]string{"id": priceID}},
			},
		},
	})
	if err != nil {
		t.Fatalf("failed to build event payload: %v", err)
	}

	return stripe.Event{
		ID:   "evt_test",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: raw},
	}
}

func postWebhook(t *testing.T, h *WebhookHandler, signature string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader("{}"))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()

	h.HandleStripeWebhook(rec, req)
	return rec
}

// =============================================================================
// Tests
// =============================================================================

func TestWebhookHandler_InvalidSignature(t *testing.T) {
	billing := &mockBillingService{}
	h := NewWebhookHandler(billing, &mockUserService{}, testLogger())

	rec := postWebhook(t, h, "forged")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad signature, got %d", rec.Code)
	}
}

func TestWebhookHandler_BillingNotConfigured(t *testing.T) {
	h := NewWebhookHandler(nil, &mockUserService{}, testLogger())

	rec := postWebhook(t, h, "anything")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 when billing is disabled, got %d", rec.Code)
	}
}

func TestWebhookHandler_SubscriptionUpdated(t *testing.T) {
	user := testUser()
	user.StripeCustomerID = "cus_123"

	var gotStatus, gotTier, gotSubID string
	users := &mockUserService{
		getByCustomerFn: func(ctx context.Context, customerID string) (*domain.User, error) {
			if customerID != "cus_123" {
				t.Errorf("unexpected customer ID: %s", customerID)
			}
			return user, nil
		},
		updateSubFn: func(ctx context.Context, userID uuid.UUID, status, tier, subscriptionID string) error {
			gotStatus, gotTier, gotSubID = status, tier, subscriptionID
			return nil
		},
	}

	billing := &mockBillingService{
		event:       subscriptionEvent(t, "customer.subscription.updated", "cus_123", "sub_123", "active", "price_pro"),
		tierByPrice: map[string]string{"price_pro": "pro"},
	}
	h := NewWebhookHandler(billing, users, testLogger())

	rec := postWebhook(t, h, "valid")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if gotStatus != "active" {
		t.Errorf("expected status active, got %q", gotStatus)
	}
	if gotTier != "pro" {
		t.Errorf("expected tier pro, got %q", gotTier)
	}
	if gotSubID != "sub_123" {
		t.Errorf("expected subscription sub_123, got %q", gotSubID)
	}
}

func TestWebhookHandler_SubscriptionDeleted_Downgrades(t *testing.T) {
	user := testUser()
	user.StripeCustomerID = "cus_123"
	user.SubscriptionStatus = domain.SubscriptionStatusActive
	user.SubscriptionTier = domain.SubscriptionTierPro

	var gotStatus, gotTier string
	users := &mockUserService{
		getByCustomerFn: func(ctx context.Context, customerID string) (*domain.User, error) {
			return user, nil
		},
		updateSubFn: func(ctx context.Context, userID uuid.UUID, status, tier, subscriptionID string) error {
			gotStatus, gotTier = status, tier
			return nil
		},
	}

	billing := &mockBillingService{
		event: subscriptionEvent(t, "customer.subscription.deleted", "cus_123", "sub_123", "canceled", ""),
	}
	h := NewWebhookHandler(billing, users, testLogger())

	rec := postWebhook(t, h, "valid")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if gotStatus != string(domain.SubscriptionStatusInactive) {
		t.Errorf("expected inactive status, got %q", gotStatus)
	}
	if gotTier != string(domain.SubscriptionTierFree) {
		t.Errorf("expected free tier, got %q", gotTier)
	}
}

func TestWebhookHandler_RedeliveryIsIdempotent(t *testing.T) {
	user := testUser()
	user.StripeCustomerID = "cus_123"

	type update struct {
		status, tier, subID string
	}
	var updates []update
	users := &mockUserService{
		getByCustomerFn: func(ctx context.Context, customerID string) (*domain.User, error) {
			return user, nil
		},
		updateSubFn: func(ctx context.Context, userID uuid.UUID, status, tier, subscriptionID string) error {
			updates = append(updates, update{status, tier, subscriptionID})
			return nil
		},
	}

	billing := &mockBillingService{
		event:       subscriptionEvent(t, "customer.subscription.updated", "cus_123", "sub_123", "active", "price_pro"),
		tierByPrice: map[string]string{"price_pro": "pro"},
	}
	h := NewWebhookHandler(billing, users, testLogger())

	// Stripe may deliver the same event more than once
	for i := 0; i < 2; i++ {
		rec := postWebhook(t, h, "valid")
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected status 200, got %d", i+1, rec.Code)
		}
	}

	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	if updates[0] != updates[1] {
		t.Errorf("redelivery wrote different state: %+v vs %+v", updates[0], updates[1])
	}
}

func TestWebhookHandler_ResolvesUserByEmailFallback(t *testing.T) {
	user := testUser()

	var savedCustomerID string
	users := &mockUserService{
		getByCustomerFn: func(ctx context.Context, customerID string) (*domain.User, error) {
			return nil, domain.NotFound("mock", "user", customerID)
		},
		getByEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			if email != user.Email {
				t.Errorf("unexpected email lookup: %s", email)
			}
			return user, nil
		},
		updateCustomerFn: func(ctx context.Context, userID uuid.UUID, customerID string) error {
			savedCustomerID = customerID
			return nil
		},
	}

	billing := &mockBillingService{
		event:         subscriptionEvent(t, "customer.subscription.created", "cus_456", "sub_456", "active", "price_pro"),
		customerEmail: user.Email,
		tierByPrice:   map[string]string{"price_pro": "pro"},
	}
	h := NewWebhookHandler(billing, users, testLogger())

	rec := postWebhook(t, h, "valid")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if savedCustomerID != "cus_456" {
		t.Errorf("expected customer mapping to be saved, got %q", savedCustomerID)
	}
}

func TestWebhookHandler_UnknownCustomerStillReturns200(t *testing.T) {
	users := &mockUserService{
		getByCustomerFn: func(ctx context.Context, customerID string) (*domain.User, error) {
			return nil, domain.NotFound("mock", "user", customerID)
		},
	}

	billing := &mockBillingService{
		event: subscriptionEvent(t, "customer.subscription.updated", "cus_unknown", "sub_789", "active", ""),
	}
	h := NewWebhookHandler(billing, users, testLogger())

	rec := postWebhook(t, h, "valid")

	// Stripe retries non-2xx responses forever; a missing user is our
	// problem, not theirs.
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 for unknown customer, got %d", rec.Code)
	}
}

func TestWebhookHandler_PaymentFailed_SetsPastDue(t *testing.T) {
	user := testUser()
	user.StripeCustomerID = "cus_123"
	user.StripeSubscriptionID = "sub_123"
	user.SubscriptionStatus = domain.SubscriptionStatusActive
	user.SubscriptionTier = domain.SubscriptionTierPro

	var gotStatus string
	users := &mockUserService{
		getByCustomerFn: func(ctx context.Context, customerID string) (*domain.User, error) {
			return user, nil
		},
		updateSubFn: func(ctx context.Context, userID uuid.UUID, status, tier, subscriptionID string) error {
			gotStatus = status
			return nil
		},
	}

	raw, _ := json.Marshal(map[string]interface{}{
		"id":       "in_123",
		"customer": map[string]string{"id": "cus_123"},
	})
	billing := &mockBillingService{
		event: stripe.Event{
			ID:   "evt_test",
			Type: stripe.EventType("invoice.payment_failed"),
			Data: &stripe.EventData{Raw: raw},
		},
	}
	h := NewWebhookHandler(billing, users, testLogger())

	rec := postWebhook(t, h, "valid")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if gotStatus != string(domain.SubscriptionStatusPastDue) {
		t.Errorf("expected past_due status, got %q", gotStatus)
	}
}
