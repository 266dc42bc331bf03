// Package handler contains HTTP handlers for the Quill API.
//
// This file implements the Stripe webhook handler for billing events.
//
// Route:
//   - POST /webhooks/stripe -> HandleStripeWebhook
//
// This route is PUBLIC (no auth middleware) because Stripe calls it
// directly. Authentication is the webhook signature verification.
package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v79"

	"github.com/hollandv/quill/internal/billing"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/metrics"
	"github.com/hollandv/quill/internal/service"
)

// WebhookHandler handles incoming webhook events from Stripe.
type WebhookHandler struct {
	billing     billing.Service
	userService service.UserService
	logger      *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
// billingService may be nil when Stripe is not configured.
func NewWebhookHandler(billingService billing.Service, userService service.UserService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		billing:     billingService,
		userService: userService,
		logger:      logger,
	}
}

// RegisterRoutes registers webhook routes on the provided mux.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook processes incoming Stripe webhook events.
//
// After the signature is verified the handler always responds 200, even when
// event processing fails, so Stripe does not retry events our own bugs would
// fail again. Failures are logged and counted instead.
func (h *WebhookHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.logger.Warn("stripe webhook received but billing is not configured")
		writeReceived(w)
		return
	}

	// Read body (limit to 64KB)
	body, err := io.ReadAll(io.LimitReader(r.Body, 65536))
	if err != nil {
		h.logger.Error("failed to read webhook body", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// Verify signature
	signature := r.Header.Get("Stripe-Signature")
	event, err := h.billing.VerifyWebhookSignature(body, signature)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		metrics.WebhookEvents.WithLabelValues("invalid_signature", "rejected").Inc()
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.logger.Info("stripe webhook received", "type", event.Type, "id", event.ID)
	metrics.WebhookEvents.WithLabelValues(string(event.Type), "received").Inc()

	switch event.Type {
	case "checkout.session.completed":
		h.handleCheckoutCompleted(event)
	case "customer.subscription.created":
		h.processSubscriptionEvent(event, "created")
	case "customer.subscription.updated":
		h.processSubscriptionEvent(event, "updated")
	case "customer.subscription.deleted":
		h.handleSubscriptionDeleted(event)
	case "invoice.payment_succeeded":
		h.handlePaymentSucceeded(event)
	case "invoice.payment_failed":
		h.handlePaymentFailed(event)
	default:
		h.logger.Debug("unhandled webhook event type", "type", event.Type)
	}

	writeReceived(w)
}

func writeReceived(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received":true}`))
}

// resolveUser finds the user a Stripe customer belongs to.
//
// The stored mapping is tried first. When the customer has no stored mapping
// yet (checkout completed before our handler saved the customer ID) the
// customer's email is fetched from Stripe, matched against our users, and
// the mapping is saved for future events.
func (h *WebhookHandler) resolveUser(ctx context.Context, customerID string) (*domain.User, error) {
	user, err := h.userService.GetByStripeCustomerID(ctx, customerID)
	if err == nil {
		return user, nil
	}
	if domain.ErrorCode(err) != domain.ENOTFOUND {
		return nil, err
	}

	email, err := h.billing.GetCustomerEmail(customerID)
	if err != nil {
		return nil, err
	}

	user, err = h.userService.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := h.userService.UpdateStripeCustomer(ctx, user.ID, customerID); err != nil {
		h.logger.Error("failed to save stripe customer mapping", "error", err, "user_id", user.ID)
	}
	return user, nil
}

func (h *WebhookHandler) handleCheckoutCompleted(event stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		h.logger.Error("failed to parse checkout session", "error", err)
		return
	}

	if session.Customer == nil || session.Subscription == nil {
		h.logger.Warn("checkout session missing customer or subscription", "session_id", session.ID)
		return
	}

	ctx := webhookCtx()
	user, err := h.resolveUser(ctx, session.Customer.ID)
	if err != nil {
		h.logger.Warn("user not found for checkout, subscription event will retry the mapping",
			"customer_id", session.Customer.ID, "error", err)
		return
	}

	if err := h.userService.UpdateSubscription(ctx, user.ID,
		string(domain.SubscriptionStatusActive), string(domain.SubscriptionTierPro), session.Subscription.ID); err != nil {
		h.logger.Error("failed to update subscription on checkout", "error", err, "user_id", user.ID)
		return
	}

	h.logger.Info("checkout completed", "user_id", user.ID, "subscription_id", session.Subscription.ID)
}

func (h *WebhookHandler) processSubscriptionEvent(event stripe.Event, action string) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription event", "error", err, "action", action)
		return
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription event missing customer", "subscription_id", sub.ID, "action", action)
		return
	}

	ctx := webhookCtx()
	user, err := h.resolveUser(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Warn("user not found for subscription event",
			"customer_id", sub.Customer.ID, "subscription_id", sub.ID, "action", action)
		return
	}

	// Determine tier from the subscribed price
	tier := string(domain.SubscriptionTierFree)
	if len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		if t := h.billing.TierForPriceID(sub.Items.Data[0].Price.ID); t != "" {
			tier = t
		}
	}

	status := string(sub.Status)
	if err := h.userService.UpdateSubscription(ctx, user.ID, status, tier, sub.ID); err != nil {
		h.logger.Error("failed to update subscription", "error", err, "user_id", user.ID, "action", action)
		return
	}

	h.logger.Info("subscription event processed",
		"user_id", user.ID, "action", action, "status", status, "tier", tier)
}

func (h *WebhookHandler) handleSubscriptionDeleted(event stripe.Event) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		h.logger.Error("failed to parse subscription deleted event", "error", err)
		return
	}

	if sub.Customer == nil {
		h.logger.Warn("subscription deleted event missing customer", "subscription_id", sub.ID)
		return
	}

	ctx := webhookCtx()
	user, err := h.resolveUser(ctx, sub.Customer.ID)
	if err != nil {
		h.logger.Warn("user not found for subscription deletion", "customer_id", sub.Customer.ID)
		return
	}

	if err := h.userService.UpdateSubscription(ctx, user.ID,
		string(domain.SubscriptionStatusInactive), string(domain.SubscriptionTierFree), ""); err != nil {
		h.logger.Error("failed to deactivate subscription", "error", err, "user_id", user.ID)
		return
	}

	h.logger.Info("subscription deleted", "user_id", user.ID, "subscription_id", sub.ID)
}

func (h *WebhookHandler) handlePaymentSucceeded(event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice payment succeeded event", "error", err)
		return
	}

	if invoice.Customer == nil {
		return
	}

	ctx := webhookCtx()
	user, err := h.resolveUser(ctx, invoice.Customer.ID)
	if err != nil {
		h.logger.Debug("user not found for payment succeeded", "customer_id", invoice.Customer.ID)
		return
	}

	// Recovery from past_due: payment success restores active status
	if user.SubscriptionStatus != domain.SubscriptionStatusActive {
		if err := h.userService.UpdateSubscription(ctx, user.ID,
			string(domain.SubscriptionStatusActive), string(user.SubscriptionTier), user.StripeSubscriptionID); err != nil {
			h.logger.Error("failed to reactivate on payment success", "error", err, "user_id", user.ID)
		}
	}
}

func (h *WebhookHandler) handlePaymentFailed(event stripe.Event) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		h.logger.Error("failed to parse invoice payment failed event", "error", err)
		return
	}

	if invoice.Customer == nil {
		return
	}

	ctx := webhookCtx()
	user, err := h.resolveUser(ctx, invoice.Customer.ID)
	if err != nil {
		h.logger.Debug("user not found for payment failed", "customer_id", invoice.Customer.ID)
		return
	}

	if err := h.userService.UpdateSubscription(ctx, user.ID,
		string(domain.SubscriptionStatusPastDue), string(user.SubscriptionTier), user.StripeSubscriptionID); err != nil {
		h.logger.Error("failed to set past_due on payment failure", "error", err, "user_id", user.ID)
		return
	}

	h.logger.Warn("payment failed", "user_id", user.ID, "customer_id", invoice.Customer.ID)
}

// webhookCtx returns a background context for webhook processing. Webhook
// deliveries are asynchronous and don't belong to a user request.
func webhookCtx() context.Context {
	return context.Background()
}
