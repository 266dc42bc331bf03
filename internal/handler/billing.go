// Package handler contains HTTP handlers for the Quill API.
//
// This file implements subscription management backed by Stripe. Checkout
// and portal flows return URLs for the client to redirect to.
//
// Routes handled:
//   - GET  /api/billing/subscription -> GetSubscription
//   - POST /api/billing/checkout     -> CreateCheckout
//   - POST /api/billing/portal       -> OpenPortal
//   - POST /api/billing/cancel       -> CancelSubscription
//   - POST /api/billing/reactivate   -> ReactivateSubscription
package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hollandv/quill/internal/auth"
	"github.com/hollandv/quill/internal/billing"
	"github.com/hollandv/quill/internal/domain"
	"github.com/hollandv/quill/internal/service"
)

// BillingHandler handles billing and subscription HTTP requests.
type BillingHandler struct {
	billing     billing.Service
	userService service.UserService
	baseURL     string
	prices      billing.PriceConfig
	logger      *slog.Logger
}

// NewBillingHandler creates a new BillingHandler.
// billingService may be nil when Stripe is not configured (development mode);
// all routes then respond 503.
func NewBillingHandler(billingService billing.Service, userService service.UserService, baseURL string, prices billing.PriceConfig, logger *slog.Logger) *BillingHandler {
	return &BillingHandler{
		billing:     billingService,
		userService: userService,
		baseURL:     baseURL,
		prices:      prices,
		logger:      logger,
	}
}

// RegisterRoutes registers billing routes on the provided mux.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /api/billing/subscription", requireUser(http.HandlerFunc(h.GetSubscription)))
	mux.Handle("POST /api/billing/checkout", requireUser(http.HandlerFunc(h.CreateCheckout)))
	mux.Handle("POST /api/billing/portal", requireUser(http.HandlerFunc(h.OpenPortal)))
	mux.Handle("POST /api/billing/cancel", requireUser(http.HandlerFunc(h.CancelSubscription)))
	mux.Handle("POST /api/billing/reactivate", requireUser(http.HandlerFunc(h.ReactivateSubscription)))
}

// checkoutRequest is the request body for POST /api/billing/checkout.
type checkoutRequest struct {
	Interval string `json:"interval" validate:"required,oneof=monthly yearly"`
}

// subscriptionResponse is the body of GET /api/billing/subscription.
type subscriptionResponse struct {
	Tier        string `json:"tier"`
	Status      string `json:"status"`
	PeriodEnd   string `json:"period_end,omitempty"`
	CancelAtEnd bool   `json:"cancel_at_end"`
}

// notConfigured guards routes when Stripe credentials are absent.
func (h *BillingHandler) notConfigured(w http.ResponseWriter, r *http.Request) bool {
	if h.billing != nil {
		return false
	}
	err := domain.Errorf(domain.EUNAVAILABLE, "", "Billing is not configured")
	ErrorResponse(w, r, h.logger, err)
	return true
}

// GetSubscription returns the user's current plan, enriched with live
// period data from Stripe when a subscription exists.
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	resp := subscriptionResponse{
		Tier:   string(user.SubscriptionTier),
		Status: string(user.SubscriptionStatus),
	}

	if h.billing != nil && user.StripeSubscriptionID != "" {
		sub, err := h.billing.GetSubscription(user.StripeSubscriptionID)
		if err != nil {
			h.logger.Warn("failed to fetch stripe subscription", "error", err, "subscription_id", user.StripeSubscriptionID)
		} else {
			resp.PeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC().Format(time.RFC3339)
			resp.CancelAtEnd = sub.CancelAtPeriodEnd
			resp.Status = string(sub.Status)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"subscription": resp,
	})
}

// CreateCheckout creates a Stripe Checkout session for the pro plan and
// returns its URL. Creates a Stripe customer for the user on first use.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.notConfigured(w, r) {
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		ValidationErrorResponse(w, r, h.logger, err)
		return
	}

	priceID := h.prices.ProMonthlyPriceID
	if req.Interval == "yearly" {
		priceID = h.prices.ProYearlyPriceID
	}
	if priceID == "" {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.EUNAVAILABLE, "", "The selected plan is not available"))
		return
	}

	// Ensure the user has a Stripe customer
	customerID := user.StripeCustomerID
	if customerID == "" {
		var err error
		customerID, err = h.billing.CreateCustomer(user.Email, user.Name)
		if err != nil {
			h.logger.Error("failed to create stripe customer", "error", err, "user_id", user.ID)
			InternalErrorResponse(w, r, h.logger, err)
			return
		}
		if err := h.userService.UpdateStripeCustomer(r.Context(), user.ID, customerID); err != nil {
			h.logger.Error("failed to save stripe customer ID", "error", err, "user_id", user.ID)
		}
	}

	successURL := fmt.Sprintf("%s/billing/success?session_id={CHECKOUT_SESSION_ID}", h.baseURL)
	cancelURL := fmt.Sprintf("%s/billing", h.baseURL)

	checkoutURL, err := h.billing.CreateCheckoutSession(customerID, priceID, successURL, cancelURL)
	if err != nil {
		h.logger.Error("failed to create checkout session", "error", err, "user_id", user.ID)
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"checkout_url": checkoutURL,
	})
}

// OpenPortal creates a Stripe Customer Portal session and returns its URL.
func (h *BillingHandler) OpenPortal(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.notConfigured(w, r) {
		return
	}

	if user.StripeCustomerID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("BillingHandler.OpenPortal", "No billing account exists yet"))
		return
	}

	returnURL := fmt.Sprintf("%s/billing", h.baseURL)
	portalURL, err := h.billing.CreatePortalSession(user.StripeCustomerID, returnURL)
	if err != nil {
		h.logger.Error("failed to create portal session", "error", err, "user_id", user.ID)
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"portal_url": portalURL,
	})
}

// CancelSubscription sets the subscription to cancel at period end.
// Access continues until the period ends, at which point the deletion
// webhook downgrades the account.
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.notConfigured(w, r) {
		return
	}

	if user.StripeSubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("BillingHandler.CancelSubscription", "No active subscription to cancel"))
		return
	}

	if err := h.billing.CancelSubscription(user.StripeSubscriptionID); err != nil {
		h.logger.Error("failed to cancel subscription", "error", err, "user_id", user.ID)
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("subscription set to cancel at period end", "user_id", user.ID)
	respondJSON(w, http.StatusOK, map[string]bool{"canceled": true})
}

// ReactivateSubscription removes the cancel-at-period-end flag.
func (h *BillingHandler) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}
	if h.notConfigured(w, r) {
		return
	}

	if user.StripeSubscriptionID == "" {
		ErrorResponse(w, r, h.logger, domain.Invalid("BillingHandler.ReactivateSubscription", "No subscription to reactivate"))
		return
	}

	if err := h.billing.ReactivateSubscription(user.StripeSubscriptionID); err != nil {
		h.logger.Error("failed to reactivate subscription", "error", err, "user_id", user.ID)
		InternalErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("subscription reactivated", "user_id", user.ID)
	respondJSON(w, http.StatusOK, map[string]bool{"reactivated": true})
}
