// internal/controller/billing_controller.go
package controller

import (
	"net/http"

	"github.com/unclebandit/helpflow-backend/internal/middleware"
	"github.com/unclebandit/helpflow-backend/internal/service"
)

type BillingController struct {
	BillingService *service.BillingService
}

type urlResponse struct {
	URL string `json:"url"`
}

// CreateCheckoutSession handles POST /api/stripe/create-checkout-session.
func (c *BillingController) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
		Email  string `json:"email"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if subject := middleware.SubjectFromContext(r.Context()); subject != "" && body.UserID != "" && subject != body.UserID {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
		return
	}

	url, err := c.BillingService.CreateCheckoutSession(r.Context(), body.UserID, body.Email)
	if err != nil {
		writeError(w, r, err, "Failed to create checkout session")
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

// CreatePortalSession handles POST /api/stripe/customer-portal.
func (c *BillingController) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CustomerID string `json:"customerId"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if subject := middleware.SubjectFromContext(r.Context()); subject != "" && body.CustomerID != "" {
		if err := c.BillingService.CheckCustomerOwner(r.Context(), subject, body.CustomerID); err != nil {
			writeError(w, r, err, "Failed to create portal session")
			return
		}
	}

	url, err := c.BillingService.CreatePortalSession(r.Context(), body.CustomerID)
	if err != nil {
		writeError(w, r, err, "Failed to create portal session")
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}
