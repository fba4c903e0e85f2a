package controller

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cassiomorais/leadpay/internal/application/checkout"
	"github.com/cassiomorais/leadpay/internal/confirm"
	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/cassiomorais/leadpay/internal/domain/tracker"
)

// CheckoutController handles checkout-related HTTP requests.
type CheckoutController struct {
	createAttempt *checkout.CreateAttemptUseCase
	pollers       *confirm.Registry
}

// NewCheckoutController creates a new CheckoutController.
func NewCheckoutController(createAttempt *checkout.CreateAttemptUseCase, pollers *confirm.Registry) *CheckoutController {
	return &CheckoutController{createAttempt: createAttempt, pollers: pollers}
}

// Checkout handles POST /api/v1/checkout
func (h *CheckoutController) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctxID := contextID(r)
	if ctxID == "" {
		writeError(w, domainErrors.NewValidationError("X-Context-ID", "browsing context id is required"))
		return
	}

	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid lead_id", Code: "invalid_id"})
		return
	}
	obligationID, err := uuid.Parse(req.ObligationID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid obligation_id", Code: "invalid_id"})
		return
	}

	resp, err := h.createAttempt.Execute(r.Context(), checkout.CreateAttemptRequest{
		LeadID:          leadID,
		ObligationID:    obligationID,
		Method:          attempt.Method(req.Method),
		InstallmentPart: req.InstallmentPart,
		ContextID:       ctxID,
		TaxID:           req.TaxID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if resp.Action.Type == checkout.ActionMissingField {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, FromCheckout(resp))
}

// Abandon handles POST /api/v1/checkout/abandon
func (h *CheckoutController) Abandon(w http.ResponseWriter, r *http.Request) {
	var req AbandonRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctxID := contextID(r)
	if ctxID == "" {
		writeError(w, domainErrors.NewValidationError("X-Context-ID", "browsing context id is required"))
		return
	}

	leadID, err := uuid.Parse(req.LeadID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid lead_id", Code: "invalid_id"})
		return
	}
	obligationID, err := uuid.Parse(req.ObligationID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid obligation_id", Code: "invalid_id"})
		return
	}

	key := tracker.Key{
		ContextID:            ctxID,
		LeadID:               leadID,
		ContractAcceptanceID: obligationID,
		InstallmentPart:      req.InstallmentPart,
	}
	if err := h.pollers.Abandon(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
