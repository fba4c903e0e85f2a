package controller

import (
	"time"

	"github.com/cassiomorais/leadpay/internal/application/checkout"
	"github.com/cassiomorais/leadpay/internal/application/status"
	"github.com/cassiomorais/leadpay/internal/confirm"
	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/cassiomorais/leadpay/internal/domain/ledger"
	"github.com/google/uuid"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (string IDs, validation tags).
// Controllers convert these to use-case inputs before calling business logic.

// CheckoutRequest holds the input for starting a checkout.
type CheckoutRequest struct {
	LeadID          string `json:"lead_id" validate:"required,uuid"`
	ObligationID    string `json:"obligation_id" validate:"required,uuid"`
	Method          string `json:"method" validate:"required,oneof=stripe_card stripe_pix zelle parcelow"`
	InstallmentPart int    `json:"installment_part" validate:"required,oneof=1 2"`
	// TaxID is supplied on re-invocation after a missing_field response.
	TaxID string `json:"tax_id,omitempty" validate:"omitempty,min=11,max=14"`
}

// AbandonRequest holds the input for abandoning an in-flight checkout.
type AbandonRequest struct {
	LeadID          string `json:"lead_id" validate:"required,uuid"`
	ObligationID    string `json:"obligation_id" validate:"required,uuid"`
	InstallmentPart int    `json:"installment_part" validate:"required,oneof=1 2"`
}

// --- Response DTOs ---

// AttemptResponse represents a payment attempt in API responses.
type AttemptResponse struct {
	ID                   string         `json:"id"`
	LeadID               string         `json:"lead_id"`
	ContractAcceptanceID *string        `json:"contract_acceptance_id,omitempty"`
	Method               string         `json:"method"`
	InstallmentPart      int            `json:"installment_part"`
	AmountCents          int64          `json:"amount_cents"`
	Currency             string         `json:"currency"`
	Status               string         `json:"status"`
	ProviderSessionRef   *string        `json:"provider_session_ref,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

// CheckoutResponse represents the outcome of a checkout request.
type CheckoutResponse struct {
	Attempt      *AttemptResponse `json:"attempt,omitempty"`
	Action       string           `json:"action"`
	RedirectURL  string           `json:"redirect_url,omitempty"`
	Instructions string           `json:"instructions,omitempty"`
	MissingField string           `json:"missing_field,omitempty"`
}

// PartStatusResponse represents one installment part's canonical status.
type PartStatusResponse struct {
	InstallmentPart    int              `json:"installment_part"`
	Status             string           `json:"status"`
	ActiveObligationID *string          `json:"active_obligation_id,omitempty"`
	WinningAttempt     *AttemptResponse `json:"winning_attempt,omitempty"`
}

// StatusResponse represents a lead's canonical payment status across parts.
type StatusResponse struct {
	LeadID string               `json:"lead_id"`
	Parts  []PartStatusResponse `json:"parts"`
}

// PollResponse represents the confirmation poller's view of a slot.
type PollResponse struct {
	State  string `json:"state"`
	Status string `json:"status,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

// --- Conversion helpers ---

// FromAttempt converts a domain attempt to API response.
func FromAttempt(a *attempt.Attempt) *AttemptResponse {
	if a == nil {
		return nil
	}
	resp := &AttemptResponse{
		ID:                 a.ID.String(),
		LeadID:             a.LeadID.String(),
		Method:             string(a.Method),
		InstallmentPart:    a.InstallmentPart,
		AmountCents:        a.Amount.ValueCents,
		Currency:           a.Amount.Currency,
		Status:             a.Status,
		ProviderSessionRef: a.ProviderSessionRef,
		Metadata:           a.Metadata,
		CreatedAt:          a.CreatedAt,
	}
	if a.ContractAcceptanceID != nil {
		id := a.ContractAcceptanceID.String()
		resp.ContractAcceptanceID = &id
	}
	return resp
}

// FromCheckout converts a use-case response to API response.
func FromCheckout(r *checkout.CreateAttemptResponse) *CheckoutResponse {
	return &CheckoutResponse{
		Attempt:      FromAttempt(r.Attempt),
		Action:       string(r.Action.Type),
		RedirectURL:  r.Action.RedirectURL,
		Instructions: r.Action.Instructions,
		MissingField: r.Action.MissingField,
	}
}

// FromPartStatus converts one part's resolution to API response.
func FromPartStatus(part int, res status.Result) PartStatusResponse {
	out := PartStatusResponse{
		InstallmentPart: part,
		Status:          string(res.Resolution.Status),
		WinningAttempt:  FromAttempt(res.Resolution.Attempt),
	}
	if res.ActiveObligationID != uuid.Nil {
		id := res.ActiveObligationID.String()
		out.ActiveObligationID = &id
	}
	return out
}

// FromPoll converts a poller state plus optional resolution to API response.
func FromPoll(state confirm.State, res *ledger.Resolution) *PollResponse {
	out := &PollResponse{State: string(state)}
	if res != nil {
		out.Status = string(res.Status)
	}
	return out
}
