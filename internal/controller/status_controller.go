package controller

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cassiomorais/leadpay/internal/application/status"
	"github.com/cassiomorais/leadpay/internal/confirm"
	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/cassiomorais/leadpay/internal/domain/tracker"
)

// StatusController serves the canonical payment status and the
// confirmation-page poll.
type StatusController struct {
	resolveStatus *status.ResolveStatusUseCase
	pollers       *confirm.Registry
}

// NewStatusController creates a new StatusController.
func NewStatusController(resolveStatus *status.ResolveStatusUseCase, pollers *confirm.Registry) *StatusController {
	return &StatusController{resolveStatus: resolveStatus, pollers: pollers}
}

// GetStatus handles GET /api/v1/leads/{id}/status
func (h *StatusController) GetStatus(w http.ResponseWriter, r *http.Request) {
	leadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid lead id", Code: "invalid_id"})
		return
	}

	summary, err := h.resolveStatus.Summary(r.Context(), leadID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := StatusResponse{LeadID: leadID.String()}
	for _, part := range []int{1, 2} {
		resp.Parts = append(resp.Parts, FromPartStatus(part, summary[part]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Poll handles GET /api/v1/leads/{id}/poll. Each call re-enters the slot's
// poller: with no live tracker it answers idle (show method selection),
// otherwise it reports the confirmation poll's current state.
func (h *StatusController) Poll(w http.ResponseWriter, r *http.Request) {
	leadID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid lead id", Code: "invalid_id"})
		return
	}

	ctxID := contextID(r)
	if ctxID == "" {
		writeError(w, domainErrors.NewValidationError("X-Context-ID", "browsing context id is required"))
		return
	}

	obligationID, err := uuid.Parse(r.URL.Query().Get("obligation_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid obligation_id", Code: "invalid_id"})
		return
	}

	part, err := strconv.Atoi(r.URL.Query().Get("part"))
	if err != nil || (part != 1 && part != 2) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid installment part", Code: "invalid_installment"})
		return
	}

	key := tracker.Key{
		ContextID:            ctxID,
		LeadID:               leadID,
		ContractAcceptanceID: obligationID,
		InstallmentPart:      part,
	}

	state, err := h.pollers.Enter(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.resolveStatus.Resolve(r.Context(), leadID, part)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromPoll(state, &res))
}
