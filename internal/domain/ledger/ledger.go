package ledger

import (
	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/google/uuid"
)

// CanonicalStatus is the single authoritative view of one (lead, installment
// part), derived fresh from the attempt history on every read. It is never
// persisted, so it cannot drift from the underlying attempts.
type CanonicalStatus string

const (
	StatusUnpaid              CanonicalStatus = "unpaid"
	StatusPendingConfirmation CanonicalStatus = "pending_confirmation"
	StatusPaid                CanonicalStatus = "paid"
)

// Classification buckets a provider-native status string.
type Classification int

const (
	ClassPending Classification = iota
	ClassCompleted
)

// completedStatuses is the closed list of native strings that mean money
// arrived. redirected_to_infinitepay is a legacy terminal status carried over
// from an earlier gateway integration.
var completedStatuses = map[string]struct{}{
	attempt.StatusCompleted:      {},
	attempt.StatusPaid:           {},
	attempt.StatusZelleConfirmed: {},
	"redirected_to_infinitepay":  {},
}

// Classify maps a native status to Completed or Pending. Unknown strings
// classify as Pending: a status we have never seen must not be treated as
// paid.
func Classify(status string) Classification {
	if _, ok := completedStatuses[status]; ok {
		return ClassCompleted
	}
	return ClassPending
}

// Resolution is the outcome of merging an attempt history.
type Resolution struct {
	Status CanonicalStatus
	// Attempt is the winning attempt, nil when Status is Unpaid.
	Attempt *attempt.Attempt
}

// Resolve merges all attempts for one lead into the canonical status of one
// installment part. activeObligationID is the lead's current contract
// acceptance, or uuid.Nil when none exists.
//
// The function is pure and order-independent: shuffling the input never
// changes the result. A Completed attempt always outranks any Pending
// attempt, irrespective of recency.
func Resolve(attempts []*attempt.Attempt, activeObligationID uuid.UUID, installmentPart int) Resolution {
	var completedActive, completedAny, pendingEligible *attempt.Attempt

	for _, a := range attempts {
		if a == nil || a.InstallmentPart != installmentPart {
			continue
		}

		switch Classify(a.Status) {
		case ClassCompleted:
			if activeObligationID != uuid.Nil && a.MatchesObligation(activeObligationID) {
				completedActive = newer(completedActive, a)
			}
			completedAny = newer(completedAny, a)
		case ClassPending:
			// Unlinked attempts are legacy/manual rows that predate the
			// obligation link and still count toward the active one.
			if a.Unlinked() || (activeObligationID != uuid.Nil && a.MatchesObligation(activeObligationID)) {
				pendingEligible = newer(pendingEligible, a)
			}
		}
	}

	// Prefer a completed attempt for the active obligation; otherwise fall
	// back to the most recent completed attempt regardless of obligation (a
	// re-acceptance after payment must still show as paid).
	if completedActive != nil {
		return Resolution{Status: StatusPaid, Attempt: completedActive}
	}
	if completedAny != nil {
		return Resolution{Status: StatusPaid, Attempt: completedAny}
	}
	if pendingEligible != nil {
		return Resolution{Status: StatusPendingConfirmation, Attempt: pendingEligible}
	}
	return Resolution{Status: StatusUnpaid}
}

// newer picks the more recent of two attempts, breaking exact timestamp ties
// by ID so the choice stays deterministic under input shuffling.
func newer(cur, cand *attempt.Attempt) *attempt.Attempt {
	if cur == nil {
		return cand
	}
	if cand.CreatedAt.After(cur.CreatedAt) {
		return cand
	}
	if cand.CreatedAt.Equal(cur.CreatedAt) && cand.ID.String() > cur.ID.String() {
		return cand
	}
	return cur
}
