package attempt

import (
	"fmt"
	"time"

	"github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/google/uuid"
)

// Method represents the payment method / provider used for an attempt
type Method string

const (
	MethodStripeCard Method = "stripe_card"
	MethodStripePix  Method = "stripe_pix"
	MethodZelle      Method = "zelle"
	MethodParcelow   Method = "parcelow"
)

// ValidMethod reports whether m is a known payment method.
func ValidMethod(m Method) bool {
	switch m {
	case MethodStripeCard, MethodStripePix, MethodZelle, MethodParcelow:
		return true
	}
	return false
}

// IsRedirect reports whether the method hands the browsing context to the
// provider and confirms asynchronously on return.
func (m Method) IsRedirect() bool {
	return m != MethodZelle
}

// Native status strings as written by gateways and by the manual flow.
// The set is open: webhooks may record strings this package has never seen,
// and the ledger classifies those fail-closed.
const (
	StatusPending           = "pending"
	StatusCompleted         = "completed"
	StatusPaid              = "paid"
	StatusZelleConfirmed    = "zelle_confirmed"
	StatusRedirectedToZelle = "redirected_to_zelle"
)

// Amount represents a monetary amount in the smallest currency unit (e.g. cents).
type Amount struct {
	ValueCents int64
	Currency   string
}

// String returns a human-readable representation of the amount.
func (a Amount) String() string {
	whole := a.ValueCents / 100
	frac := a.ValueCents % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d %s", whole, frac, a.Currency)
}

// Validate checks that the amount is valid.
func (a Amount) Validate() error {
	if a.ValueCents <= 0 {
		return errors.NewValidationError("amount", "must be greater than 0")
	}
	if a.Currency == "" {
		return errors.NewValidationError("currency", "cannot be empty")
	}
	if len(a.Currency) != 3 {
		return errors.NewValidationError("currency", "must be a 3-letter ISO code")
	}
	return nil
}

// Attempt represents one recorded try, via one method, to pay toward one
// obligation. Attempts are append-only: duplicates for the same
// (lead, obligation, part) are expected and resolved at read time, never
// prevented at write time.
type Attempt struct {
	ID     uuid.UUID
	LeadID uuid.UUID
	// ContractAcceptanceID is nil for manual or legacy attempts recorded
	// before an obligation existed.
	ContractAcceptanceID *uuid.UUID
	Method               Method
	InstallmentPart      int
	Amount               Amount
	// Status is the provider-native string. Mutated only by the provider's
	// out-of-band confirmation channel; never interpreted here beyond storage.
	Status             string
	ProviderSessionRef *string
	Metadata           map[string]any
	CreatedAt          time.Time
}

// New creates a new attempt in its initial native status.
func New(
	leadID uuid.UUID,
	acceptanceID *uuid.UUID,
	method Method,
	installmentPart int,
	amount Amount,
	status string,
) (*Attempt, error) {
	if !ValidMethod(method) {
		return nil, errors.ErrInvalidMethod
	}
	if installmentPart != 1 && installmentPart != 2 {
		return nil, errors.ErrInvalidInstallment
	}
	if err := amount.Validate(); err != nil {
		return nil, err
	}
	if status == "" {
		status = StatusPending
	}

	return &Attempt{
		ID:                   uuid.New(),
		LeadID:               leadID,
		ContractAcceptanceID: acceptanceID,
		Method:               method,
		InstallmentPart:      installmentPart,
		Amount:               amount,
		Status:               status,
		Metadata:             make(map[string]any),
		CreatedAt:            time.Now(),
	}, nil
}

// SetSessionRef attaches the provider session reference.
func (a *Attempt) SetSessionRef(ref string) {
	a.ProviderSessionRef = &ref
}

// MatchesObligation reports whether the attempt is linked to the given
// acceptance. A nil link never matches.
func (a *Attempt) MatchesObligation(acceptanceID uuid.UUID) bool {
	return a.ContractAcceptanceID != nil && *a.ContractAcceptanceID == acceptanceID
}

// Unlinked reports whether the attempt predates any obligation link.
func (a *Attempt) Unlinked() bool {
	return a.ContractAcceptanceID == nil
}
