package ledger_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/cassiomorais/leadpay/internal/domain/ledger"
)

func newAttempt(t *testing.T, acceptanceID *uuid.UUID, part int, status string, age time.Duration) *attempt.Attempt {
	t.Helper()
	a, err := attempt.New(uuid.New(), acceptanceID, attempt.MethodStripeCard, part,
		attempt.Amount{ValueCents: 199900, Currency: "USD"}, status)
	require.NoError(t, err)
	a.CreatedAt = time.Now().Add(-age)
	return a
}

func TestClassify(t *testing.T) {
	completed := []string{"completed", "paid", "zelle_confirmed", "redirected_to_infinitepay"}
	for _, s := range completed {
		assert.Equal(t, ledger.ClassCompleted, ledger.Classify(s), s)
	}

	pending := []string{"pending", "redirected_to_zelle", "processing", "succeeded", "PAID", ""}
	for _, s := range pending {
		assert.Equal(t, ledger.ClassPending, ledger.Classify(s), s)
	}
}

func TestResolve_Empty(t *testing.T) {
	res := ledger.Resolve(nil, uuid.New(), 1)
	assert.Equal(t, ledger.StatusUnpaid, res.Status)
	assert.Nil(t, res.Attempt)
}

func TestResolve_CompletedOutranksPending(t *testing.T) {
	obligation := uuid.New()
	older := newAttempt(t, &obligation, 1, "completed", 2*time.Hour)
	recent := newAttempt(t, &obligation, 1, "pending", time.Minute)

	res := ledger.Resolve([]*attempt.Attempt{recent, older}, obligation, 1)
	assert.Equal(t, ledger.StatusPaid, res.Status)
	require.NotNil(t, res.Attempt)
	assert.Equal(t, older.ID, res.Attempt.ID)
}

func TestResolve_PendingForActiveObligation(t *testing.T) {
	obligation := uuid.New()
	a := newAttempt(t, &obligation, 1, "pending", time.Minute)

	res := ledger.Resolve([]*attempt.Attempt{a}, obligation, 1)
	assert.Equal(t, ledger.StatusPendingConfirmation, res.Status)
	require.NotNil(t, res.Attempt)
	assert.Equal(t, a.ID, res.Attempt.ID)
}

func TestResolve_PendingForOtherObligationIgnored(t *testing.T) {
	obligation := uuid.New()
	other := uuid.New()
	a := newAttempt(t, &other, 1, "pending", time.Minute)

	res := ledger.Resolve([]*attempt.Attempt{a}, obligation, 1)
	assert.Equal(t, ledger.StatusUnpaid, res.Status)
}

func TestResolve_UnlinkedPendingCounts(t *testing.T) {
	a := newAttempt(t, nil, 1, "redirected_to_zelle", time.Minute)

	res := ledger.Resolve([]*attempt.Attempt{a}, uuid.New(), 1)
	assert.Equal(t, ledger.StatusPendingConfirmation, res.Status)
}

func TestResolve_CompletedSurvivesReacceptance(t *testing.T) {
	oldObligation := uuid.New()
	newObligation := uuid.New()
	paid := newAttempt(t, &oldObligation, 1, "paid", 48*time.Hour)

	res := ledger.Resolve([]*attempt.Attempt{paid}, newObligation, 1)
	assert.Equal(t, ledger.StatusPaid, res.Status)
	require.NotNil(t, res.Attempt)
	assert.Equal(t, paid.ID, res.Attempt.ID)
}

func TestResolve_ActiveCompletedPreferred(t *testing.T) {
	obligation := uuid.New()
	other := uuid.New()
	// The foreign completed attempt is more recent but the active obligation's
	// own completed attempt still wins.
	foreign := newAttempt(t, &other, 1, "completed", time.Minute)
	own := newAttempt(t, &obligation, 1, "completed", time.Hour)

	res := ledger.Resolve([]*attempt.Attempt{foreign, own}, obligation, 1)
	assert.Equal(t, ledger.StatusPaid, res.Status)
	require.NotNil(t, res.Attempt)
	assert.Equal(t, own.ID, res.Attempt.ID)
}

func TestResolve_PartIsolation(t *testing.T) {
	obligation := uuid.New()
	paidPart1 := newAttempt(t, &obligation, 1, "completed", time.Hour)

	res := ledger.Resolve([]*attempt.Attempt{paidPart1}, obligation, 2)
	assert.Equal(t, ledger.StatusUnpaid, res.Status)
}

func TestResolve_FailClosedOnUnknownStatus(t *testing.T) {
	obligation := uuid.New()
	a := newAttempt(t, &obligation, 1, "definitely_settled", time.Minute)

	res := ledger.Resolve([]*attempt.Attempt{a}, obligation, 1)
	assert.Equal(t, ledger.StatusPendingConfirmation, res.Status)
}

func TestResolve_OrderIndependent(t *testing.T) {
	obligation := uuid.New()
	attempts := []*attempt.Attempt{
		newAttempt(t, &obligation, 1, "pending", 5*time.Hour),
		newAttempt(t, &obligation, 1, "completed", 3*time.Hour),
		newAttempt(t, nil, 1, "redirected_to_zelle", 2*time.Hour),
		newAttempt(t, &obligation, 1, "failed", time.Hour),
		newAttempt(t, &obligation, 2, "pending", time.Minute),
	}

	baseline := ledger.Resolve(attempts, obligation, 1)
	require.Equal(t, ledger.StatusPaid, baseline.Status)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := make([]*attempt.Attempt, len(attempts))
		copy(shuffled, attempts)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})

		res := ledger.Resolve(shuffled, obligation, 1)
		assert.Equal(t, baseline.Status, res.Status)
		require.NotNil(t, res.Attempt)
		assert.Equal(t, baseline.Attempt.ID, res.Attempt.ID)
	}
}

func TestResolve_TimestampTieDeterministic(t *testing.T) {
	obligation := uuid.New()
	ts := time.Now()
	a := newAttempt(t, &obligation, 1, "completed", 0)
	b := newAttempt(t, &obligation, 1, "completed", 0)
	a.CreatedAt = ts
	b.CreatedAt = ts

	first := ledger.Resolve([]*attempt.Attempt{a, b}, obligation, 1)
	second := ledger.Resolve([]*attempt.Attempt{b, a}, obligation, 1)
	require.NotNil(t, first.Attempt)
	require.NotNil(t, second.Attempt)
	assert.Equal(t, first.Attempt.ID, second.Attempt.ID)
}
