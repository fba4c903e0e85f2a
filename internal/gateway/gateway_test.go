package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/cassiomorais/leadpay/internal/gateway"
)

func TestFactory_Get_Unknown(t *testing.T) {
	f := gateway.NewFactory()
	_, _, err := f.Get(attempt.MethodStripeCard)
	assert.ErrorIs(t, err, domainErrors.ErrGatewayNotFound)
}

func TestFactory_Get_Registered(t *testing.T) {
	f := gateway.NewFactory()
	f.Register(attempt.MethodStripeCard, gateway.NewMockGateway("stripe_card", gateway.WithLatency(0)))

	gw, breaker, err := f.Get(attempt.MethodStripeCard)
	require.NoError(t, err)
	assert.Equal(t, "stripe_card", gw.Name())
	require.NotNil(t, breaker)
}

func TestMockFactory_CoversRedirectMethods(t *testing.T) {
	f := gateway.NewMockFactory()
	for _, m := range []attempt.Method{attempt.MethodStripeCard, attempt.MethodStripePix, attempt.MethodParcelow} {
		_, _, err := f.Get(m)
		assert.NoError(t, err, string(m))
	}
	_, _, err := f.Get(attempt.MethodZelle)
	assert.ErrorIs(t, err, domainErrors.ErrGatewayNotFound)
}

func TestMockGateway_SessionLifecycle(t *testing.T) {
	gw := gateway.NewMockGateway("stripe_card", gateway.WithLatency(0))

	res, err := gw.CreateSession(context.Background(), gateway.CreateRequest{
		AttemptID: "att-1",
		Method:    attempt.MethodStripeCard,
		Amount:    attempt.Amount{ValueCents: 207726, Currency: "USD"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.SessionRef)
	assert.NotEmpty(t, res.RedirectURL)
	assert.Equal(t, attempt.StatusPending, res.NativeStatus)

	status, err := gw.QueryStatus(context.Background(), res.SessionRef)
	require.NoError(t, err)
	assert.Equal(t, attempt.StatusPending, status.NativeStatus)

	gw.SetStatus(res.SessionRef, "completed")
	status, err = gw.QueryStatus(context.Background(), res.SessionRef)
	require.NoError(t, err)
	assert.Equal(t, "completed", status.NativeStatus)
}

func TestMockGateway_UnknownSession(t *testing.T) {
	gw := gateway.NewMockGateway("stripe_card", gateway.WithLatency(0))
	_, err := gw.QueryStatus(context.Background(), "no_such_session")
	assert.ErrorIs(t, err, domainErrors.ErrAttemptNotFound)
}

func TestMockGateway_AlwaysFails(t *testing.T) {
	gw := gateway.NewMockGateway("stripe_card", gateway.WithLatency(0), gateway.WithFailureRate(1.0))
	_, err := gw.CreateSession(context.Background(), gateway.CreateRequest{AttemptID: "att-1"})
	assert.ErrorIs(t, err, domainErrors.ErrGatewayRejected)
}

func TestHTTPGateway_CreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "att-1", body["reference"])
		assert.Equal(t, float64(207726), body["amount_cents"])

		json.NewEncoder(w).Encode(map[string]string{
			"session_ref":  "cs_1",
			"redirect_url": "https://pay.example/cs_1",
			"status":       "pending",
		})
	}))
	defer srv.Close()

	gw := gateway.NewHTTPGateway("stripe_card", srv.URL, "sk_test", time.Second)
	res, err := gw.CreateSession(context.Background(), gateway.CreateRequest{
		AttemptID: "att-1",
		Method:    attempt.MethodStripeCard,
		Amount:    attempt.Amount{ValueCents: 207726, Currency: "USD"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", res.SessionRef)
	assert.Equal(t, "https://pay.example/cs_1", res.RedirectURL)
}

func TestHTTPGateway_QueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sessions/cs_1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"session_ref": "cs_1", "status": "completed"})
	}))
	defer srv.Close()

	gw := gateway.NewHTTPGateway("stripe_card", srv.URL, "sk_test", time.Second)
	res, err := gw.QueryStatus(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "completed", res.NativeStatus)
}

func TestHTTPGateway_MissingAPIKey(t *testing.T) {
	gw := gateway.NewHTTPGateway("parcelow", "http://unused.invalid", "", time.Second)

	_, err := gw.CreateSession(context.Background(), gateway.CreateRequest{AttemptID: "att-1"})
	assert.ErrorIs(t, err, domainErrors.ErrGatewayNotConfigured)

	_, err = gw.QueryStatus(context.Background(), "cs_1")
	assert.ErrorIs(t, err, domainErrors.ErrGatewayNotConfigured)
}

func TestHTTPGateway_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"server error", http.StatusInternalServerError, domainErrors.ErrGatewayUnavailable},
		{"not found", http.StatusNotFound, domainErrors.ErrAttemptNotFound},
		{"rejected", http.StatusUnprocessableEntity, domainErrors.ErrGatewayRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			gw := gateway.NewHTTPGateway("stripe_card", srv.URL, "sk_test", time.Second)
			_, err := gw.QueryStatus(context.Background(), "cs_1")
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
