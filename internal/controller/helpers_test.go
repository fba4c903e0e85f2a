package controller

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		payload      any
		expectedBody string
	}{
		{
			name:         "simple map",
			status:       http.StatusOK,
			payload:      map[string]string{"message": "hello"},
			expectedBody: `{"message":"hello"}`,
		},
		{
			name:         "struct",
			status:       http.StatusCreated,
			payload:      struct{ ID string }{ID: "123"},
			expectedBody: `{"ID":"123"}`,
		},
		{
			name:         "error response",
			status:       http.StatusBadRequest,
			payload:      ErrorResponse{Error: "bad request", Code: "invalid_input"},
			expectedBody: `{"error":"bad request","code":"invalid_input"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeJSON(w, tt.status, tt.payload)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestWriteError_ValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainErrors.NewValidationError("email", "must be valid email")

	writeError(w, err)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	json.NewDecoder(w.Body).Decode(&response)
	assert.Equal(t, "validation_error", response.Code)
	assert.Equal(t, "email", response.Field)
}

func TestWriteError_MissingFieldError(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainErrors.NewMissingFieldError("tax_id", "parcelow")

	writeError(w, err)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response ErrorResponse
	json.NewDecoder(w.Body).Decode(&response)
	assert.Equal(t, "missing_field", response.Code)
	assert.Equal(t, "tax_id", response.Field)
}

func TestWriteError_DomainErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "lead not found",
			err:            domainErrors.ErrLeadNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "obligation not found",
			err:            domainErrors.ErrObligationNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "invalid method",
			err:            domainErrors.ErrInvalidMethod,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_method",
		},
		{
			name:           "invalid installment",
			err:            domainErrors.ErrInvalidInstallment,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_installment",
		},
		{
			name:           "gateway not configured",
			err:            domainErrors.ErrGatewayNotConfigured,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "gateway_not_configured",
		},
		{
			name:           "gateway unavailable",
			err:            domainErrors.ErrGatewayUnavailable,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "gateway_unavailable",
		},
		{
			name:           "gateway rejected",
			err:            domainErrors.ErrGatewayRejected,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "gateway_rejected",
		},
		{
			name:           "fx unavailable",
			err:            domainErrors.ErrFXRateUnavailable,
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "fx_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response ErrorResponse
			err := json.NewDecoder(w.Body).Decode(&response)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedCode, response.Code)
		})
	}
}

func TestWriteError_GenericDomainError(t *testing.T) {
	w := httptest.NewRecorder()
	err := domainErrors.NewDomainError("custom_error", "custom error message", nil)

	writeError(w, err)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response ErrorResponse
	json.NewDecoder(w.Body).Decode(&response)
	assert.Equal(t, "custom_error", response.Code)
	assert.Equal(t, "custom error message", response.Error)
}

func TestWriteError_UnknownError_FallbackToInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	err := errors.New("unexpected error")

	writeError(w, err)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response ErrorResponse
	json.NewDecoder(w.Body).Decode(&response)
	assert.Equal(t, "internal_error", response.Code)
	assert.Equal(t, "internal server error", response.Error)
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"lead_id":"4fa0e315-7a2b-4a9e-b54a-82d2b6f1a6a1","obligation_id":"b3e9b7a0-07cf-4c27-a5cd-1f0ffdfd5e6a","method":"stripe_card","installment_part":1}`
	req := httptest.NewRequest("POST", "/api/v1/checkout", strings.NewReader(body))

	var result CheckoutRequest
	err := decodeAndValidate(req, &result)

	require.NoError(t, err)
	assert.Equal(t, "stripe_card", result.Method)
	assert.Equal(t, 1, result.InstallmentPart)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/v1/checkout", bytes.NewReader([]byte("{not json")))

	var result CheckoutRequest
	err := decodeAndValidate(req, &result)

	var validationErr *domainErrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "body", validationErr.Field)
}

func TestDecodeAndValidate_ValidationFailure(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing lead_id", `{"obligation_id":"b3e9b7a0-07cf-4c27-a5cd-1f0ffdfd5e6a","method":"stripe_card","installment_part":1}`},
		{"bad method", `{"lead_id":"4fa0e315-7a2b-4a9e-b54a-82d2b6f1a6a1","obligation_id":"b3e9b7a0-07cf-4c27-a5cd-1f0ffdfd5e6a","method":"paypal","installment_part":1}`},
		{"bad part", `{"lead_id":"4fa0e315-7a2b-4a9e-b54a-82d2b6f1a6a1","obligation_id":"b3e9b7a0-07cf-4c27-a5cd-1f0ffdfd5e6a","method":"stripe_card","installment_part":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/checkout", strings.NewReader(tt.body))

			var result CheckoutRequest
			err := decodeAndValidate(req, &result)

			var validationErr *domainErrors.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}
}

func TestContextID(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.Empty(t, contextID(req))

	req.Header.Set("X-Context-ID", "ctx-123")
	assert.Equal(t, "ctx-123", contextID(req))

	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "checkout_context", Value: "ctx-cookie"})
	assert.Equal(t, "ctx-cookie", contextID(req))
}
