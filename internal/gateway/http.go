package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	domainErrors "github.com/cassiomorais/leadpay/internal/domain/errors"
)

// HTTPGateway talks to a provider's session API over HTTP. Stripe card,
// Stripe PIX and Parcelow all expose the same create/query shape behind
// different base URLs and credentials.
type HTTPGateway struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGateway creates a gateway client for one provider.
func NewHTTPGateway(name, baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) Name() string { return g.name }

type sessionRequest struct {
	Reference   string         `json:"reference"`
	AmountCents int64          `json:"amount_cents"`
	Currency    string         `json:"currency"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type sessionResponse struct {
	SessionRef  string `json:"session_ref"`
	RedirectURL string `json:"redirect_url"`
	Status      string `json:"status"`
}

// CreateSession opens a checkout session with the provider.
func (g *HTTPGateway) CreateSession(ctx context.Context, req CreateRequest) (*Result, error) {
	if g.apiKey == "" {
		return nil, domainErrors.ErrGatewayNotConfigured
	}

	body, err := json.Marshal(sessionRequest{
		Reference:   req.AttemptID,
		AmountCents: req.Amount.ValueCents,
		Currency:    req.Amount.Currency,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	var resp sessionResponse
	if err := g.do(ctx, http.MethodPost, "/v1/sessions", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &Result{SessionRef: resp.SessionRef, RedirectURL: resp.RedirectURL, NativeStatus: resp.Status}, nil
}

// QueryStatus fetches the native status of an existing session.
func (g *HTTPGateway) QueryStatus(ctx context.Context, sessionRef string) (*Result, error) {
	if g.apiKey == "" {
		return nil, domainErrors.ErrGatewayNotConfigured
	}

	var resp sessionResponse
	if err := g.do(ctx, http.MethodGet, "/v1/sessions/"+sessionRef, nil, &resp); err != nil {
		return nil, err
	}
	return &Result{SessionRef: sessionRef, NativeStatus: resp.Status}, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body *bytes.Reader, out any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, g.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", g.name, domainErrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s: %w: status %d", g.name, domainErrors.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return domainErrors.ErrAttemptNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s: %w: status %d", g.name, domainErrors.ErrGatewayRejected, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", g.name, err)
	}
	return nil
}
