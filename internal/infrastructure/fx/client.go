package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cassiomorais/leadpay/internal/domain/pricing"
	"github.com/cassiomorais/leadpay/pkg/retry"
	"github.com/rs/zerolog"
)

// Client fetches live FX rates over HTTP. When the source is unreachable a
// configured fallback constant is used instead, and the quote is marked so
// logs and attempt metadata can tell the two apart.
type Client struct {
	baseURL      string
	fallbackRate float64
	margin       float64
	httpClient   *http.Client
	retryPolicy  retry.Policy
	logger       zerolog.Logger
}

// NewClient creates an FX client.
func NewClient(baseURL string, fallbackRate, margin float64, retryPolicy retry.Policy, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:      baseURL,
		fallbackRate: fallbackRate,
		margin:       margin,
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		retryPolicy:  retryPolicy,
		logger:       logger,
	}
}

type rateResponse struct {
	Rate float64 `json:"rate"`
}

// GetRate returns a margin-adjusted FX quote for base→quote. Live quotes are
// retried per the client's policy; after that the fallback constant steps in.
func (c *Client) GetRate(ctx context.Context, base, quote string) (pricing.FXQuote, error) {
	rate, err := retry.DoWithResult(ctx, c.retryPolicy, func() (float64, error) {
		return c.fetchRate(ctx, base, quote)
	})
	if err != nil {
		c.logger.Warn().Err(err).
			Str("base", base).
			Str("quote", quote).
			Float64("fallback_rate", c.fallbackRate).
			Msg("FX source unavailable, using fallback rate")
		return pricing.NewFXQuote(base, quote, c.fallbackRate, c.margin, pricing.SourceFallback), nil
	}

	return pricing.NewFXQuote(base, quote, rate, c.margin, pricing.SourceLive), nil
}

func (c *Client) fetchRate(ctx context.Context, base, quote string) (float64, error) {
	url := fmt.Sprintf("%s/v1/rates?base=%s&quote=%s", c.baseURL, base, quote)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build fx request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch fx rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fx source returned status %d", resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode fx response: %w", err)
	}
	if body.Rate <= 0 {
		return 0, fmt.Errorf("fx source returned non-positive rate %f", body.Rate)
	}
	return body.Rate, nil
}
