package pricing

import (
	"math"

	"github.com/cassiomorais/leadpay/internal/domain/attempt"
	"github.com/cassiomorais/leadpay/internal/domain/errors"
)

// Config holds the fee schedule. All percentages are fractions (0.04 = 4%).
type Config struct {
	CardFeePct        float64
	CardFeeFixedCents int64
	// FXMargin pads the quoted rate to absorb drift between quote time and
	// settlement time.
	FXMargin float64
	// PixFeePct is the sum of the PIX provider's processing and
	// currency-conversion fee percentages.
	PixFeePct float64
}

// RateSource distinguishes a live-quoted FX rate from the configured
// fallback constant.
type RateSource string

const (
	SourceLive     RateSource = "live"
	SourceFallback RateSource = "fallback"
)

// FXQuote carries a quoted rate plus the margin-adjusted rate actually used
// for pricing. The adjusted rate is echoed back to the orchestrator so the
// identical gross amount is requested at checkout-creation time; nothing
// re-quotes silently.
type FXQuote struct {
	Base           string
	Quote          string
	Rate           float64
	RateWithMargin float64
	Source         RateSource
}

// NewFXQuote builds a quote from a raw rate, applying the margin once.
func NewFXQuote(base, quote string, rate, margin float64, source RateSource) FXQuote {
	return FXQuote{
		Base:           base,
		Quote:          quote,
		Rate:           rate,
		RateWithMargin: rate * (1 + margin),
		Source:         source,
	}
}

// QuoteCard converts a net USD amount into the card gross:
// gross = net*(1+cardFeePct) + cardFeeFixed.
func QuoteCard(cfg Config, netCents int64) attempt.Amount {
	grossCents := decimalToCents(round2(centsToDecimal(netCents)*(1+cfg.CardFeePct))) + cfg.CardFeeFixedCents
	return attempt.Amount{ValueCents: grossCents, Currency: "USD"}
}

// QuotePix converts a net USD amount into the BRL gross settled over PIX:
// grossBRL = round2(net * rateWithMargin / (1 - pixFeePct)).
// Rounding happens exactly once, on the final value.
func QuotePix(cfg Config, netCents int64, fx FXQuote) attempt.Amount {
	gross := round2(centsToDecimal(netCents) * fx.RateWithMargin / (1 - cfg.PixFeePct))
	return attempt.Amount{ValueCents: decimalToCents(gross), Currency: "BRL"}
}

// QuotePassthrough returns the net amount unchanged. Zelle and Parcelow
// quotes carry no fee pass-through.
func QuotePassthrough(netCents int64) attempt.Amount {
	return attempt.Amount{ValueCents: netCents, Currency: "USD"}
}

// Quote computes the gross amount for a method. fx is required for PIX and
// ignored otherwise. The function is pure: identical inputs always yield an
// identical result.
func Quote(cfg Config, method attempt.Method, netCents int64, fx *FXQuote) (attempt.Amount, error) {
	if netCents <= 0 {
		return attempt.Amount{}, errors.ErrInvalidAmount
	}

	switch method {
	case attempt.MethodStripeCard:
		return QuoteCard(cfg, netCents), nil
	case attempt.MethodStripePix:
		if fx == nil {
			return attempt.Amount{}, errors.ErrFXRateUnavailable
		}
		return QuotePix(cfg, netCents, *fx), nil
	case attempt.MethodZelle, attempt.MethodParcelow:
		return QuotePassthrough(netCents), nil
	default:
		return attempt.Amount{}, errors.ErrInvalidMethod
	}
}

func centsToDecimal(cents int64) float64 {
	return float64(cents) / 100
}

func decimalToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// round2 rounds half away from zero to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
