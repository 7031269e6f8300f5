// Package data supplies option quotes to the batch engine.
//
// Providers can be chained: when a provider cannot serve a request it
// delegates to its Secondary, mirroring how a local file source falls back to
// a generated one.
package data

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/contactkeval/option-greeks/internal/pricing"
)

// Provider supplies option quotes.
type Provider interface {
	Secondary() Provider
	Quotes(ctx context.Context) ([]Quote, error)
}

// Quote is one option to evaluate. Volatility and MarketPrice are optional
// (zero means absent): a quote with a volatility is priced, a quote with a
// market price is inverted for implied volatility.
type Quote struct {
	Symbol      string  `csv:"symbol" json:"symbol"`
	Kind        string  `csv:"kind" json:"kind"` // "call" or "put"; empty uses the configured default
	Spot        float64 `csv:"spot" json:"spot"`
	Strike      float64 `csv:"strike" json:"strike"`
	Expiry      float64 `csv:"expiry_years" json:"expiry_years"`
	Rate        float64 `csv:"rate" json:"rate"`
	Dividend    float64 `csv:"dividend" json:"dividend"`
	Volatility  float64 `csv:"volatility" json:"volatility,omitempty"`
	MarketPrice float64 `csv:"market_price" json:"market_price,omitempty"`
}

// Params converts the quote into pricing inputs; defaultKind applies when the
// quote leaves Kind empty.
func (q Quote) Params(defaultKind pricing.Kind) (pricing.OptionParameters, error) {
	kind := defaultKind
	if strings.TrimSpace(q.Kind) != "" {
		k, err := pricing.ParseKind(q.Kind)
		if err != nil {
			return pricing.OptionParameters{}, err
		}
		kind = k
	}
	return pricing.OptionParameters{
		Spot:       q.Spot,
		Strike:     q.Strike,
		Expiry:     q.Expiry,
		Rate:       q.Rate,
		Volatility: q.Volatility,
		Dividend:   q.Dividend,
		Kind:       kind,
	}, nil
}

// OptionSymbol formats an OCC-like symbol:
// <root><YYMMDD><C|P><strike*1000 padded to 8 digits>.
func OptionSymbol(underlying string, expiryDate time.Time, kind pricing.Kind, strike float64) string {
	expDt := expiryDate.UTC().Format("060102")
	optType := "C"
	if kind == pricing.Put {
		optType = "P"
	}
	strikeInt := int(math.Round(strike * 1000))
	return fmt.Sprintf("O:%s%s%s%08d", strings.ToUpper(underlying), expDt, optType, strikeInt)
}

// RoundToStrike rounds v to the nearest multiple of step; a non-positive step
// leaves v unchanged.
func RoundToStrike(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}
