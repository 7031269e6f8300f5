package data

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/contactkeval/option-greeks/internal/pricing"
)

// SyntheticSpec shapes a generated quote surface.
type SyntheticSpec struct {
	Underlying string
	Spot       float64
	Rate       float64
	Dividend   float64
	BaseVol    float64   // at-the-money volatility
	Skew       float64   // volatility change per unit log-moneyness ln(K/S)
	Noise      float64   // standard deviation of the per-quote volatility jitter
	Deltas     []float64 // call deltas at which strikes are placed
	Expiries   []float64 // in years
	StrikeStep float64
	AsOf       time.Time // anchors expiry dates in symbols
	Seed       int64
}

// synthDataProvider generates a call and a put per (expiry, delta) node.
// Each quote carries both the volatility it was priced with and the
// resulting market price, so implied volatility can be checked against it.
type synthDataProvider struct {
	spec SyntheticSpec
}

func NewSyntheticProvider(spec SyntheticSpec) Provider {
	return &synthDataProvider{spec: spec}
}

// Secondary is nil: generation cannot fail over to anything.
func (p *synthDataProvider) Secondary() Provider {
	return nil
}

func (p *synthDataProvider) Quotes(ctx context.Context) ([]Quote, error) {
	s := p.spec
	if s.AsOf.IsZero() {
		s.AsOf = time.Now()
	}
	rng := rand.New(rand.NewSource(s.Seed))

	var out []Quote
	for _, expiry := range s.Expiries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		expiryDate := s.AsOf.Add(time.Duration(expiry * 365 * 24 * float64(time.Hour)))

		for _, delta := range s.Deltas {
			strike, err := strikeForDelta(s, expiry, delta)
			if err != nil {
				return nil, err
			}
			vol := s.BaseVol + s.Skew*math.Log(strike/s.Spot) + s.Noise*rng.NormFloat64()
			vol = math.Max(vol, 0.01)

			for _, kind := range []pricing.Kind{pricing.Call, pricing.Put} {
				params := pricing.OptionParameters{
					Spot: s.Spot, Strike: strike, Expiry: expiry,
					Rate: s.Rate, Dividend: s.Dividend, Volatility: vol, Kind: kind,
				}
				price, err := pricing.Price(params)
				if err != nil {
					return nil, fmt.Errorf("synthetic quote K=%g T=%g: %w", strike, expiry, err)
				}
				out = append(out, Quote{
					Symbol:      OptionSymbol(s.Underlying, expiryDate, kind, strike),
					Kind:        kind.String(),
					Spot:        s.Spot,
					Strike:      strike,
					Expiry:      expiry,
					Rate:        s.Rate,
					Dividend:    s.Dividend,
					Volatility:  vol,
					MarketPrice: price,
				})
			}
		}
	}
	return out, nil
}

// strikeForDelta inverts the call delta e^{-qT}·Φ(d1) at the ATM volatility:
//
//	d1 = Φ⁻¹(Δ·e^{qT})
//	K  = S·exp((r - q + σ²/2)·T - d1·σ·√T)
func strikeForDelta(s SyntheticSpec, expiry, delta float64) (float64, error) {
	d1, err := pricing.NormInv(delta * math.Exp(s.Dividend*expiry))
	if err != nil {
		return 0, fmt.Errorf("delta %g: %w", delta, err)
	}
	sig := s.BaseVol
	k := s.Spot * math.Exp((s.Rate-s.Dividend+0.5*sig*sig)*expiry-d1*sig*math.Sqrt(expiry))
	if k = RoundToStrike(k, s.StrikeStep); k <= 0 {
		k = s.StrikeStep
	}
	return k, nil
}
