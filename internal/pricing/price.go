package pricing

import (
	"fmt"
	"math"
)

// Price calculates the Black-Scholes-Merton value of a European option.
//
//	d1 = (ln(S/K) + (r - q + σ²/2)·T) / (σ·√T)
//	d2 = d1 - σ·√T
//	call = S·e^(-qT)·Φ(d1) - K·e^(-rT)·Φ(d2)
//	put  = K·e^(-rT)·Φ(-d2) - S·e^(-qT)·Φ(-d1)
//
// S, K, T and sigma must be strictly positive; there is no intrinsic-value
// fallback for an expired or zero-volatility option.
func Price(p OptionParameters) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	d1, d2 := dTerms(p)
	spotDisc := p.Spot * math.Exp(-p.Dividend*p.Expiry)
	strikeDisc := p.Strike * math.Exp(-p.Rate*p.Expiry)

	var price float64
	if p.Kind == Call {
		price = spotDisc*NormCDF(d1) - strikeDisc*NormCDF(d2)
	} else {
		price = strikeDisc*NormCDF(-d2) - spotDisc*NormCDF(-d1)
	}

	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: price is not finite for %+v", ErrInvalidParameter, p)
	}
	return price, nil
}

// dTerms returns d1 and d2 for validated parameters.
func dTerms(p OptionParameters) (d1, d2 float64) {
	volSqrtT := p.Volatility * math.Sqrt(p.Expiry)
	d1 = (math.Log(p.Spot/p.Strike) + (p.Rate-p.Dividend+0.5*p.Volatility*p.Volatility)*p.Expiry) / volSqrtT
	d2 = d1 - volSqrtT
	return d1, d2
}

// priceBounds returns the open no-arbitrage interval a model price must lie
// in for some positive volatility.
func priceBounds(p OptionParameters) (lower, upper float64) {
	spotDisc := p.Spot * math.Exp(-p.Dividend*p.Expiry)
	strikeDisc := p.Strike * math.Exp(-p.Rate*p.Expiry)
	if p.Kind == Put {
		return math.Max(strikeDisc-spotDisc, 0), strikeDisc
	}
	return math.Max(spotDisc-strikeDisc, 0), spotDisc
}
