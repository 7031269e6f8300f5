package pricing

import (
	"errors"
	"math"
	"testing"
)

func scenario() OptionParameters {
	return OptionParameters{Spot: 100, Strike: 110, Expiry: 0.8, Rate: 0.05, Volatility: 0.2}
}

func mustPrice(t *testing.T, p OptionParameters) float64 {
	t.Helper()
	v, err := Price(p)
	if err != nil {
		t.Fatalf("Price(%+v): %v", p, err)
	}
	return v
}

// validGrid spans moneyness, maturity, rates (including negative), dividends
// and volatility.
func validGrid() []OptionParameters {
	var out []OptionParameters
	for _, s := range []float64{50, 100, 180} {
		for _, k := range []float64{60, 100, 150} {
			for _, tt := range []float64{0.05, 0.8, 3} {
				for _, r := range []float64{-0.01, 0, 0.05} {
					for _, q := range []float64{0, 0.03} {
						for _, sigma := range []float64{0.05, 0.2, 0.9} {
							out = append(out, OptionParameters{Spot: s, Strike: k, Expiry: tt, Rate: r, Dividend: q, Volatility: sigma})
						}
					}
				}
			}
		}
	}
	return out
}

func TestPriceReferenceScenario(t *testing.T) {
	call := mustPrice(t, scenario())
	if !almostEqual(call, 4.8327814092208, 1e-9) {
		t.Fatalf("call price=%v, want 4.8328", call)
	}
	if math.Round(call*100)/100 != 4.83 {
		t.Fatalf("call price rounds to %v, want 4.83", math.Round(call*100)/100)
	}

	p := scenario()
	p.Kind = Put
	if put := mustPrice(t, p); !almostEqual(put, 10.519619715976347, 1e-9) {
		t.Fatalf("put price=%v", put)
	}
}

// Classic textbook case: S=K=100, r=5%, sigma=20%, T=1.
func TestPriceTextbookCase(t *testing.T) {
	p := OptionParameters{Spot: 100, Strike: 100, Expiry: 1, Rate: 0.05, Volatility: 0.2}
	if call := mustPrice(t, p); !almostEqual(call, 10.450583572185565, 1e-9) {
		t.Fatalf("call=%v", call)
	}
	p.Kind = Put
	if put := mustPrice(t, p); !almostEqual(put, 5.573526022256971, 1e-9) {
		t.Fatalf("put=%v", put)
	}
}

func TestPutCallParity(t *testing.T) {
	for _, p := range validGrid() {
		p.Kind = Call
		call := mustPrice(t, p)
		p.Kind = Put
		put := mustPrice(t, p)

		lhs := call - put
		rhs := p.Spot*math.Exp(-p.Dividend*p.Expiry) - p.Strike*math.Exp(-p.Rate*p.Expiry)
		if !almostEqual(lhs, rhs, 1e-9) {
			t.Fatalf("put-call parity violated for %+v: LHS=%v RHS=%v", p, lhs, rhs)
		}
	}
}

func TestPriceIncreasesWithVolatility(t *testing.T) {
	for _, kind := range []Kind{Call, Put} {
		p := OptionParameters{Spot: 100, Strike: 95, Expiry: 0.5, Rate: 0.03, Dividend: 0.01, Kind: kind}
		prev := -1.0
		for sigma := 0.05; sigma <= 1.5; sigma += 0.05 {
			v := mustPrice(t, p.WithVolatility(sigma))
			if v <= prev {
				t.Fatalf("%v price not increasing at sigma=%v: %v <= %v", kind, sigma, v, prev)
			}
			prev = v
		}
	}
}

func TestPriceBounds(t *testing.T) {
	for _, p := range validGrid() {
		if p.Rate < 0 {
			continue // a put may exceed K when discounting grows the strike
		}
		p.Kind = Call
		if c := mustPrice(t, p); c < 0 || c > p.Spot {
			t.Fatalf("call %v outside [0, S] for %+v", c, p)
		}
		p.Kind = Put
		if v := mustPrice(t, p); v < 0 || v > p.Strike {
			t.Fatalf("put %v outside [0, K] for %+v", v, p)
		}
	}
}

func TestPriceApproachesIntrinsicAtExpiry(t *testing.T) {
	for _, k := range []float64{80, 100, 120} {
		p := OptionParameters{Spot: 100, Strike: k, Expiry: 1e-10, Rate: 0.05, Volatility: 0.2}
		want := math.Max(p.Spot-k, 0)
		if got := mustPrice(t, p); !almostEqual(got, want, 1e-4) {
			t.Fatalf("K=%v: call near expiry=%v, want %v", k, got, want)
		}
	}
}

func TestPriceInvalidParameters(t *testing.T) {
	base := scenario()
	tests := []struct {
		name string
		mut  func(*OptionParameters)
	}{
		{"zero expiry", func(p *OptionParameters) { p.Expiry = 0 }},
		{"zero sigma", func(p *OptionParameters) { p.Volatility = 0 }},
		{"negative spot", func(p *OptionParameters) { p.Spot = -1 }},
		{"zero strike", func(p *OptionParameters) { p.Strike = 0 }},
		{"negative expiry", func(p *OptionParameters) { p.Expiry = -1 }},
		{"NaN rate", func(p *OptionParameters) { p.Rate = math.NaN() }},
		{"infinite dividend", func(p *OptionParameters) { p.Dividend = math.Inf(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mut(&p)
			v, err := Price(p)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("err=%v, want ErrInvalidParameter", err)
			}
			var pe *ParameterError
			if !errors.As(err, &pe) {
				t.Fatalf("err=%T, want *ParameterError", err)
			}
			if math.IsNaN(v) {
				t.Fatalf("NaN returned alongside error")
			}
		})
	}
}

func TestPriceUnsupportedKind(t *testing.T) {
	p := scenario()
	p.Kind = Kind(7)
	if _, err := Price(p); !errors.Is(err, ErrUnsupportedOptionKind) {
		t.Fatalf("err=%v, want ErrUnsupportedOptionKind", err)
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"call": Call, "C": Call, "": Call, "Put": Put, "p": Put} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q)=%v,%v want %v", in, got, err, want)
		}
	}
	if _, err := ParseKind("straddle"); !errors.Is(err, ErrUnsupportedOptionKind) {
		t.Fatalf("err=%v, want ErrUnsupportedOptionKind", err)
	}
}
