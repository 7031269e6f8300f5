package pricing

import "fmt"

// Variable names an input the price can be differentiated against.
type Variable string

const (
	Spot       Variable = "S"
	Time       Variable = "T"
	Volatility Variable = "sigma"
	Rate       Variable = "r"
	Dividend   Variable = "q"
)

func (v Variable) valid() bool {
	switch v {
	case Spot, Time, Volatility, Rate, Dividend:
		return true
	}
	return false
}

// GreekSet holds the first and second order sensitivities of one valuation.
type GreekSet struct {
	Delta float64 `json:"delta"` // ∂V/∂S
	Gamma float64 `json:"gamma"` // ∂²V/∂S²
	Vega  float64 `json:"vega"`  // ∂V/∂σ
	Rho   float64 `json:"rho"`   // ∂V/∂r
	Theta float64 `json:"theta"` // -∂V/∂T, time decay
}

// Derivative returns the exact partial derivative of Price with respect to wrt.
func Derivative(p OptionParameters, wrt Variable) (float64, error) {
	if !wrt.valid() {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDerivativeVariable, wrt)
	}
	v, err := evalDual(p, wrt, "")
	if err != nil {
		return 0, err
	}
	return v.E1, nil
}

// SecondDerivative returns ∂²Price/∂wrt1∂wrt2. Mixed partials are allowed,
// e.g. SecondDerivative(p, Spot, Volatility) is vanna.
func SecondDerivative(p OptionParameters, wrt1, wrt2 Variable) (float64, error) {
	for _, w := range [...]Variable{wrt1, wrt2} {
		if !w.valid() {
			return 0, fmt.Errorf("%w: %q", ErrUnsupportedDerivativeVariable, w)
		}
	}
	v, err := evalDual(p, wrt1, wrt2)
	if err != nil {
		return 0, err
	}
	return v.E12, nil
}

// Greeks computes delta, gamma, vega, rho and theta.
func Greeks(p OptionParameters) (GreekSet, error) {
	var (
		g   GreekSet
		err error
	)
	if g.Delta, err = Derivative(p, Spot); err != nil {
		return GreekSet{}, err
	}
	if g.Gamma, err = SecondDerivative(p, Spot, Spot); err != nil {
		return GreekSet{}, err
	}
	if g.Vega, err = Derivative(p, Volatility); err != nil {
		return GreekSet{}, err
	}
	if g.Rho, err = Derivative(p, Rate); err != nil {
		return GreekSet{}, err
	}
	dT, err := Derivative(p, Time)
	if err != nil {
		return GreekSet{}, err
	}
	g.Theta = -dT
	return g, nil
}

// evalDual validates p and runs the pricing formula on hyper-dual numbers,
// seeding ε1 along first and ε2 along second. An empty Variable seeds nothing.
func evalDual(p OptionParameters, first, second Variable) (Dual, error) {
	if err := p.Validate(); err != nil {
		return Dual{}, err
	}

	seed := func(v float64, name Variable) Dual {
		return Seed(v, name == first, name == second)
	}
	out := priceDual(
		seed(p.Spot, Spot),
		Const(p.Strike),
		seed(p.Expiry, Time),
		seed(p.Rate, Rate),
		seed(p.Volatility, Volatility),
		seed(p.Dividend, Dividend),
		p.Kind,
	)
	if !out.IsFinite() {
		return Dual{}, fmt.Errorf("%w: derivative is not finite for %+v", ErrInvalidParameter, p)
	}
	return out, nil
}

// priceDual is Price expressed on duals. kind must already be validated.
func priceDual(s, k, t, r, sigma, q Dual, kind Kind) Dual {
	sqrtT := t.Sqrt()
	volSqrtT := sigma.Mul(sqrtT)
	drift := r.Sub(q).Add(sigma.Mul(sigma).Scale(0.5))

	d1 := s.Div(k).Log().Add(drift.Mul(t)).Div(volSqrtT)
	d2 := d1.Sub(volSqrtT)

	spotDisc := s.Mul(q.Mul(t).Neg().Exp())
	strikeDisc := k.Mul(r.Mul(t).Neg().Exp())

	if kind == Put {
		return strikeDisc.Mul(d2.Neg().NormCDF()).Sub(spotDisc.Mul(d1.Neg().NormCDF()))
	}
	return spotDisc.Mul(d1.NormCDF()).Sub(strikeDisc.Mul(d2.NormCDF()))
}
