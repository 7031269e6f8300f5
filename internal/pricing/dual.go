package pricing

import "math"

// Dual is a hyper-dual number a + b·ε1 + c·ε2 + d·ε1ε2 with ε1² = ε2² = 0.
//
// Evaluating a function on duals seeded with ε1 along one input and ε2 along
// another yields, exactly up to rounding,
//
//	V   = f
//	E1  = ∂f/∂x1
//	E2  = ∂f/∂x2
//	E12 = ∂²f/∂x1∂x2
type Dual struct {
	V, E1, E2, E12 float64
}

// Const lifts a constant.
func Const(v float64) Dual { return Dual{V: v} }

// Seed lifts an input variable; set d1 / d2 to 1 to differentiate along it.
func Seed(v float64, d1, d2 bool) Dual {
	x := Dual{V: v}
	if d1 {
		x.E1 = 1
	}
	if d2 {
		x.E2 = 1
	}
	return x
}

func (a Dual) Add(b Dual) Dual {
	return Dual{a.V + b.V, a.E1 + b.E1, a.E2 + b.E2, a.E12 + b.E12}
}

func (a Dual) Sub(b Dual) Dual {
	return Dual{a.V - b.V, a.E1 - b.E1, a.E2 - b.E2, a.E12 - b.E12}
}

func (a Dual) Neg() Dual {
	return Dual{-a.V, -a.E1, -a.E2, -a.E12}
}

// Scale multiplies by a constant.
func (a Dual) Scale(k float64) Dual {
	return Dual{k * a.V, k * a.E1, k * a.E2, k * a.E12}
}

func (a Dual) Mul(b Dual) Dual {
	return Dual{
		V:   a.V * b.V,
		E1:  a.V*b.E1 + a.E1*b.V,
		E2:  a.V*b.E2 + a.E2*b.V,
		E12: a.V*b.E12 + a.E1*b.E2 + a.E2*b.E1 + a.E12*b.V,
	}
}

func (a Dual) Div(b Dual) Dual {
	out := a.Mul(b.Recip())
	out.V = a.V / b.V // keep the real part bit-identical to float64 division
	return out
}

// chain applies a scalar function with value f0, first derivative f1 and
// second derivative f2 at a.V.
func (a Dual) chain(f0, f1, f2 float64) Dual {
	return Dual{
		V:   f0,
		E1:  f1 * a.E1,
		E2:  f1 * a.E2,
		E12: f1*a.E12 + f2*a.E1*a.E2,
	}
}

func (a Dual) Recip() Dual {
	inv := 1 / a.V
	return a.chain(inv, -inv*inv, 2*inv*inv*inv)
}

func (a Dual) Log() Dual {
	inv := 1 / a.V
	return a.chain(math.Log(a.V), inv, -inv*inv)
}

func (a Dual) Sqrt() Dual {
	s := math.Sqrt(a.V)
	return a.chain(s, 0.5/s, -0.25/(s*s*s))
}

func (a Dual) Exp() Dual {
	e := math.Exp(a.V)
	return a.chain(e, e, e)
}

// NormCDF applies Φ; Φ' = φ and Φ'' = -x·φ(x).
func (a Dual) NormCDF() Dual {
	pdf := NormPDF(a.V)
	return a.chain(NormCDF(a.V), pdf, -a.V*pdf)
}

// IsFinite reports whether every component is a finite number.
func (a Dual) IsFinite() bool {
	for _, v := range [...]float64{a.V, a.E1, a.E2, a.E12} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
