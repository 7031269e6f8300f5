package pricing

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-greeks/internal/logger"
)

// DomainPolicy decides what the solver does when a Newton step leaves the
// admissible range sigma > 0.
type DomainPolicy int

const (
	// PolicyFail stops with an *OutOfDomainError carrying the iterate.
	PolicyFail DomainPolicy = iota
	// PolicyClamp replaces the iterate with SolverOptions.MinVolatility and
	// keeps iterating.
	PolicyClamp
)

func (d DomainPolicy) String() string {
	switch d {
	case PolicyFail:
		return "fail"
	case PolicyClamp:
		return "clamp"
	default:
		return fmt.Sprintf("policy(%d)", int(d))
	}
}

// ParseDomainPolicy accepts "fail" (or empty) and "clamp".
func ParseDomainPolicy(s string) (DomainPolicy, error) {
	switch s {
	case "", "fail":
		return PolicyFail, nil
	case "clamp":
		return PolicyClamp, nil
	default:
		return 0, fmt.Errorf("unknown domain policy %q", s)
	}
}

const (
	DefaultInitialGuess  = 0.2
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 100
	DefaultVegaEpsilon   = 1e-8
	DefaultMinVolatility = 1e-4
)

// SolverOptions tunes ImpliedVolatility.
type SolverOptions struct {
	InitialGuess  float64      // sigma_0
	Tolerance     float64      // on |model price - market price|
	MaxIterations int          // hard ceiling on Newton steps
	VegaEpsilon   float64      // |vega| below this is a stall
	Policy        DomainPolicy // handling of sigma <= 0 iterates
	MinVolatility float64      // floor used by PolicyClamp
}

// DefaultSolverOptions returns the options used when the caller has no
// preference.
func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		InitialGuess:  DefaultInitialGuess,
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		VegaEpsilon:   DefaultVegaEpsilon,
		Policy:        PolicyFail,
		MinVolatility: DefaultMinVolatility,
	}
}

// Validate reports the first unusable option as a *ParameterError.
func (o SolverOptions) Validate() error {
	if err := positive("initial_guess", o.InitialGuess); err != nil {
		return err
	}
	if err := positive("tolerance", o.Tolerance); err != nil {
		return err
	}
	if o.MaxIterations <= 0 {
		return &ParameterError{Name: "max_iterations", Value: float64(o.MaxIterations), Reason: "must be positive"}
	}
	if err := finite("vega_epsilon", o.VegaEpsilon); err != nil {
		return err
	}
	if o.VegaEpsilon < 0 {
		return &ParameterError{Name: "vega_epsilon", Value: o.VegaEpsilon, Reason: "must be non-negative"}
	}
	switch o.Policy {
	case PolicyFail:
	case PolicyClamp:
		if err := positive("min_volatility", o.MinVolatility); err != nil {
			return err
		}
	default:
		return &ParameterError{Name: "policy", Value: float64(o.Policy), Reason: "unknown domain policy"}
	}
	return nil
}

// ImpliedVolResult is the outcome of a solve.
type ImpliedVolResult struct {
	Sigma      float64 `json:"sigma"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Residual   float64 `json:"residual"` // model price minus market price at Sigma
}

// ImpliedVolatility solves Price(p with sigma) == marketPrice for sigma by
// Newton-Raphson, using the exact vega as the step derivative.
// p.Volatility is ignored.
//
// On exhaustion the partial result is returned together with a
// *NonConvergentError carrying the same state. A vanishing vega also yields
// *NonConvergentError; a market price outside the no-arbitrage band, or an
// iterate sigma <= 0 under PolicyFail, yields *OutOfDomainError.
func ImpliedVolatility(p OptionParameters, marketPrice float64, opts SolverOptions) (ImpliedVolResult, error) {
	if err := opts.Validate(); err != nil {
		return ImpliedVolResult{}, err
	}
	if err := finite("market_price", marketPrice); err != nil {
		return ImpliedVolResult{}, err
	}
	if marketPrice < 0 {
		return ImpliedVolResult{}, &ParameterError{Name: "market_price", Value: marketPrice, Reason: "must be non-negative"}
	}

	sigma := opts.InitialGuess
	// Validates S, K, T, r, q and kind once; sigma is checked per iterate.
	if err := p.WithVolatility(sigma).Validate(); err != nil {
		return ImpliedVolResult{}, err
	}

	lower, upper := priceBounds(p)
	if marketPrice <= lower || marketPrice >= upper {
		return ImpliedVolResult{}, &OutOfDomainError{
			Sigma:  sigma,
			Reason: fmt.Sprintf("market price %g outside no-arbitrage band (%g, %g)", marketPrice, lower, upper),
		}
	}

	var evaluated, loss float64
	for i := 0; i < opts.MaxIterations; i++ {
		evaluated = sigma
		// Price and vega come from the same dual evaluation.
		v, err := evalDual(p.WithVolatility(sigma), Volatility, "")
		if err != nil {
			return ImpliedVolResult{}, err
		}
		loss = v.V - marketPrice
		vega := v.E1
		logger.Tracef("implied vol iter=%d sigma=%.10f loss=%.3e vega=%.6f", i, sigma, loss, vega)

		if math.Abs(loss) < opts.Tolerance {
			return ImpliedVolResult{Sigma: sigma, Iterations: i, Converged: true, Residual: loss}, nil
		}

		if math.Abs(vega) <= opts.VegaEpsilon {
			return ImpliedVolResult{}, &NonConvergentError{
				Sigma: sigma, Iterations: i, Residual: loss, Reason: "vega stall",
			}
		}

		next := sigma - loss/vega
		if !(next > 0) {
			if opts.Policy == PolicyFail || math.IsNaN(next) {
				return ImpliedVolResult{}, &OutOfDomainError{
					Sigma: next, Iterations: i + 1, Residual: loss, Reason: "newton step left sigma > 0",
				}
			}
			logger.Debugf("implied vol iterate %.6g clamped to %.6g", next, opts.MinVolatility)
			next = opts.MinVolatility
		}
		sigma = next
	}

	res := ImpliedVolResult{Sigma: evaluated, Iterations: opts.MaxIterations, Residual: loss}
	return res, &NonConvergentError{
		Sigma: evaluated, Iterations: opts.MaxIterations, Residual: loss, Reason: "iteration budget exhausted",
	}
}
