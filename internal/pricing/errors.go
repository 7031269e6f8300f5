package pricing

import (
	"errors"
	"fmt"
)

// Error kinds returned by the pricing, differentiation and solver entry points.
// Callers branch on them with errors.Is; the structured types below carry
// the details and unwrap to one of these.
var (
	ErrInvalidParameter              = errors.New("invalid parameter")
	ErrUnsupportedOptionKind         = errors.New("unsupported option kind")
	ErrUnsupportedDerivativeVariable = errors.New("unsupported derivative variable")
	ErrNonConvergent                 = errors.New("implied volatility did not converge")
	ErrOutOfDomain                   = errors.New("volatility iterate out of domain")
)

// ParameterError reports the offending input of a pricing call.
type ParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %s=%g (%s)", ErrInvalidParameter, e.Name, e.Value, e.Reason)
	}
	return fmt.Sprintf("%v: %s=%g", ErrInvalidParameter, e.Name, e.Value)
}

func (e *ParameterError) Unwrap() error { return ErrInvalidParameter }

// NonConvergentError carries the solver state at the point it gave up so the
// caller can retry with another initial guess or a looser tolerance.
type NonConvergentError struct {
	Sigma      float64 // last iterate
	Iterations int
	Residual   float64 // model price minus market price at Sigma
	Reason     string
}

func (e *NonConvergentError) Error() string {
	return fmt.Sprintf("%v: %s after %d iterations (sigma=%g residual=%g)",
		ErrNonConvergent, e.Reason, e.Iterations, e.Sigma, e.Residual)
}

func (e *NonConvergentError) Unwrap() error { return ErrNonConvergent }

// OutOfDomainError reports an iterate (or a market price) that no positive
// volatility can reach.
type OutOfDomainError struct {
	Sigma      float64 // offending iterate
	Iterations int
	Residual   float64
	Reason     string
}

func (e *OutOfDomainError) Error() string {
	return fmt.Sprintf("%v: %s (sigma=%g iterations=%d residual=%g)",
		ErrOutOfDomain, e.Reason, e.Sigma, e.Iterations, e.Residual)
}

func (e *OutOfDomainError) Unwrap() error { return ErrOutOfDomain }

// ErrorKind maps err to a stable label for reports, HTTP responses and
// metric labels. A nil error maps to "ok".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, ErrUnsupportedOptionKind):
		return "unsupported_option_kind"
	case errors.Is(err, ErrUnsupportedDerivativeVariable):
		return "unsupported_derivative_variable"
	case errors.Is(err, ErrNonConvergent):
		return "non_convergent"
	case errors.Is(err, ErrOutOfDomain):
		return "out_of_domain"
	default:
		return "internal"
	}
}
