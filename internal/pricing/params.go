package pricing

import (
	"fmt"
	"math"
	"strings"
)

// Kind selects the payoff of a European option.
// The zero value is Call.
type Kind int

const (
	Call Kind = iota
	Put
)

func (k Kind) String() string {
	switch k {
	case Call:
		return "call"
	case Put:
		return "put"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts "call"/"c" and "put"/"p", case-insensitive.
// The empty string maps to Call.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "call", "c":
		return Call, nil
	case "put", "p":
		return Put, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedOptionKind, s)
	}
}

// OptionParameters holds the inputs of a Black-Scholes-Merton valuation.
//
// Defaults come from the zero value: Dividend is 0 and Kind is Call.
type OptionParameters struct {
	Spot       float64 // S, spot price of the underlying
	Strike     float64 // K
	Expiry     float64 // T, time to maturity in years
	Rate       float64 // r, continuously compounded risk-free rate
	Volatility float64 // sigma, annualised
	Dividend   float64 // q, continuous dividend yield
	Kind       Kind
}

// WithVolatility returns a copy of p with sigma replaced.
func (p OptionParameters) WithVolatility(sigma float64) OptionParameters {
	p.Volatility = sigma
	return p
}

// Validate checks the inputs that make d1 and d2 well defined.
func (p OptionParameters) Validate() error {
	if p.Kind != Call && p.Kind != Put {
		return fmt.Errorf("%w: %v", ErrUnsupportedOptionKind, p.Kind)
	}
	if err := positive("S", p.Spot); err != nil {
		return err
	}
	if err := positive("K", p.Strike); err != nil {
		return err
	}
	if err := positive("T", p.Expiry); err != nil {
		return err
	}
	if err := positive("sigma", p.Volatility); err != nil {
		return err
	}
	if err := finite("r", p.Rate); err != nil {
		return err
	}
	return finite("q", p.Dividend)
}

func positive(name string, v float64) error {
	if err := finite(name, v); err != nil {
		return err
	}
	if v <= 0 {
		return &ParameterError{Name: name, Value: v, Reason: "must be positive"}
	}
	return nil
}

func finite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ParameterError{Name: name, Value: v, Reason: "must be finite"}
	}
	return nil
}
