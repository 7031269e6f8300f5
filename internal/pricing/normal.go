package pricing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// normCutoff bounds the region where the tails are evaluated; beyond it the
// CDF is reported as exactly 0 or 1 and the density as 0.
const normCutoff = 38.0

// NormCDF returns Φ(x), the standard normal cumulative distribution.
func NormCDF(x float64) float64 {
	switch {
	case x <= -normCutoff:
		return 0
	case x >= normCutoff:
		return 1
	}
	return distuv.UnitNormal.CDF(x)
}

// NormPDF returns the standard normal density exp(-x²/2)/√(2π).
func NormPDF(x float64) float64 {
	if math.Abs(x) >= normCutoff {
		return 0
	}
	return distuv.UnitNormal.Prob(x)
}

// NormInv computes the quantile of the standard normal distribution: the x
// such that NormCDF(x) == p.
//
// It uses Acklam's rational approximation (relative error below 1.2e-9)
// refined by one Halley step against NormCDF.
//
// Example:
//
//	NormInv(0.975) // ≈ 1.96
//	NormInv(0.025) // ≈ -1.96
func NormInv(p float64) (float64, error) {
	if !(p > 0 && p < 1) {
		return 0, &ParameterError{Name: "p", Value: p, Reason: "must be in (0,1)"}
	}

	a := [...]float64{
		-3.969683028665376e+01,
		2.209460984245205e+02,
		-2.759285104469687e+02,
		1.383577518672690e+02,
		-3.066479806614716e+01,
		2.506628277459239e+00,
	}
	b := [...]float64{
		-5.447609879822406e+01,
		1.615858368580409e+02,
		-1.556989798598866e+02,
		6.680131188771972e+01,
		-1.328068155288572e+01,
	}
	c := [...]float64{
		-7.784894002430293e-03,
		-3.223964580411365e-01,
		-2.400758277161838e+00,
		-2.549732539343734e+00,
		4.374664141464968e+00,
		2.938163982698783e+00,
	}
	d := [...]float64{
		7.784695709041462e-03,
		3.224671290700398e-01,
		2.445134137142996e+00,
		3.754408661907416e+00,
	}

	const plow = 0.02425
	var x float64

	switch {
	case p < plow:
		q := math.Sqrt(-2 * math.Log(p))
		x = (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p > 1-plow:
		q := math.Sqrt(-2 * math.Log(1-p))
		x = -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	default:
		q := p - 0.5
		r := q * q
		x = (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}

	// Halley refinement
	if pdf := NormPDF(x); pdf > 0 {
		u := (NormCDF(x) - p) / pdf
		x -= u / (1 + x*u/2)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("%w: quantile of p=%g is not finite", ErrInvalidParameter, p)
	}
	return x, nil
}
