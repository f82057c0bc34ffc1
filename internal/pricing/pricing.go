// Package pricing implements theoretical option pricing models and implied
// volatility. All functions are pure and stateless.
//
// Domain failures (non-positive spot, strike, expiry or volatility) are
// reported as errors.ErrNumericDomain so callers can tell "computed zero"
// apart from "could not compute". Pricing is advisory; callers are expected
// to degrade to zero rather than abort.
package pricing

import (
	"math"

	"upstox-chainwatch/internal/errors"
)

// Kind selects the option side.
type Kind string

const (
	Call Kind = "CE"
	Put  Kind = "PE"
)

// Merton jump-diffusion parameters.
const (
	jumpIntensity = 1.0   // λ, expected jumps per year
	jumpMean      = -0.05 // μⱼ, mean jump size
	jumpVol       = 0.15  // σⱼ, jump volatility
	jumpTerms     = 15    // Poisson terms summed
)

// Corrado-Su moment coefficients.
const (
	skewCoeff = -1.5
	kurtCoeff = 4.0
)

func normCDF(x float64) float64 {
	return (1.0 + math.Erf(x/math.Sqrt2)) / 2.0
}

func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2.0*math.Pi)
}

// d1d2 computes the Black-Scholes quantiles, guarding the log and the
// division against out-of-domain inputs.
func d1d2(s, k, t, r, sigma float64) (float64, float64, error) {
	if s <= 0 || k <= 0 || t <= 0 || sigma <= 0 {
		return 0, 0, errors.ErrNumericDomain
	}
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
	d2 := d1 - sigma*math.Sqrt(t)
	if math.IsNaN(d1) || math.IsInf(d1, 0) {
		return 0, 0, errors.ErrNumericDomain
	}
	return d1, d2, nil
}

// CallPrice returns the Black-Scholes price of a European call.
func CallPrice(s, k, t, r, sigma float64) (float64, error) {
	d1, d2, err := d1d2(s, k, t, r, sigma)
	if err != nil {
		return 0, err
	}
	return s*normCDF(d1) - k*math.Exp(-r*t)*normCDF(d2), nil
}

// PutPrice returns the Black-Scholes price of a European put.
func PutPrice(s, k, t, r, sigma float64) (float64, error) {
	d1, d2, err := d1d2(s, k, t, r, sigma)
	if err != nil {
		return 0, err
	}
	return k*math.Exp(-r*t)*normCDF(-d2) - s*normCDF(-d1), nil
}

// Price dispatches on kind.
func Price(kind Kind, s, k, t, r, sigma float64) (float64, error) {
	if kind == Put {
		return PutPrice(s, k, t, r, sigma)
	}
	return CallPrice(s, k, t, r, sigma)
}

// MertonPrice returns the Merton jump-diffusion price: a Poisson-weighted
// sum of Black-Scholes evaluations with the rate and volatility adjusted
// for each jump count. Captures fat-tail jump risk plain Black-Scholes
// omits.
func MertonPrice(kind Kind, s, k, t, r, sigma float64) (float64, error) {
	if s <= 0 || k <= 0 || t <= 0 || sigma <= 0 {
		return 0, errors.ErrNumericDomain
	}

	lamPrime := jumpIntensity * (1 + jumpMean)
	price := 0.0
	factorial := 1.0
	for n := 0; n < jumpTerms; n++ {
		if n > 0 {
			factorial *= float64(n)
		}
		weight := math.Exp(-lamPrime*t) * math.Pow(lamPrime*t, float64(n)) / factorial
		rn := r - jumpIntensity*jumpMean + float64(n)*math.Log(1+jumpMean)/t
		sigmaN := math.Sqrt(sigma*sigma + float64(n)*jumpVol*jumpVol/t)

		term, err := Price(kind, s, k, t, rn, sigmaN)
		if err != nil {
			// A degenerate term contributes nothing, matching the
			// degrade-to-zero policy.
			continue
		}
		price += weight * term
	}
	return price, nil
}

// CorradoSuPrice returns the Black-Scholes price corrected for skewness and
// kurtosis of the return distribution, floored at zero.
func CorradoSuPrice(kind Kind, s, k, t, r, sigma float64) (float64, error) {
	base, err := Price(kind, s, k, t, r, sigma)
	if err != nil {
		return 0, err
	}
	d1, d2, err := d1d2(s, k, t, r, sigma)
	if err != nil {
		return 0, err
	}
	sqt := sigma * math.Sqrt(t)
	skewTerm := (skewCoeff / 6.0) * s * sqt * d2 * normPDF(d1)
	kurtTerm := (kurtCoeff / 24.0) * s * sqt * (d2*d2 - 1) * normPDF(d1)
	return math.Max(0.0, base+skewTerm+kurtTerm), nil
}

// Vega returns the Black-Scholes sensitivity to volatility.
func Vega(s, k, t, r, sigma float64) (float64, error) {
	d1, _, err := d1d2(s, k, t, r, sigma)
	if err != nil {
		return 0, err
	}
	return s * normPDF(d1) * math.Sqrt(t), nil
}

// PriceOrZero maps a pricing failure to 0.0. This is the boundary the
// snapshot builder uses: a pricing failure must never halt a refresh cycle.
func PriceOrZero(p float64, err error) float64 {
	if err != nil {
		return 0.0
	}
	return p
}
