package pricing

import "math"

// Newton-Raphson solver parameters for implied volatility.
const (
	ivInitialGuess = 0.5
	ivMaxIterates  = 50
	ivTolerance    = 0.001
	ivMinSigma     = 0.01
)

// ImpliedVol solves for the Black-Scholes volatility that reproduces a
// market price, by Newton-Raphson on vega. tDays is calendar days to
// expiry. The result is a percentage rounded to two decimals.
//
// Returns 0.0 immediately when any of market price, spot, strike or days
// to expiry is non-positive. If vega collapses to zero the last estimate
// is returned; a non-positive estimate is clamped to 1%.
func ImpliedVol(marketPrice, s, k, tDays, r float64, kind Kind) float64 {
	if tDays <= 0 || marketPrice <= 0 || s <= 0 || k <= 0 {
		return 0.0
	}
	t := tDays / 365.0

	sigma := ivInitialGuess
	for i := 0; i < ivMaxIterates; i++ {
		price, err := Price(kind, s, k, t, r, sigma)
		if err != nil {
			break
		}
		diff := marketPrice - price
		if math.Abs(diff) < ivTolerance {
			return roundPct(sigma)
		}
		vega, err := Vega(s, k, t, r, sigma)
		if err != nil || vega == 0.0 {
			break
		}
		sigma += diff / vega
		if sigma <= 0.0 {
			sigma = ivMinSigma
		}
	}
	return roundPct(sigma)
}

func roundPct(sigma float64) float64 {
	return math.Round(sigma*100*100) / 100
}
