// Package models provides domain models for the option-chain tracker.
package models

// InstrumentKey identifies a single tradable contract (an underlying's spot
// instrument or one option leg). Keys are opaque strings produced by the
// reference data lookup and are globally unique.
type InstrumentKey string

// Classification labels an underlying by the sign of the near-ATM time-value
// skew. The naming is intentionally inverted relative to the per-row bias
// label; it follows the desk convention the payload consumers expect.
type Classification string

const (
	ClassPositive Classification = "POSITIVE"
	ClassNegative Classification = "NEGATIVE"
	ClassNeutral  Classification = "NEUTRAL"
)

// Bias labels for a strike pair.
const (
	BiasBuyPE = "BUY PE"
	BiasBuyCE = "BUY CE"

	// ConfirmMark is appended to a bias when the fair-value signal agrees
	// with the time-value signal.
	ConfirmMark = " ⭐️"
)

// QuoteRecord holds the latest observed market data for one instrument.
// A zero LastPrice means "observed but unavailable"; consumers treat it the
// same as a missing record.
type QuoteRecord struct {
	LastPrice    float64
	OpenInterest int64
	Volume       int64
}

// StrikePair carries the two option legs at one strike. An empty key means
// the leg did not exist in the chain at metadata-build time.
type StrikePair struct {
	Strike  float64
	CallKey InstrumentKey
	PutKey  InstrumentKey
}

// UnderlyingMeta is the tracked strike universe for one underlying. Built
// wholesale from a chain snapshot and replaced, never patched, on the next
// metadata refresh.
type UnderlyingMeta struct {
	Name           string
	SpotKey        InstrumentKey
	Expiry         string
	StrikeInterval float64
	Strikes        []StrikePair
}

// CallKeyAt returns the call leg key for a strike, or "" if untracked.
func (m *UnderlyingMeta) CallKeyAt(strike float64) InstrumentKey {
	for _, s := range m.Strikes {
		if s.Strike == strike {
			return s.CallKey
		}
	}
	return ""
}

// PutKeyAt returns the put leg key for a strike, or "" if untracked.
func (m *UnderlyingMeta) PutKeyAt(strike float64) InstrumentKey {
	for _, s := range m.Strikes {
		if s.Strike == strike {
			return s.PutKey
		}
	}
	return ""
}
