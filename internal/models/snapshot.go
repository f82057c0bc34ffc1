package models

// DerivedRow is one strike pair n intervals away from ATM on each side,
// with the analytics the frontend table renders. Field names mirror the
// wire payload.
type DerivedRow struct {
	Pair string `json:"pair"`

	CEStrike    float64 `json:"ce_strike"`
	CELTP       float64 `json:"ce_ltp"`
	CEFairValue float64 `json:"ce_fv"`
	CEIntrinsic float64 `json:"ce_iv"`
	CETimeValue float64 `json:"ce_tv"`
	CEBSValue   float64 `json:"bs_ce_fv"`
	CECSValue   float64 `json:"cs_ce_fv"`
	CEVolume    int64   `json:"ce_vol"`
	CEOI        int64   `json:"ce_oi"`

	PEStrike    float64 `json:"pe_strike"`
	PELTP       float64 `json:"pe_ltp"`
	PEFairValue float64 `json:"pe_fv"`
	PEIntrinsic float64 `json:"pe_iv"`
	PETimeValue float64 `json:"pe_tv"`
	PEBSValue   float64 `json:"bs_pe_fv"`
	PECSValue   float64 `json:"cs_pe_fv"`
	PEVolume    int64   `json:"pe_vol"`
	PEOI        int64   `json:"pe_oi"`

	Diff          float64 `json:"diff"`
	FairValueDiff float64 `json:"fv_diff"`
	Bias          string  `json:"bias"`
	Lot           int     `json:"lot"`
}

// UnderlyingSnapshot is one underlying's analytics table for a single cycle.
type UnderlyingSnapshot struct {
	Name   string         `json:"name"`
	Weight float64        `json:"weight"`
	Status Classification `json:"status"`
	Spot   float64        `json:"spot"`
	Expiry string         `json:"expiry"`
	Lot    int            `json:"lot"`
	Rows   []DerivedRow   `json:"rows"`
}

// Summary tallies count and index weight per classification across one
// snapshot.
type Summary struct {
	PositiveCount  int     `json:"pos_count"`
	PositiveWeight float64 `json:"pos_weight"`
	NegativeCount  int     `json:"neg_count"`
	NegativeWeight float64 `json:"neg_weight"`
	NeutralCount   int     `json:"neu_count"`
	NeutralWeight  float64 `json:"neu_weight"`
}

// MarketSnapshot is the consolidated per-cycle view pushed to subscribers.
// Underlyings are sorted by descending weight. The "indices" field name is
// kept for frontend compatibility.
type MarketSnapshot struct {
	Timestamp   string               `json:"timestamp"`
	Summary     Summary              `json:"summary"`
	Underlyings []UnderlyingSnapshot `json:"indices"`
}

// Equal reports whether two snapshots carry identical data, ignoring the
// timestamp. The broadcast layer uses it to suppress pushes when nothing
// actually changed between cycles.
func (s *MarketSnapshot) Equal(o *MarketSnapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Summary != o.Summary || len(s.Underlyings) != len(o.Underlyings) {
		return false
	}
	for i := range s.Underlyings {
		if !s.Underlyings[i].equal(&o.Underlyings[i]) {
			return false
		}
	}
	return true
}

func (u *UnderlyingSnapshot) equal(o *UnderlyingSnapshot) bool {
	if u.Name != o.Name || u.Weight != o.Weight || u.Status != o.Status ||
		u.Spot != o.Spot || u.Expiry != o.Expiry || u.Lot != o.Lot ||
		len(u.Rows) != len(o.Rows) {
		return false
	}
	for i := range u.Rows {
		if u.Rows[i] != o.Rows[i] {
			return false
		}
	}
	return true
}
