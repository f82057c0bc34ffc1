package models

import "testing"

func sampleSnapshot() *MarketSnapshot {
	return &MarketSnapshot{
		Timestamp: "10:15:00",
		Summary:   Summary{PositiveCount: 1, PositiveWeight: 13.27},
		Underlyings: []UnderlyingSnapshot{
			{
				Name:   "NIFTY",
				Weight: 13.27,
				Status: ClassPositive,
				Spot:   22512.35,
				Expiry: "2026-09-30",
				Lot:    75,
				Rows: []DerivedRow{
					{Pair: "22450 / 22550", CEStrike: 22450, PEStrike: 22550, Diff: 5.3, Bias: BiasBuyPE},
				},
			},
		},
	}
}

func TestSnapshotEqualIgnoresTimestamp(t *testing.T) {
	a := sampleSnapshot()
	b := sampleSnapshot()
	b.Timestamp = "10:15:05"

	if !a.Equal(b) {
		t.Error("snapshots differing only in timestamp must compare equal")
	}
}

func TestSnapshotEqualDetectsChanges(t *testing.T) {
	mutations := map[string]func(*MarketSnapshot){
		"summary":      func(s *MarketSnapshot) { s.Summary.NegativeCount = 2 },
		"spot":         func(s *MarketSnapshot) { s.Underlyings[0].Spot = 22513.00 },
		"status":       func(s *MarketSnapshot) { s.Underlyings[0].Status = ClassNeutral },
		"row diff":     func(s *MarketSnapshot) { s.Underlyings[0].Rows[0].Diff = -1.2 },
		"row dropped":  func(s *MarketSnapshot) { s.Underlyings[0].Rows = nil },
		"name changed": func(s *MarketSnapshot) { s.Underlyings[0].Name = "SENSEX" },
	}
	for name, mutate := range mutations {
		a := sampleSnapshot()
		b := sampleSnapshot()
		mutate(b)
		if a.Equal(b) {
			t.Errorf("%s: mutated snapshot must not compare equal", name)
		}
	}
}

func TestSnapshotEqualNil(t *testing.T) {
	var nilSnap *MarketSnapshot
	if nilSnap.Equal(sampleSnapshot()) {
		t.Error("nil must not equal a populated snapshot")
	}
	if sampleSnapshot().Equal(nil) {
		t.Error("populated snapshot must not equal nil")
	}
	if !nilSnap.Equal(nil) {
		t.Error("two nil snapshots compare equal")
	}
}

func TestKeyLookupByStrike(t *testing.T) {
	m := &UnderlyingMeta{
		Strikes: []StrikePair{
			{Strike: 22450, CallKey: "NSE_FO|1001", PutKey: "NSE_FO|1002"},
			{Strike: 22500, CallKey: "NSE_FO|1003", PutKey: "NSE_FO|1004"},
		},
	}
	if got := m.CallKeyAt(22450); got != "NSE_FO|1001" {
		t.Errorf("CallKeyAt(22450) = %q", got)
	}
	if got := m.PutKeyAt(22500); got != "NSE_FO|1004" {
		t.Errorf("PutKeyAt(22500) = %q", got)
	}
	if got := m.CallKeyAt(99999); got != "" {
		t.Errorf("untracked strike should yield empty key, got %q", got)
	}
}
