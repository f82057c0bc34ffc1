package meta

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"upstox-chainwatch/internal/errors"
	"upstox-chainwatch/internal/models"
	"upstox-chainwatch/internal/upstox"
)

func chainFixture(spot float64, strikes ...float64) []upstox.ChainRow {
	rows := make([]upstox.ChainRow, 0, len(strikes))
	for _, k := range strikes {
		rows = append(rows, upstox.ChainRow{
			StrikePrice:         k,
			UnderlyingSpotPrice: spot,
			CallOptions:         upstox.OptionLeg{InstrumentKey: keyFor("CE", k)},
			PutOptions:          upstox.OptionLeg{InstrumentKey: keyFor("PE", k)},
		})
	}
	return rows
}

func keyFor(side string, strike float64) string {
	return fmt.Sprintf("NSE_FO|TEST%s%d", side, int(strike))
}

func TestStrikeInterval(t *testing.T) {
	cases := []struct {
		name    string
		strikes []float64
		want    float64
	}{
		{"uniform 100", []float64{82000, 82100, 82200, 82300}, 100},
		{"uniform 50", []float64{22400, 22450, 22500, 22550}, 50},
		{"one outlier gap", []float64{22400, 22450, 22500, 22600}, 50},
		{"tie picks smaller", []float64{100, 150, 250}, 50},
		{"duplicates collapse", []float64{100, 100, 200, 300}, 100},
		{"single strike", []float64{22500}, 1},
		{"empty chain", nil, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := StrikeInterval(chainFixture(1000, tc.strikes...))
			if got != tc.want {
				t.Errorf("StrikeInterval = %.2f, want %.2f", got, tc.want)
			}
		})
	}
}

func TestATMStrike(t *testing.T) {
	cases := []struct {
		name           string
		spot, interval float64
		want           float64
	}{
		{"rounds up", 82392.61, 100, 82400},
		{"rounds down", 82340.00, 100, 82300},
		{"halfway rounds away", 82350.00, 100, 82400},
		{"interval 50", 22512.35, 50, 22500},
		{"zero interval passes spot through", 22512.35, 0, 22512.35},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ATMStrike(tc.spot, tc.interval)
			if got != tc.want {
				t.Errorf("ATMStrike(%.2f, %.2f) = %.2f, want %.2f", tc.spot, tc.interval, got, tc.want)
			}
		})
	}
}

func TestBuildMetaWindow(t *testing.T) {
	// 41 strikes at interval 100 around spot 82392.61. ATM is 82400 and
	// the window spans 15 intervals each side, so strikes below 80900 and
	// above 83900 must be excluded.
	var strikes []float64
	for k := 80400.0; k <= 84400.0; k += 100 {
		strikes = append(strikes, k)
	}
	target := Target{Name: "SENSEX", SpotKey: "BSE_INDEX|SENSEX", Expiry: "2026-09-04"}

	m, err := BuildMeta(target, chainFixture(82392.61, strikes...))
	if err != nil {
		t.Fatalf("BuildMeta: %v", err)
	}
	if m.StrikeInterval != 100 {
		t.Errorf("interval = %.2f, want 100", m.StrikeInterval)
	}
	if len(m.Strikes) != 31 {
		t.Fatalf("window holds %d strikes, want 31", len(m.Strikes))
	}
	if m.Strikes[0].Strike != 80900 {
		t.Errorf("window floor = %.2f, want 80900", m.Strikes[0].Strike)
	}
	if m.Strikes[len(m.Strikes)-1].Strike != 83900 {
		t.Errorf("window ceiling = %.2f, want 83900", m.Strikes[len(m.Strikes)-1].Strike)
	}
}

func TestBuildMetaNoData(t *testing.T) {
	target := Target{Name: "NIFTY", SpotKey: "NSE_INDEX|Nifty 50", Expiry: "2026-09-02"}

	if _, err := BuildMeta(target, nil); !errors.Is(err, errors.ErrNoData) {
		t.Errorf("empty chain: want ErrNoData, got %v", err)
	}
	if _, err := BuildMeta(target, chainFixture(0, 22400, 22500)); !errors.Is(err, errors.ErrNoData) {
		t.Errorf("zero spot: want ErrNoData, got %v", err)
	}
}

type fakeChains struct {
	chains map[models.InstrumentKey][]upstox.ChainRow
	err    error
}

func (f *fakeChains) GetOptionChain(_ context.Context, key models.InstrumentKey, _ string) ([]upstox.ChainRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chains[key], nil
}

func TestResolveAllDropsFailures(t *testing.T) {
	fetcher := &fakeChains{chains: map[models.InstrumentKey][]upstox.ChainRow{
		"NSE_INDEX|Nifty 50": chainFixture(22512.35, 22400, 22450, 22500, 22550, 22600),
		// BANKNIFTY intentionally absent so its resolve fails.
	}}
	r := NewResolver(DefaultConfig(), fetcher, zerolog.Nop())

	targets := []Target{
		{Name: "NIFTY", SpotKey: "NSE_INDEX|Nifty 50", Expiry: "2026-09-02"},
		{Name: "BANKNIFTY", SpotKey: "NSE_INDEX|Nifty Bank", Expiry: "2026-09-02"},
	}
	metas := r.ResolveAll(context.Background(), targets)

	if len(metas) != 1 {
		t.Fatalf("resolved %d underlyings, want 1", len(metas))
	}
	if _, ok := metas["NIFTY"]; !ok {
		t.Error("NIFTY should have resolved")
	}
}

func TestTrackedKeys(t *testing.T) {
	targets := []Target{
		{Name: "NIFTY", SpotKey: "NSE_INDEX|Nifty 50", Expiry: "2026-09-02"},
	}
	metas := map[string]*models.UnderlyingMeta{
		"NIFTY": {
			Name:    "NIFTY",
			SpotKey: "NSE_INDEX|Nifty 50",
			Strikes: []models.StrikePair{
				{Strike: 22450, CallKey: "NSE_FO|1001", PutKey: "NSE_FO|1002"},
				{Strike: 22500, CallKey: "NSE_FO|1003", PutKey: ""},
			},
		},
	}

	keys := TrackedKeys(targets, metas)
	want := []models.InstrumentKey{
		"NSE_FO|1001", "NSE_FO|1002", "NSE_FO|1003", "NSE_INDEX|Nifty 50",
	}
	if len(keys) != len(want) {
		t.Fatalf("got %d keys, want %d: %v", len(keys), len(want), keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
