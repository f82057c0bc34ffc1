// Package meta discovers the tradable strike universe for each underlying:
// the strike interval, the ATM-centered strike window, and the instrument
// keys of every option leg worth tracking.
package meta

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"upstox-chainwatch/internal/errors"
	"upstox-chainwatch/internal/models"
	"upstox-chainwatch/internal/upstox"
)

// WindowIntervals is the half-width of the tracked strike window, in strike
// intervals around ATM. Spot drifting outside the window between metadata
// rebuilds just yields fewer rows until the next hourly refresh.
const WindowIntervals = 15

// ChainFetcher is the upstream call the resolver depends on.
type ChainFetcher interface {
	GetOptionChain(ctx context.Context, key models.InstrumentKey, expiry string) ([]upstox.ChainRow, error)
}

// Target names one underlying to resolve.
type Target struct {
	Name    string
	SpotKey models.InstrumentKey
	Expiry  string
}

// Config holds resolver configuration.
type Config struct {
	Concurrency int           // simultaneous chain fetches (default 5)
	Timeout     time.Duration // per-fetch timeout (default 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 5,
		Timeout:     10 * time.Second,
	}
}

// Resolver builds UnderlyingMeta values from full-chain snapshots.
type Resolver struct {
	cfg    Config
	chains ChainFetcher
	logger zerolog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(cfg Config, chains ChainFetcher, logger zerolog.Logger) *Resolver {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Resolver{
		cfg:    cfg,
		chains: chains,
		logger: logger.With().Str("component", "meta").Logger(),
	}
}

// Resolve fetches one underlying's chain and builds its metadata. Returns
// ErrNoData when the chain is empty or the spot price reads zero.
func (r *Resolver) Resolve(ctx context.Context, t Target) (*models.UnderlyingMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	chain, err := r.chains.GetOptionChain(ctx, t.SpotKey, t.Expiry)
	if err != nil {
		return nil, err
	}
	return BuildMeta(t, chain)
}

// BuildMeta constructs an UnderlyingMeta from a chain snapshot. Pure;
// separated from Resolve so it can be exercised without a network.
func BuildMeta(t Target, chain []upstox.ChainRow) (*models.UnderlyingMeta, error) {
	if len(chain) == 0 {
		return nil, errors.NewDataError("chain", t.Name, "empty chain", errors.ErrNoData)
	}
	spot := chain[0].UnderlyingSpotPrice
	if spot == 0 {
		return nil, errors.NewDataError("chain", t.Name, "zero spot price", errors.ErrNoData)
	}

	interval := StrikeInterval(chain)
	atm := ATMStrike(spot, interval)
	minStrike := atm - WindowIntervals*interval
	maxStrike := atm + WindowIntervals*interval

	var strikes []models.StrikePair
	for _, row := range chain {
		if row.StrikePrice < minStrike || row.StrikePrice > maxStrike {
			continue
		}
		strikes = append(strikes, models.StrikePair{
			Strike:  row.StrikePrice,
			CallKey: models.InstrumentKey(row.CallOptions.InstrumentKey),
			PutKey:  models.InstrumentKey(row.PutOptions.InstrumentKey),
		})
	}

	return &models.UnderlyingMeta{
		Name:           t.Name,
		SpotKey:        t.SpotKey,
		Expiry:         t.Expiry,
		StrikeInterval: interval,
		Strikes:        strikes,
	}, nil
}

// ResolveAll resolves every target with bounded concurrency. A failed
// target is logged and dropped for this cycle; the rest proceed. The
// returned map holds only the successes.
func (r *Resolver) ResolveAll(ctx context.Context, targets []Target) map[string]*models.UnderlyingMeta {
	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	out := make(map[string]*models.UnderlyingMeta)

	for _, t := range targets {
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			m, err := r.Resolve(ctx, t)
			if err != nil {
				r.logger.Warn().Str("underlying", t.Name).Err(err).Msg("metadata resolve failed")
				return
			}
			mu.Lock()
			out[t.Name] = m
			mu.Unlock()
		}(t)
	}
	wg.Wait()

	return out
}

// TrackedKeys collects every instrument key the quote loop must refresh:
// each target's spot key plus all resolved option legs.
func TrackedKeys(targets []Target, metas map[string]*models.UnderlyingMeta) []models.InstrumentKey {
	seen := make(map[models.InstrumentKey]struct{})
	for _, t := range targets {
		seen[t.SpotKey] = struct{}{}
	}
	for _, m := range metas {
		for _, s := range m.Strikes {
			if s.CallKey != "" {
				seen[s.CallKey] = struct{}{}
			}
			if s.PutKey != "" {
				seen[s.PutKey] = struct{}{}
			}
		}
	}

	keys := make([]models.InstrumentKey, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// StrikeInterval derives the strike spacing as the most frequent positive
// gap between consecutive distinct strikes in the chain. Always >= 1.
func StrikeInterval(chain []upstox.ChainRow) float64 {
	distinct := make(map[float64]struct{}, len(chain))
	for _, row := range chain {
		distinct[row.StrikePrice] = struct{}{}
	}
	strikes := make([]float64, 0, len(distinct))
	for s := range distinct {
		strikes = append(strikes, s)
	}
	sort.Float64s(strikes)

	counts := make(map[float64]int)
	for i := 1; i < len(strikes); i++ {
		gap := strikes[i] - strikes[i-1]
		if gap > 0 {
			counts[gap]++
		}
	}

	best, bestCount := 0.0, 0
	for gap, count := range counts {
		if count > bestCount || (count == bestCount && gap < best) {
			best, bestCount = gap, count
		}
	}
	if best < 1 {
		return 1
	}
	return best
}

// ATMStrike snaps a spot price to the nearest multiple of the strike
// interval. Recomputed from live spot every cycle so it tracks drift within
// a metadata epoch.
func ATMStrike(spot, interval float64) float64 {
	if interval <= 0 {
		return spot
	}
	return math.Round(math.Round(spot/interval)*interval*100) / 100
}
