// Package snapshot combines the metadata set, the quote cache and the
// volatility proxy into the consolidated per-cycle market view.
package snapshot

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"upstox-chainwatch/internal/meta"
	"upstox-chainwatch/internal/models"
	"upstox-chainwatch/internal/pricing"
	"upstox-chainwatch/internal/refdata"
	"upstox-chainwatch/pkg/utils"
)

const (
	// riskFreeRate feeds every pricing model.
	riskFreeRate = 0.10
	// referenceVol is the fixed volatility for the Black-Scholes
	// reference column.
	referenceVol = 0.14
	// Dynamic volatility derived from the VIX proxy is clamped to this
	// band for stability.
	volFloor = 0.05
	volCap   = 0.35
	// maxPairs is how far from ATM row generation walks before stopping.
	maxPairs = 6
	// statusPair is the single strike distance whose time-value skew
	// fixes the underlying's classification. Desk convention: a positive
	// skew at the second pair reads NEGATIVE, and vice versa.
	statusPair = 2
)

// QuoteSource is the read side of the quote cache.
type QuoteSource interface {
	Quote(key models.InstrumentKey) (models.QuoteRecord, bool)
	LastPrice(key models.InstrumentKey) float64
}

// Builder assembles MarketSnapshot values.
type Builder struct {
	quotes QuoteSource
	ref    *refdata.Tables
	logger zerolog.Logger
}

// NewBuilder creates a snapshot builder.
func NewBuilder(quotes QuoteSource, ref *refdata.Tables, logger zerolog.Logger) *Builder {
	return &Builder{
		quotes: quotes,
		ref:    ref,
		logger: logger.With().Str("component", "snapshot").Logger(),
	}
}

// Build produces a snapshot from the given metadata set and volatility
// proxy. Underlyings whose spot is unobserved, or that yield no rows, are
// left out; the result is sorted by descending weight.
func (b *Builder) Build(metas map[string]*models.UnderlyingMeta, vix float64, now time.Time) *models.MarketSnapshot {
	underlyings := make([]models.UnderlyingSnapshot, 0, len(metas))
	for _, m := range metas {
		u := b.buildUnderlying(m, vix)
		if u == nil {
			continue
		}
		underlyings = append(underlyings, *u)
	}

	sort.Slice(underlyings, func(i, j int) bool {
		if underlyings[i].Weight != underlyings[j].Weight {
			return underlyings[i].Weight > underlyings[j].Weight
		}
		return underlyings[i].Name < underlyings[j].Name
	})

	return &models.MarketSnapshot{
		Timestamp:   utils.Timestamp(now),
		Summary:     tally(underlyings),
		Underlyings: underlyings,
	}
}

// buildUnderlying produces one underlying's analytics table, or nil when
// its spot has not been observed yet or no strike pair has live prices.
func (b *Builder) buildUnderlying(m *models.UnderlyingMeta, vix float64) *models.UnderlyingSnapshot {
	spot := b.quotes.LastPrice(m.SpotKey)
	if spot == 0 {
		b.logger.Debug().Str("underlying", m.Name).Msg("spot not yet observed")
		return nil
	}

	atm := meta.ATMStrike(spot, m.StrikeInterval)
	tYears := utils.DaysToExpiry(m.Expiry) / 365.0
	dynamicVol := clamp(vix/100.0, volFloor, volCap)
	lot := b.ref.LotSize(m.Name)
	status := models.ClassNeutral

	var rows []models.DerivedRow
	for n := 1; n <= maxPairs; n++ {
		ceStrike := atm - float64(n)*m.StrikeInterval
		peStrike := atm + float64(n)*m.StrikeInterval

		ce, ceOK := b.quotes.Quote(m.CallKeyAt(ceStrike))
		pe, peOK := b.quotes.Quote(m.PutKeyAt(peStrike))
		// Rows are emitted strictly near-to-far: the first missing leg
		// ends generation even if farther pairs have data.
		if !ceOK || !peOK || ce.LastPrice == 0 || pe.LastPrice == 0 {
			break
		}

		row := deriveRow(n, spot, ceStrike, peStrike, ce, pe, tYears, dynamicVol, lot)
		if n == statusPair {
			switch {
			case row.Diff > 0:
				status = models.ClassNegative
			case row.Diff < 0:
				status = models.ClassPositive
			default:
				status = models.ClassNeutral
			}
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil
	}
	return &models.UnderlyingSnapshot{
		Name:   m.Name,
		Weight: b.ref.Weight(m.Name),
		Status: status,
		Spot:   spot,
		Expiry: m.Expiry,
		Lot:    lot,
		Rows:   rows,
	}
}

// deriveRow computes the analytics for one strike pair.
func deriveRow(n int, spot, ceStrike, peStrike float64, ce, pe models.QuoteRecord, tYears, dynamicVol float64, lot int) models.DerivedRow {
	ceIntrinsic := max0(spot - ceStrike)
	peIntrinsic := max0(peStrike - spot)

	ceTimeValue := utils.Round2(ce.LastPrice - ceIntrinsic)
	peTimeValue := utils.Round2(pe.LastPrice - peIntrinsic)

	ceFV := utils.Round2(pricing.PriceOrZero(pricing.MertonPrice(pricing.Call, spot, ceStrike, tYears, riskFreeRate, dynamicVol)))
	peFV := utils.Round2(pricing.PriceOrZero(pricing.MertonPrice(pricing.Put, spot, peStrike, tYears, riskFreeRate, dynamicVol)))

	ceBS := utils.Round2(pricing.PriceOrZero(pricing.CallPrice(spot, ceStrike, tYears, riskFreeRate, referenceVol)))
	peBS := utils.Round2(pricing.PriceOrZero(pricing.PutPrice(spot, peStrike, tYears, riskFreeRate, referenceVol)))

	ceCS := utils.Round2(pricing.PriceOrZero(pricing.CorradoSuPrice(pricing.Call, spot, ceStrike, tYears, riskFreeRate, dynamicVol)))
	peCS := utils.Round2(pricing.PriceOrZero(pricing.CorradoSuPrice(pricing.Put, spot, peStrike, tYears, riskFreeRate, dynamicVol)))

	diff := utils.Round2(ceTimeValue - peTimeValue)
	fvDiff := utils.Round2(ceFV - peFV)

	return models.DerivedRow{
		Pair: fmt.Sprintf("%v / %v", ceStrike, peStrike),

		CEStrike:    ceStrike,
		CELTP:       utils.Round2(ce.LastPrice),
		CEFairValue: ceFV,
		CEIntrinsic: utils.Round2(ceIntrinsic),
		CETimeValue: ceTimeValue,
		CEBSValue:   ceBS,
		CECSValue:   ceCS,
		CEVolume:    ce.Volume,
		CEOI:        ce.OpenInterest,

		PEStrike:    peStrike,
		PELTP:       utils.Round2(pe.LastPrice),
		PEFairValue: peFV,
		PEIntrinsic: utils.Round2(peIntrinsic),
		PETimeValue: peTimeValue,
		PEBSValue:   peBS,
		PECSValue:   peCS,
		PEVolume:    pe.Volume,
		PEOI:        pe.OpenInterest,

		Diff:          diff,
		FairValueDiff: fvDiff,
		Bias:          biasLabel(diff, fvDiff),
		Lot:           lot,
	}
}

// biasLabel derives the trading bias from the time-value skew, with a
// confirmation marker when the fair-value skew points the same way.
func biasLabel(diff, fvDiff float64) string {
	tvBias := direction(diff)
	if tvBias == "" {
		return ""
	}
	if tvBias == direction(fvDiff) {
		return tvBias + models.ConfirmMark
	}
	return tvBias
}

func direction(diff float64) string {
	switch {
	case diff > 0:
		return models.BiasBuyPE
	case diff < 0:
		return models.BiasBuyCE
	default:
		return ""
	}
}

// tally sums counts and weights per classification.
func tally(underlyings []models.UnderlyingSnapshot) models.Summary {
	var s models.Summary
	for _, u := range underlyings {
		switch u.Status {
		case models.ClassPositive:
			s.PositiveCount++
			s.PositiveWeight += u.Weight
		case models.ClassNegative:
			s.NegativeCount++
			s.NegativeWeight += u.Weight
		default:
			s.NeutralCount++
			s.NeutralWeight += u.Weight
		}
	}
	s.PositiveWeight = utils.Round2(s.PositiveWeight)
	s.NegativeWeight = utils.Round2(s.NegativeWeight)
	s.NeutralWeight = utils.Round2(s.NeutralWeight)
	return s
}

func max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
