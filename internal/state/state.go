// Package state owns the shared mutable caches the refresh loops write
// into: the quote cache, the metadata set, the volatility scalar, and the
// latest published snapshot. Each field is mutated through exactly one
// entry point, by the loop that owns it; readers always get a consistent,
// fully-formed value.
package state

import (
	"sync"

	"upstox-chainwatch/internal/models"
)

// DefaultVIX is the volatility baseline used until the first successful
// VIX fetch, as an annualized percentage.
const DefaultVIX = 14.0

// Store is the process-wide cache state.
type Store struct {
	quotesMu sync.RWMutex
	quotes   map[models.InstrumentKey]models.QuoteRecord

	metaMu  sync.RWMutex
	metas   map[string]*models.UnderlyingMeta
	tracked []models.InstrumentKey

	vixMu sync.RWMutex
	vix   float64

	snapMu sync.RWMutex
	latest *models.MarketSnapshot
}

// NewStore creates an empty store with the default volatility baseline.
func NewStore() *Store {
	return &Store{
		quotes: make(map[models.InstrumentKey]models.QuoteRecord),
		metas:  make(map[string]*models.UnderlyingMeta),
		vix:    DefaultVIX,
	}
}

// MergeQuotes upserts a batch of quote records. Last write wins per key;
// existing entries never expire, so a key dropped from one cycle's fetch
// keeps its previous value. Merging the same batch twice is a no-op.
func (s *Store) MergeQuotes(batch map[models.InstrumentKey]models.QuoteRecord) {
	if len(batch) == 0 {
		return
	}
	s.quotesMu.Lock()
	defer s.quotesMu.Unlock()
	for k, v := range batch {
		s.quotes[k] = v
	}
}

// Quote returns the latest record for a key. The zero record with ok=false
// means "never observed"; consumers treat it the same as an observed zero
// price.
func (s *Store) Quote(key models.InstrumentKey) (models.QuoteRecord, bool) {
	s.quotesMu.RLock()
	defer s.quotesMu.RUnlock()
	rec, ok := s.quotes[key]
	return rec, ok
}

// LastPrice returns the cached last price for a key, or 0 when unobserved.
// An empty key always reads as zero.
func (s *Store) LastPrice(key models.InstrumentKey) float64 {
	if key == "" {
		return 0
	}
	rec, _ := s.Quote(key)
	return rec.LastPrice
}

// QuoteCount returns the number of cached quote records.
func (s *Store) QuoteCount() int {
	s.quotesMu.RLock()
	defer s.quotesMu.RUnlock()
	return len(s.quotes)
}

// ReplaceMeta atomically swaps the entire metadata set and the tracked key
// list. Metadata is never patched in place.
func (s *Store) ReplaceMeta(metas map[string]*models.UnderlyingMeta, tracked []models.InstrumentKey) {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	s.metas = metas
	s.tracked = tracked
}

// Metas returns the current metadata set. The map must not be mutated.
func (s *Store) Metas() map[string]*models.UnderlyingMeta {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	return s.metas
}

// TrackedKeys returns the instrument keys the quote loop refreshes.
func (s *Store) TrackedKeys() []models.InstrumentKey {
	s.metaMu.RLock()
	defer s.metaMu.RUnlock()
	return s.tracked
}

// SetVIX overwrites the volatility proxy. Stale values are retained
// indefinitely between successful fetches.
func (s *Store) SetVIX(v float64) {
	s.vixMu.Lock()
	defer s.vixMu.Unlock()
	s.vix = v
}

// VIX returns the current volatility proxy as a percentage.
func (s *Store) VIX() float64 {
	s.vixMu.RLock()
	defer s.vixMu.RUnlock()
	return s.vix
}

// PublishSnapshot atomically replaces the latest snapshot.
func (s *Store) PublishSnapshot(snap *models.MarketSnapshot) {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	s.latest = snap
}

// Latest returns the most recently published snapshot, or nil before the
// first successful cycle.
func (s *Store) Latest() *models.MarketSnapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.latest
}
