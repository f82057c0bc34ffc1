// Package engine runs the periodic refresh loops that keep the shared
// state current: metadata hourly, quotes every few seconds, and the
// volatility proxy in between. Loops never terminate on upstream failure;
// a failed unit of work is skipped for the cycle and retried on the next
// tick.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"upstox-chainwatch/internal/meta"
	"upstox-chainwatch/internal/models"
	"upstox-chainwatch/internal/snapshot"
	"upstox-chainwatch/internal/state"
	"upstox-chainwatch/internal/upstox"
	"upstox-chainwatch/pkg/utils"
)

// Config holds the refresh schedule. Zero fields take defaults.
type Config struct {
	QuoteInterval time.Duration // quote refresh period (default 5s)
	MetaInterval  time.Duration // metadata rebuild period (default 1h)
	VIXInterval   time.Duration // volatility refresh period (default 15s)
	BatchSize     int           // keys per quote request (default 400, API ceiling)
	QuoteWorkers  int           // concurrent batch fetches (default 4)
	FetchTimeout  time.Duration // per-request timeout (default 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		QuoteInterval: 5 * time.Second,
		MetaInterval:  time.Hour,
		VIXInterval:   15 * time.Second,
		BatchSize:     400,
		QuoteWorkers:  4,
		FetchTimeout:  10 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.QuoteInterval <= 0 {
		c.QuoteInterval = d.QuoteInterval
	}
	if c.MetaInterval <= 0 {
		c.MetaInterval = d.MetaInterval
	}
	if c.VIXInterval <= 0 {
		c.VIXInterval = d.VIXInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.QuoteWorkers <= 0 {
		c.QuoteWorkers = d.QuoteWorkers
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
}

// QuoteFetcher is the upstream surface the quote and volatility loops use.
type QuoteFetcher interface {
	GetQuotes(ctx context.Context, keys []models.InstrumentKey) (map[string]upstox.Quote, error)
	GetQuote(ctx context.Context, key models.InstrumentKey) (upstox.Quote, error)
}

// SnapshotSink receives every published snapshot. Delivery is
// fire-and-forget: the engine never waits on or retries the sink.
type SnapshotSink interface {
	Persist(snap *models.MarketSnapshot)
}

// Engine owns the three refresh loops.
type Engine struct {
	cfg      Config
	store    *state.Store
	resolver *meta.Resolver
	targets  []meta.Target
	quotes   QuoteFetcher
	builder  *snapshot.Builder
	sink     SnapshotSink
	logger   zerolog.Logger

	metaReq chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an engine. sink may be nil.
func New(cfg Config, store *state.Store, resolver *meta.Resolver, targets []meta.Target,
	quotes QuoteFetcher, builder *snapshot.Builder, sink SnapshotSink, logger zerolog.Logger) *Engine {
	cfg.applyDefaults()
	return &Engine{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		targets:  targets,
		quotes:   quotes,
		builder:  builder,
		sink:     sink,
		logger:   logger.With().Str("component", "engine").Logger(),
		metaReq:  make(chan struct{}, 1),
	}
}

// Start launches the refresh loops.
func (e *Engine) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(3)
	go e.runMeta()
	go e.runQuotes()
	go e.runVIX()

	e.logger.Info().
		Dur("quote_interval", e.cfg.QuoteInterval).
		Dur("meta_interval", e.cfg.MetaInterval).
		Dur("vix_interval", e.cfg.VIXInterval).
		Int("underlyings", len(e.targets)).
		Msg("refresh loops started")
}

// Stop shuts the loops down and waits for them to drain.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.logger.Info().Msg("refresh loops stopped")
}

// RunQuoteCycleOnce executes a single quote refresh cycle synchronously.
// For one-shot use before Start; the engine must not already be running.
func (e *Engine) RunQuoteCycleOnce(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)
	defer e.cancel()
	e.quoteCycle()
}

// runMeta rebuilds the metadata set on its period, plus whenever the quote
// loop finds the tracked key set empty.
func (e *Engine) runMeta() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.MetaInterval)
	defer ticker.Stop()

	e.metaCycle()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.metaCycle()
		case <-e.metaReq:
			e.metaCycle()
		}
	}
}

func (e *Engine) metaCycle() {
	start := time.Now()
	metas := e.resolver.ResolveAll(e.ctx, e.targets)
	if len(metas) == 0 {
		// Keep the previous epoch rather than wiping the tracked set;
		// the next cycle retries.
		e.logger.Warn().Msg("metadata rebuild produced no underlyings")
		return
	}

	tracked := meta.TrackedKeys(e.targets, metas)
	e.store.ReplaceMeta(metas, tracked)

	e.logger.Info().
		Int("underlyings", len(metas)).
		Int("tracked_keys", len(tracked)).
		Dur("duration", time.Since(start)).
		Msg("metadata rebuilt")
}

// requestMetaRefresh nudges the metadata loop without blocking.
func (e *Engine) requestMetaRefresh() {
	select {
	case e.metaReq <- struct{}{}:
	default:
	}
}

// runQuotes is the main refresh loop: fetch all tracked keys in batches,
// merge, rebuild and publish the snapshot.
func (e *Engine) runQuotes() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.QuoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.quoteCycle()
		}
	}
}

func (e *Engine) quoteCycle() {
	keys := e.store.TrackedKeys()
	if len(keys) == 0 {
		e.requestMetaRefresh()
		return
	}

	start := time.Now()
	merged := e.fetchAll(keys)
	if len(merged) == 0 {
		// Total failure: cache and snapshot stay as they were.
		e.logger.Warn().Int("keys", len(keys)).Msg("quote cycle fetched nothing")
		return
	}

	e.store.MergeQuotes(merged)

	snap := e.builder.Build(e.store.Metas(), e.store.VIX(), utils.NowIST())
	e.store.PublishSnapshot(snap)
	if e.sink != nil {
		e.sink.Persist(snap)
	}

	e.logger.Debug().
		Int("keys", len(keys)).
		Int("updated", len(merged)).
		Int("underlyings", len(snap.Underlyings)).
		Dur("duration", time.Since(start)).
		Msg("quote cycle complete")
}

// fetchAll fetches every batch concurrently with a bounded worker count
// and folds the successes into one record set keyed by the echoed
// instrument token. A failed batch only drops its own keys for this cycle.
func (e *Engine) fetchAll(keys []models.InstrumentKey) map[models.InstrumentKey]models.QuoteRecord {
	batches := chunk(keys, e.cfg.BatchSize)

	sem := make(chan struct{}, e.cfg.QuoteWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	merged := make(map[models.InstrumentKey]models.QuoteRecord)

	for _, batch := range batches {
		wg.Add(1)
		go func(batch []models.InstrumentKey) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-e.ctx.Done():
				return
			}

			ctx, cancel := context.WithTimeout(e.ctx, e.cfg.FetchTimeout)
			defer cancel()

			data, err := e.quotes.GetQuotes(ctx, batch)
			if err != nil {
				e.logger.Warn().Int("batch_size", len(batch)).Err(err).Msg("batch fetch failed")
				return
			}

			mu.Lock()
			for _, q := range data {
				if q.InstrumentToken == "" {
					continue
				}
				merged[models.InstrumentKey(q.InstrumentToken)] = models.QuoteRecord{
					LastPrice:    q.EffectivePrice(),
					OpenInterest: int64(q.OpenInterest),
					Volume:       q.Volume,
				}
			}
			mu.Unlock()
		}(batch)
	}
	wg.Wait()

	return merged
}

// runVIX keeps the volatility proxy fresh. A failed fetch retains the
// previous value indefinitely.
func (e *Engine) runVIX() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.VIXInterval)
	defer ticker.Stop()

	e.vixCycle()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.vixCycle()
		}
	}
}

func (e *Engine) vixCycle() {
	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.FetchTimeout)
	defer cancel()

	q, err := e.quotes.GetQuote(ctx, upstox.VIXKey)
	if err != nil {
		e.logger.Warn().Err(err).Msg("VIX fetch failed")
		return
	}
	if q.LastPrice > 0 {
		e.store.SetVIX(q.LastPrice)
	}
}

func chunk(keys []models.InstrumentKey, size int) [][]models.InstrumentKey {
	var out [][]models.InstrumentKey
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		out = append(out, keys[start:end])
	}
	return out
}
