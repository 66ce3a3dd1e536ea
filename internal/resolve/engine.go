package resolve

import (
	"context"
	"log/slog"

	"goldmap/internal/company"
	"goldmap/internal/logging"
	"goldmap/internal/normalize"
	"goldmap/internal/overrides"
	"goldmap/internal/textutil"
)

const (
	exactTickerConfidence = 100
	exactNameConfidence   = 95
)

// Scorer returns a similarity in [0, 100] between two normalized names.
type Scorer func(a, b string) int

// FlushFunc persists the mappings produced so far by the current call.
type FlushFunc func(mappings []company.Mapping)

// Options tune the engine. Zero values select the extended-variant defaults.
type Options struct {
	FuzzyFloor       int // minimum accepted fuzzy score
	MatchedThreshold int // fuzzy scores at or above are matched, below are manual
	CheckpointEvery  int // flush after this many entities
	Scorer           Scorer
}

func (o Options) withDefaults() Options {
	if o.FuzzyFloor < 1 {
		o.FuzzyFloor = 70
	}
	if o.MatchedThreshold < 1 {
		o.MatchedThreshold = 85
	}
	if o.CheckpointEvery < 1 {
		o.CheckpointEvery = 10
	}
	if o.Scorer == nil {
		o.Scorer = textutil.TokenSortRatio
	}
	return o
}

// Engine applies the match tiers to internal companies.
type Engine struct {
	index     *Index
	overrides overrides.Table
	opts      Options
	observer  Observer
	logger    *slog.Logger
}

// New creates an engine. observer may be nil.
func New(index *Index, table overrides.Table, opts Options, observer Observer, logger *slog.Logger) *Engine {
	if index == nil {
		index = BuildIndex(nil, normalize.Extended)
	}
	return &Engine{
		index:     index,
		overrides: table,
		opts:      opts.withDefaults(),
		observer:  observer,
		logger:    logging.NewComponentLogger(logger, "resolve"),
	}
}

// Resolve produces one mapping per entity, in input order. flush, when not
// nil, is called after every CheckpointEvery entities and after the last one.
// When ctx is cancelled the loop stops after the entity in progress, flushes
// once more and reports interrupted.
func (e *Engine) Resolve(ctx context.Context, entities []company.Entity, flush FlushFunc) ([]company.Mapping, bool) {
	total := len(entities)
	mappings := make([]company.Mapping, 0, total)
	tickers, names := e.index.Sizes()
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "resolve_started"),
		logging.Int("companies", total),
		logging.Int("records", e.index.Records()),
		logging.Int("ticker_keys", tickers),
		logging.Int("name_keys", names),
		logging.Int("index_collisions", e.index.Collisions()),
		logging.Int("overrides", e.overrides.Len()),
	}
	if e.index.Collisions() > 0 {
		// Shared keys resolve to the record fetched last.
		attrs = append(attrs, logging.Alert("shared name keys resolve to the last fetched record"))
	}
	e.logger.Info("resolution started", logging.Args(attrs...)...)

	for i, entity := range entities {
		if ctx.Err() != nil {
			return mappings, true
		}
		m := e.Match(entity)
		mappings = append(mappings, m)
		if e.observer != nil {
			e.observer.Resolved(Resolved{Position: i + 1, Total: total, Entity: entity, Mapping: m})
		}

		interrupted := ctx.Err() != nil
		switch {
		case (i+1)%e.opts.CheckpointEvery == 0 || i == total-1:
			e.checkpoint(mappings, total, flush, false)
		case interrupted:
			e.checkpoint(mappings, total, flush, true)
		}
		if interrupted {
			e.logger.Info("resolution interrupted",
				logging.String(logging.FieldEventType, "resolve_interrupted"),
				logging.Int("processed", len(mappings)),
				logging.Int("total", total))
			return mappings, true
		}
	}
	return mappings, false
}

func (e *Engine) checkpoint(mappings []company.Mapping, total int, flush FlushFunc, forced bool) {
	if flush != nil {
		flush(mappings)
	}
	if e.observer != nil {
		e.observer.Checkpointed(Checkpointed{
			Processed: len(mappings),
			Total:     total,
			Tally:     company.Count(mappings),
			Forced:    forced,
		})
	}
}

// Match resolves a single entity through the tiers.
func (e *Engine) Match(entity company.Entity) company.Mapping {
	if o, ok := e.overrides.Lookup(entity.ID); ok {
		return company.Matched(entity, o.ExternalID, o.ExternalName, company.StatusMatched, o.Confidence, company.MethodKnownMapping)
	}

	if key := normalize.Ticker(entity.TickerValue()); key != "" {
		if rec, ok := e.index.ByTicker(key); ok {
			return company.Matched(entity, rec.ExternalID, rec.Name, company.StatusMatched, exactTickerConfidence, company.MethodExactTicker)
		}
	}

	nameKey := normalize.Name(entity.Name, e.index.Rules())
	if nameKey == "" {
		return company.Unmatched(entity)
	}
	if rec, ok := e.index.ByName(nameKey); ok {
		return company.Matched(entity, rec.ExternalID, rec.Name, company.StatusMatched, exactNameConfidence, company.MethodExactName)
	}

	best, score := e.bestFuzzy(nameKey)
	if best == nil || score < e.opts.FuzzyFloor {
		return company.Unmatched(entity)
	}
	status := company.StatusManual
	if score >= e.opts.MatchedThreshold {
		status = company.StatusMatched
	}
	return company.Matched(entity, best.ExternalID, best.Name, status, float64(score), company.MethodFuzzyName)
}

// bestFuzzy returns the first candidate with the highest score.
func (e *Engine) bestFuzzy(nameKey string) (*company.Record, int) {
	var (
		best      *company.Record
		bestScore = -1
	)
	for i := range e.index.candidates {
		c := &e.index.candidates[i]
		if c.key == "" {
			continue
		}
		if score := e.opts.Scorer(nameKey, c.key); score > bestScore {
			best, bestScore = &c.record, score
		}
	}
	return best, bestScore
}
