package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"goldmap/internal/company"
	"goldmap/internal/goldstock"
	"goldmap/internal/logging"
)

// Fetcher retrieves one external record. It returns an error wrapping
// goldstock.ErrNotFound for a confirmed absence.
type Fetcher interface {
	Fetch(ctx context.Context, id int) (*company.Record, error)
}

// Cache is the record store consulted before every fetch.
type Cache interface {
	Get(id int) (*company.Record, bool)
	Put(id int, rec *company.Record)
	Flush() error
}

// Source tells where a completed ID was resolved from.
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// Event describes one completed ID.
type Event struct {
	ID        int
	Record    *company.Record // nil when absent or failed
	Source    Source
	Err       error // transient failure, not cached
	Completed int
	Total     int
	Found     int
}

// Observer receives an Event for every ID that completes before the scan
// stops. It is called from the collecting goroutine only.
type Observer interface {
	Fetched(Event)
}

// Options tune the orchestrator.
type Options struct {
	Workers    int // concurrent fetches; values below 1 mean 1
	FlushEvery int // flush the cache after this many new entries; 0 disables
	LogEvery   int // log throughput every this many found records; 0 disables
}

// Orchestrator runs cache-through fetches over an ID range.
type Orchestrator struct {
	fetcher  Fetcher
	cache    Cache
	opts     Options
	observer Observer
	logger   *slog.Logger
}

// New creates an orchestrator. observer may be nil.
func New(fetcher Fetcher, cache Cache, opts Options, observer Observer, logger *slog.Logger) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Orchestrator{
		fetcher:  fetcher,
		cache:    cache,
		opts:     opts,
		observer: observer,
		logger:   logging.NewComponentLogger(logger, "fetch"),
	}
}

type outcome struct {
	id     int
	record *company.Record
	source Source
	stored bool
	err    error
}

// Run scans [start, maxID] and returns the records found, in completion
// order. It returns an error only for an invalid range; cancellation yields
// the partial result with a nil error, and callers inspect ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, start, maxID int) ([]company.Record, error) {
	if start < 1 || maxID < start {
		return nil, fmt.Errorf("invalid id range [%d, %d]", start, maxID)
	}
	total := maxID - start + 1
	o.logger.Info("fetch phase started",
		logging.String(logging.FieldEventType, "fetch_started"),
		logging.Int("start_id", start),
		logging.Int("max_id", maxID),
		logging.Int("workers", o.opts.Workers))

	results := make(chan outcome)
	done := make(chan struct{})
	defer close(done)

	go o.dispatch(ctx, start, maxID, results, done)

	var (
		records   = make([]company.Record, 0, total/4)
		completed int
		unflushed int
		began     = time.Now()
	)
collect:
	for {
		var res outcome
		var ok bool
		select {
		case <-ctx.Done():
			o.logInterrupted(completed, len(records))
			break collect
		case res, ok = <-results:
			if !ok {
				break collect
			}
		}
		completed++
		if res.stored {
			unflushed++
		}
		if res.record != nil {
			records = append(records, *res.record)
			if o.opts.LogEvery > 0 && len(records)%o.opts.LogEvery == 0 {
				o.logThroughput(len(records), completed, total, began)
			}
		}
		o.report(res, completed, total, len(records))

		if o.opts.FlushEvery > 0 && unflushed >= o.opts.FlushEvery {
			o.flush()
			unflushed = 0
		}
		if ctx.Err() != nil {
			o.logInterrupted(completed, len(records))
			break
		}
	}
	o.flush()

	o.logger.Info("fetch phase finished",
		logging.String(logging.FieldEventType, "fetch_finished"),
		logging.Int("completed", completed),
		logging.Int("found", len(records)),
		logging.Duration("elapsed", time.Since(began)))
	return records, nil
}

// dispatch starts one goroutine per ID, at most Workers at a time, and closes
// results once every started fetch has delivered or been dropped.
func (o *Orchestrator) dispatch(ctx context.Context, start, maxID int, results chan<- outcome, done <-chan struct{}) {
	sem := semaphore.NewWeighted(int64(o.opts.Workers))
	var wg sync.WaitGroup
	for id := start; id <= maxID; id++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer sem.Release(1)
			res := o.fetchOne(ctx, id)
			select {
			case results <- res:
			case <-done:
			}
		}(id)
	}
	wg.Wait()
	close(results)
}

// fetchOne resolves a single ID, storing network results in the cache before
// returning.
func (o *Orchestrator) fetchOne(ctx context.Context, id int) outcome {
	if rec, ok := o.cache.Get(id); ok {
		return outcome{id: id, record: rec, source: SourceCache}
	}

	rec, err := o.fetcher.Fetch(ctx, id)
	switch {
	case err == nil:
		o.cache.Put(id, rec)
		return outcome{id: id, record: rec, source: SourceNetwork, stored: true}
	case errors.Is(err, goldstock.ErrNotFound):
		o.cache.Put(id, nil)
		return outcome{id: id, source: SourceNetwork, stored: true}
	default:
		return outcome{id: id, source: SourceNetwork, err: err}
	}
}

func (o *Orchestrator) report(res outcome, completed, total, found int) {
	switch {
	case res.err != nil && !errors.Is(res.err, context.Canceled) && !errors.Is(res.err, context.DeadlineExceeded):
		o.logger.Warn("fetch failed",
			logging.String(logging.FieldEventType, "fetch_failed"),
			logging.Int(logging.FieldExternalID, res.id),
			logging.Error(res.err),
			logging.String(logging.FieldErrorHint, "the id will be retried on the next run"))
	case res.record != nil && res.source == SourceNetwork:
		o.logger.Info("fetched company",
			logging.Int(logging.FieldExternalID, res.id),
			logging.String("name", res.record.Name),
			logging.String("ticker", res.record.Ticker),
			logging.String("exchange", res.record.Exchange))
	case res.record == nil && res.err == nil:
		o.logger.Debug("company absent",
			logging.Int(logging.FieldExternalID, res.id),
			logging.String("source", string(res.source)))
	}
	if o.observer != nil {
		o.observer.Fetched(Event{
			ID:        res.id,
			Record:    res.record,
			Source:    res.source,
			Err:       res.err,
			Completed: completed,
			Total:     total,
			Found:     found,
		})
	}
}

func (o *Orchestrator) logThroughput(found, completed, total int, began time.Time) {
	elapsed := time.Since(began)
	rate := 0.0
	if seconds := elapsed.Seconds(); seconds > 0 {
		rate = float64(completed) / seconds
	}
	o.logger.Info("fetch progress",
		logging.String(logging.FieldEventType, "fetch_progress"),
		logging.Int("found", found),
		logging.Int("completed", completed),
		logging.Int("total", total),
		logging.Float64("ids_per_second", rate))
}

func (o *Orchestrator) logInterrupted(completed, found int) {
	o.logger.Info("fetch phase interrupted",
		logging.String(logging.FieldEventType, "fetch_interrupted"),
		logging.Int("completed", completed),
		logging.Int("found", found))
}

func (o *Orchestrator) flush() {
	if err := o.cache.Flush(); err != nil {
		logging.WarnWithContext(o.logger, "record cache flush failed", "recordcache_flush_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "unflushed records will be fetched again next run"))
	}
}
