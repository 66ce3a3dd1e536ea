package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"goldmap/internal/checkpoint"
	"goldmap/internal/company"
	"goldmap/internal/config"
	"goldmap/internal/fetch"
	"goldmap/internal/goldstock"
	"goldmap/internal/history"
	"goldmap/internal/logging"
	"goldmap/internal/normalize"
	"goldmap/internal/output"
	"goldmap/internal/overrides"
	"goldmap/internal/recordcache"
	"goldmap/internal/resolve"
)

var (
	// ErrNoEntities means the input list was empty after applying the limit.
	ErrNoEntities = errors.New("no companies to process")
	// ErrNoRecords means the fetch phase produced no external records.
	ErrNoRecords = errors.New("no goldstock records fetched")
	// ErrLocked means another run holds the lock file.
	ErrLocked = errors.New("another goldmap run is in progress")
)

// LogoVerifier confirms that an external company has a published logo.
type LogoVerifier interface {
	VerifyLogo(ctx context.Context, externalID string) bool
}

// Options carries per-invocation settings and test seams.
type Options struct {
	Limit      int // cap on companies loaded; 0 means all
	Resume     bool
	ClearCache bool

	// Fetcher and LogoVerifier default to a goldstock client built from the
	// source config.
	Fetcher      fetch.Fetcher
	LogoVerifier LogoVerifier

	FetchObserver   fetch.Observer
	ResolveObserver resolve.Observer
	Scorer          resolve.Scorer
}

// Summary describes the outcome of a run.
type Summary struct {
	RunID         string        `json:"run_id"`
	Variant       string        `json:"variant"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Entities      int           `json:"entities"`
	Skipped       int           `json:"skipped"`
	Rejected      int           `json:"rejected"`
	Processed     int           `json:"processed"`
	Records       int           `json:"records"`
	Tally         company.Tally `json:"tally"`
	LogosChecked  int           `json:"logos_checked"`
	LogosVerified int           `json:"logos_verified"`
	Interrupted   bool          `json:"interrupted"`
	OutputPath    string        `json:"output_path"`
}

// Percent returns n as a share of the output rows.
func (s Summary) Percent(n int) float64 {
	total := s.Tally.Total()
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

// Runner executes mapping runs for one configuration.
type Runner struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger
}

// New validates dependencies and returns a runner.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("runner requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{cfg: cfg, opts: opts, logger: logger}, nil
}

// Run performs one mapping run. Interruption through ctx is not an error:
// the summary reports it after state has been flushed.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	lock, err := acquireLock(r.cfg.Paths.LockFile)
	if err != nil {
		return Summary{}, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	summary := Summary{
		RunID:      uuid.NewString(),
		Variant:    r.cfg.Matching.Variant,
		StartedAt:  time.Now(),
		OutputPath: r.cfg.Paths.Output,
	}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.NewComponentLogger(logging.WithContext(ctx, r.logger), "runner")
	logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.String("variant", summary.Variant),
		logging.Bool("resume", r.opts.Resume),
		logging.Bool("clear_cache", r.opts.ClearCache),
		logging.Int("limit", r.opts.Limit))

	cache := recordcache.Open(r.cfg.Paths.Cache, logger)
	checkpoints := checkpoint.New(r.cfg.Paths.Checkpoint, logger)
	if r.opts.ClearCache {
		if err := clearState(cache, checkpoints); err != nil {
			return summary, err
		}
		logger.Info("cache and checkpoint cleared", logging.String(logging.FieldEventType, "state_cleared"))
	}

	entities, rejected, err := company.LoadEntities(r.cfg.Paths.Input, r.opts.Limit)
	if err != nil {
		return summary, fmt.Errorf("load companies: %w", err)
	}
	for _, row := range rejected {
		logging.WarnWithContext(logger, "company row skipped", "input_row_skipped",
			logging.Int(logging.FieldCompanyID, row.ID),
			logging.Int("index", row.Index),
			logging.Error(row.Reason),
			logging.String(logging.FieldImpact, "row is left out of the mapping table"))
	}
	summary.Rejected = len(rejected)
	if len(entities) == 0 {
		logging.ErrorWithContext(logger, "no companies loaded", "input_empty",
			logging.String("input_path", r.cfg.Paths.Input),
			logging.String(logging.FieldErrorHint, "check paths.input and --limit"))
		return summary, ErrNoEntities
	}
	summary.Entities = len(entities)

	table, err := overrides.Load(r.cfg.Paths.Overrides)
	if err != nil {
		return summary, fmt.Errorf("load overrides: %w", err)
	}

	remaining := entities
	var prior []company.Mapping
	if r.opts.Resume {
		state := checkpoints.Load()
		prior = state.Mappings
		remaining = state.Remaining(entities)
		summary.Skipped = len(entities) - len(remaining)
		logger.Info("resuming from checkpoint",
			logging.String(logging.FieldEventType, "resume"),
			logging.Int("checkpointed", len(prior)),
			logging.Int("remaining", len(remaining)))
	}

	if len(remaining) == 0 {
		logger.Info("all companies already processed", logging.String(logging.FieldEventType, "nothing_remaining"))
		r.writeOutput(logger, prior)
		return r.finish(ctx, logger, summary, cache, checkpoints, prior, false)
	}

	fetcher, verifier, err := r.sources()
	if err != nil {
		return summary, err
	}

	orchestrator := fetch.New(fetcher, cache, fetch.Options{
		Workers:    r.cfg.Fetch.Workers,
		FlushEvery: r.cfg.Fetch.FlushEvery,
		LogEvery:   r.cfg.Fetch.LogEvery,
	}, r.opts.FetchObserver, logger)
	records, err := orchestrator.Run(ctx, r.cfg.Fetch.StartID, r.cfg.Fetch.MaxID)
	if err != nil {
		return summary, fmt.Errorf("fetch records: %w", err)
	}
	summary.Records = len(records)
	if ctx.Err() != nil {
		logger.Info("run interrupted during fetch",
			logging.String(logging.FieldEventType, "run_interrupted"),
			logging.Int("records", len(records)))
		return r.finish(ctx, logger, summary, cache, checkpoints, prior, true)
	}
	if len(records) == 0 {
		logging.ErrorWithContext(logger, "no external records fetched", "fetch_empty",
			logging.String(logging.FieldErrorHint, "check source.base_url and network access"))
		return summary, ErrNoRecords
	}

	rules, _ := normalize.ParseRuleSet(r.cfg.Matching.Variant)
	engine := resolve.New(resolve.BuildIndex(records, rules), table, resolve.Options{
		FuzzyFloor:       r.cfg.Matching.FuzzyFloor,
		MatchedThreshold: r.cfg.Matching.MatchedThreshold,
		CheckpointEvery:  r.cfg.Matching.CheckpointEvery,
		Scorer:           r.opts.Scorer,
	}, resolve.Observers{resolve.NewLogObserver(logger), r.opts.ResolveObserver}, logger)

	flush := func(mappings []company.Mapping) {
		combined := merge(prior, mappings)
		r.writeOutput(logger, combined)
		if err := checkpoints.Save(combined); err != nil {
			logging.WarnWithContext(logger, "checkpoint save failed", "checkpoint_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "resume will repeat work since the last good checkpoint"))
		}
	}
	mappings, interrupted := engine.Resolve(ctx, remaining, flush)
	summary.Processed = len(mappings)
	final := merge(prior, mappings)

	if !interrupted && r.cfg.Source.VerifyLogos && verifier != nil {
		summary.LogosChecked, summary.LogosVerified = verifyLogos(ctx, verifier, final, r.cfg.Fetch.Workers)
	}
	return r.finish(ctx, logger, summary, cache, checkpoints, final, interrupted)
}

// finish flushes the cache, settles the checkpoint, logs the summary and
// archives the run.
func (r *Runner) finish(ctx context.Context, logger *slog.Logger, summary Summary, cache *recordcache.Cache,
	checkpoints *checkpoint.Manager, final []company.Mapping, interrupted bool,
) (Summary, error) {
	if err := cache.Flush(); err != nil {
		logging.WarnWithContext(logger, "cache flush failed", "cache_flush_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "records fetched this run will be fetched again"))
	}
	if !interrupted {
		if err := checkpoints.Delete(); err != nil {
			logging.WarnWithContext(logger, "checkpoint delete failed", "checkpoint_delete_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "a later --resume may skip companies"))
		}
	}

	summary.Interrupted = interrupted
	summary.Tally = company.Count(final)
	summary.FinishedAt = time.Now()
	logger.Info("run summary",
		logging.String(logging.FieldEventType, "run_summary"),
		logging.Int("total", summary.Tally.Total()),
		logging.Int("matched", summary.Tally.Matched),
		logging.Float64("matched_percent", summary.Percent(summary.Tally.Matched)),
		logging.Int("manual", summary.Tally.Manual),
		logging.Float64("manual_percent", summary.Percent(summary.Tally.Manual)),
		logging.Int("unmatched", summary.Tally.Unmatched),
		logging.Float64("unmatched_percent", summary.Percent(summary.Tally.Unmatched)),
		logging.Int("logos_verified", summary.LogosVerified),
		logging.Bool("interrupted", interrupted),
		logging.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)))

	r.archive(context.WithoutCancel(ctx), logger, summary, final)
	return summary, nil
}

func (r *Runner) archive(ctx context.Context, logger *slog.Logger, summary Summary, final []company.Mapping) {
	store, err := history.Open(r.cfg.Paths.HistoryDB)
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is missing from goldmap history"))
		return
	}
	defer store.Close()

	run := history.Run{
		ID:            summary.RunID,
		StartedAt:     summary.StartedAt,
		FinishedAt:    summary.FinishedAt,
		Variant:       summary.Variant,
		Resumed:       r.opts.Resume,
		Interrupted:   summary.Interrupted,
		Entities:      summary.Entities,
		Records:       summary.Records,
		Tally:         summary.Tally,
		LogosVerified: summary.LogosVerified,
	}
	if err := store.RecordRun(ctx, run, final); err != nil {
		logging.WarnWithContext(logger, "history write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is missing from goldmap history"))
	}
}

func (r *Runner) writeOutput(logger *slog.Logger, mappings []company.Mapping) {
	if err := output.WriteCSV(r.cfg.Paths.Output, mappings); err != nil {
		logging.WarnWithContext(logger, "output write failed", "output_write_failed",
			logging.Error(err),
			logging.String("output_path", r.cfg.Paths.Output),
			logging.String(logging.FieldImpact, "mapping table on disk is stale"))
	}
}

func (r *Runner) sources() (fetch.Fetcher, LogoVerifier, error) {
	fetcher, verifier := r.opts.Fetcher, r.opts.LogoVerifier
	if fetcher != nil && (verifier != nil || !r.cfg.Source.VerifyLogos) {
		return fetcher, verifier, nil
	}
	minDelay, maxDelay := r.cfg.Politeness()
	client, err := goldstock.New(r.cfg.Source.BaseURL,
		goldstock.WithHTTPClient(&http.Client{Timeout: r.cfg.RequestTimeoutDuration()}),
		goldstock.WithUserAgent(r.cfg.Source.UserAgent),
		goldstock.WithPoliteness(minDelay, maxDelay),
		goldstock.WithLogoTimeout(r.cfg.LogoTimeoutDuration()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build goldstock client: %w", err)
	}
	if fetcher == nil {
		fetcher = client
	}
	if verifier == nil {
		verifier = client
	}
	return fetcher, verifier, nil
}

func acquireLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, path)
	}
	return lock, nil
}

func clearState(cache *recordcache.Cache, checkpoints *checkpoint.Manager) error {
	if err := cache.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	if err := checkpoints.Delete(); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}

func merge(prior, current []company.Mapping) []company.Mapping {
	out := make([]company.Mapping, 0, len(prior)+len(current))
	out = append(out, prior...)
	return append(out, current...)
}
