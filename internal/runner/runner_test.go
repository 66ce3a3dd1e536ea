package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldmap/internal/checkpoint"
	"goldmap/internal/company"
	"goldmap/internal/config"
	"goldmap/internal/goldstock"
	"goldmap/internal/history"
	"goldmap/internal/normalize"
	"goldmap/internal/recordcache"
	"goldmap/internal/resolve"
)

const companiesJSON = `[
	{"company_id": 10, "company_name": "Agnico Eagle Mines Ltd", "tsx_code": "TSX:AEM"},
	{"company_id": 2001, "company_name": "Abc Gold Corp", "tsx_code": "CVE:ABC"},
	{"company_id": 2002, "company_name": "Kinross Gold Corporation", "tsx_code": null},
	{"company_id": 2003, "company_name": "Nowhere Platinum Holdings", "tsx_code": null}
]`

type stubFetcher struct {
	mu      sync.Mutex
	records map[int]company.Record
	calls   int
	t       *testing.T
	forbid  bool
}

func (s *stubFetcher) Fetch(_ context.Context, id int) (*company.Record, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.forbid {
		s.t.Errorf("unexpected fetch of id %d", id)
	}
	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("company %d: %w", id, goldstock.ErrNotFound)
	}
	rec = rec.WithAliases(normalize.Aliases(rec.Name)...)
	return &rec, nil
}

func (s *stubFetcher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubLogos map[string]bool

func (s stubLogos) VerifyLogo(_ context.Context, externalID string) bool {
	return s[externalID]
}

func newStubFetcher(t *testing.T) *stubFetcher {
	return &stubFetcher{t: t, records: map[int]company.Record{
		2: {ExternalID: "2", Name: "ABC Gold Corp", Ticker: "ABC.V", Exchange: "TSXV"},
		3: {ExternalID: "3", Name: "Kinross Gold Corp"},
	}}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		Input:      filepath.Join(dir, "companies.json"),
		Output:     filepath.Join(dir, "company_mappings.csv"),
		Cache:      filepath.Join(dir, "goldstock_cache.json"),
		Checkpoint: filepath.Join(dir, "mapping_checkpoint.json"),
		HistoryDB:  filepath.Join(dir, "history.db"),
		LogFile:    filepath.Join(dir, "mapping_log.txt"),
		LockFile:   filepath.Join(dir, "goldmap.lock"),
	}
	cfg.Fetch = config.Fetch{StartID: 1, MaxID: 4, Workers: 2, FlushEvery: 2}
	cfg.Matching = config.Matching{Variant: config.VariantExtended, FuzzyFloor: 70, MatchedThreshold: 85, CheckpointEvery: 2}
	require.NoError(t, os.WriteFile(cfg.Paths.Input, []byte(companiesJSON), 0o644))
	return &cfg
}

func noFuzzy(string, string) int { return 0 }

func runOnce(t *testing.T, ctx context.Context, cfg *config.Config, opts Options) (Summary, error) {
	t.Helper()
	if opts.Scorer == nil {
		opts.Scorer = noFuzzy
	}
	r, err := New(cfg, opts, nil)
	require.NoError(t, err)
	return r.Run(ctx)
}

func TestRunResolvesWritesOutputAndArchives(t *testing.T) {
	cfg := testConfig(t)
	fetcher := newStubFetcher(t)

	summary, err := runOnce(t, context.Background(), cfg, Options{Fetcher: fetcher, LogoVerifier: stubLogos{"8": true}})
	require.NoError(t, err)

	assert.False(t, summary.Interrupted)
	assert.Equal(t, 4, summary.Entities)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, company.Tally{Matched: 3, Unmatched: 1}, summary.Tally)
	assert.Equal(t, 3, summary.LogosChecked)
	assert.Equal(t, 1, summary.LogosVerified)
	assert.InDelta(t, 75.0, summary.Percent(summary.Tally.Matched), 0.001)
	assert.NotEmpty(t, summary.RunID)

	data, err := os.ReadFile(cfg.Paths.Output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "company_id,company_name,tsx_code,goldstock_id,goldstock_name,match_status,confidence_score,match_method", lines[0])
	assert.Equal(t, "10,Agnico Eagle Mines Ltd,TSX:AEM,8,Agnico Eagle Mines Ltd,matched,100,known_mapping", lines[1])
	assert.Equal(t, "2001,Abc Gold Corp,CVE:ABC,2,ABC Gold Corp,matched,100,exact_ticker", lines[2])
	assert.Equal(t, "2002,Kinross Gold Corporation,,3,Kinross Gold Corp,matched,95,exact_name", lines[3])
	assert.Equal(t, "2003,Nowhere Platinum Holdings,,,,unmatched,0,none", lines[4])

	_, err = os.Stat(cfg.Paths.Checkpoint)
	assert.ErrorIs(t, err, os.ErrNotExist, "clean completion removes the checkpoint")

	records, negatives := recordcache.Open(cfg.Paths.Cache, nil).Stats()
	assert.Equal(t, 2, records)
	assert.Equal(t, 2, negatives)

	store, err := history.Open(cfg.Paths.HistoryDB)
	require.NoError(t, err)
	defer store.Close()
	run, err := store.FindRun(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, summary.Tally, run.Tally)
	archived, err := store.RunMappings(context.Background(), summary.RunID)
	require.NoError(t, err)
	assert.Len(t, archived, 4)
}

func TestRunReusesCacheIncludingNegatives(t *testing.T) {
	cfg := testConfig(t)
	first := newStubFetcher(t)
	_, err := runOnce(t, context.Background(), cfg, Options{Fetcher: first, LogoVerifier: stubLogos{}})
	require.NoError(t, err)
	assert.Equal(t, 4, first.Calls())

	second := newStubFetcher(t)
	second.forbid = true
	summary, err := runOnce(t, context.Background(), cfg, Options{Fetcher: second, LogoVerifier: stubLogos{}})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Calls())
	assert.Equal(t, 2, summary.Records)
}

func TestResumeWithCompleteCheckpointIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	_, err := runOnce(t, context.Background(), cfg, Options{Fetcher: newStubFetcher(t), LogoVerifier: stubLogos{}})
	require.NoError(t, err)
	before, err := os.ReadFile(cfg.Paths.Output)
	require.NoError(t, err)

	store, err := history.Open(cfg.Paths.HistoryDB)
	require.NoError(t, err)
	runs, err := store.ListRuns(context.Background(), 1)
	require.NoError(t, err)
	mappings, err := store.RunMappings(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, checkpoint.New(cfg.Paths.Checkpoint, nil).Save(mappings))

	fetcher := newStubFetcher(t)
	fetcher.forbid = true
	summary, err := runOnce(t, context.Background(), cfg, Options{Resume: true, Fetcher: fetcher, LogoVerifier: stubLogos{}})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 4, summary.Skipped)
	after, err := os.ReadFile(cfg.Paths.Output)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	_, err = os.Stat(cfg.Paths.Checkpoint)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResumeMergesPriorMappingsFirst(t *testing.T) {
	cfg := testConfig(t)
	prior := company.Unmatched(company.Entity{ID: 2003, Name: "Nowhere Platinum Holdings"})
	require.NoError(t, checkpoint.New(cfg.Paths.Checkpoint, nil).Save([]company.Mapping{prior}))

	summary, err := runOnce(t, context.Background(), cfg, Options{Resume: true, Fetcher: newStubFetcher(t), LogoVerifier: stubLogos{}})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)

	data, err := os.ReadFile(cfg.Paths.Output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[1], "2003,"), "checkpointed rows come first")
	assert.True(t, strings.HasPrefix(lines[2], "10,"))
}

func TestRunClearCacheRefetchesNegatives(t *testing.T) {
	cfg := testConfig(t)
	cache := recordcache.Open(cfg.Paths.Cache, nil)
	cache.Put(2, nil)
	require.NoError(t, cache.Flush())

	fetcher := newStubFetcher(t)
	summary, err := runOnce(t, context.Background(), cfg, Options{ClearCache: true, Fetcher: fetcher, LogoVerifier: stubLogos{}})
	require.NoError(t, err)
	assert.Equal(t, 4, fetcher.Calls())
	assert.Equal(t, 2, summary.Records)
}

func TestRunFailsWhenLocked(t *testing.T) {
	cfg := testConfig(t)
	held := flock.New(cfg.Paths.LockFile)
	ok, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer held.Unlock()

	_, err = runOnce(t, context.Background(), cfg, Options{Fetcher: newStubFetcher(t)})
	assert.ErrorIs(t, err, ErrLocked)
}

func TestRunRejectsEmptyInputs(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Paths.Input, []byte(`[]`), 0o644))
	_, err := runOnce(t, context.Background(), cfg, Options{Fetcher: newStubFetcher(t)})
	assert.ErrorIs(t, err, ErrNoEntities)

	cfg = testConfig(t)
	_, err = runOnce(t, context.Background(), cfg, Options{Fetcher: &stubFetcher{t: t}, LogoVerifier: stubLogos{}})
	assert.ErrorIs(t, err, ErrNoRecords)
	_, statErr := os.Stat(cfg.Paths.Output)
	assert.ErrorIs(t, statErr, os.ErrNotExist, "no partial output without records")
}

func TestRunSkipsInvalidCompanyRows(t *testing.T) {
	cfg := testConfig(t)
	input := `[
		{"company_id": 2001, "company_name": "Abc Gold Corp", "tsx_code": "CVE:ABC"},
		{"company_id": 2001, "company_name": "Abc Gold Corp Copy", "tsx_code": null},
		{"company_id": 2004, "company_name": "", "tsx_code": null}
	]`
	require.NoError(t, os.WriteFile(cfg.Paths.Input, []byte(input), 0o644))

	summary, err := runOnce(t, context.Background(), cfg, Options{Fetcher: newStubFetcher(t), LogoVerifier: stubLogos{}})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Entities)
	assert.Equal(t, 2, summary.Rejected)

	data, err := os.ReadFile(cfg.Paths.Output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2001,Abc Gold Corp,CVE:ABC,2,ABC Gold Corp,matched,100,exact_ticker", lines[1])
}

func TestRunInterruptedBeforeFetchReportsWithoutError(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := runOnce(t, ctx, cfg, Options{Fetcher: newStubFetcher(t), LogoVerifier: stubLogos{}})
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 0, summary.Processed)
	_, statErr := os.Stat(cfg.Paths.Output)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

// cancelAfter cancels the run once the given number of companies resolved.
type cancelAfter struct {
	n      int
	cancel context.CancelFunc
}

func (c cancelAfter) Resolved(ev resolve.Resolved) {
	if ev.Position == c.n {
		c.cancel()
	}
}

func (cancelAfter) Checkpointed(resolve.Checkpointed) {}

func TestInterruptedResolveKeepsCheckpointForResume(t *testing.T) {
	cfg := testConfig(t)
	cfg.Matching.CheckpointEvery = 3
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	summary, err := runOnce(t, ctx, cfg, Options{
		Fetcher:         newStubFetcher(t),
		LogoVerifier:    stubLogos{},
		ResolveObserver: cancelAfter{n: 1, cancel: cancel},
	})
	require.NoError(t, err)
	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.Processed)

	state := checkpoint.New(cfg.Paths.Checkpoint, nil).Load()
	assert.Equal(t, []int{10}, state.ProcessedIDs, "interrupted runs keep their checkpoint")
	data, err := os.ReadFile(cfg.Paths.Output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "10,"))

	resumed, err := runOnce(t, context.Background(), cfg, Options{Resume: true, Fetcher: newStubFetcher(t), LogoVerifier: stubLogos{}})
	require.NoError(t, err)
	assert.False(t, resumed.Interrupted)
	assert.Equal(t, 1, resumed.Skipped)
	assert.Equal(t, 3, resumed.Processed)
	assert.Equal(t, company.Tally{Matched: 3, Unmatched: 1}, resumed.Tally)

	data, err = os.ReadFile(cfg.Paths.Output)
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
	for i, prefix := range []string{"10,", "2001,", "2002,", "2003,"} {
		assert.True(t, strings.HasPrefix(lines[i+1], prefix), "row %d: %s", i+1, lines[i+1])
	}
	_, err = os.Stat(cfg.Paths.Checkpoint)
	assert.ErrorIs(t, err, os.ErrNotExist, "completed resume removes the checkpoint")
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil, Options{}, nil)
	assert.Error(t, err)
}
