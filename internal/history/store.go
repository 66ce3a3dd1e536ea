package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"goldmap/internal/company"
)

// ErrRunNotFound is returned when no run matches an ID or prefix.
var ErrRunNotFound = errors.New("run not found")

// ErrAmbiguousRun is returned when a prefix matches more than one run.
var ErrAmbiguousRun = errors.New("run id prefix is ambiguous")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

var runColumns = []string{
	"run_id", "started_at", "finished_at", "variant", "resumed", "interrupted",
	"entities", "records", "matched", "manual", "unmatched", "logos_verified",
}

var mappingColumns = []string{
	"company_id", "company_name", "tsx_code", "goldstock_id", "goldstock_name",
	"match_status", "confidence_score", "match_method",
}

// Run is the archived summary of one invocation.
type Run struct {
	ID            string        `json:"run_id"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Variant       string        `json:"variant"`
	Resumed       bool          `json:"resumed"`
	Interrupted   bool          `json:"interrupted"`
	Entities      int           `json:"entities"`
	Records       int           `json:"records"`
	Tally         company.Tally `json:"tally"`
	LogosVerified int           `json:"logos_verified"`
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// RecordRun stores a run and its mapping table in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, mappings []company.Mapping) error {
	if run.ID == "" {
		return errors.New("run id required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := psql.Insert("runs").Columns(runColumns...).Values(
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Variant,
		run.Resumed,
		run.Interrupted,
		run.Entities,
		run.Records,
		run.Tally.Matched,
		run.Tally.Manual,
		run.Tally.Unmatched,
		run.LogosVerified,
	).ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, m := range mappings {
		query, args, err := psql.Insert("run_mappings").
			Columns(append([]string{"run_id", "position"}, mappingColumns...)...).
			Values(run.ID, i, m.CompanyID, m.CompanyName, nullable(m.TSXCode), nullable(m.ExternalID),
				nullable(m.ExternalName), string(m.Status), m.Confidence, string(m.Method)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build mapping insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert mapping for company %d: %w", m.CompanyID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	builder := psql.Select(runColumns...).From("runs").OrderBy("started_at DESC", "run_id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	return s.queryRuns(ctx, builder)
}

// FindRun returns the run whose ID equals or starts with prefix.
func (s *Store) FindRun(ctx context.Context, prefix string) (Run, error) {
	if prefix == "" {
		return Run{}, ErrRunNotFound
	}
	runs, err := s.queryRuns(ctx, psql.Select(runColumns...).From("runs").
		Where(sq.Or{sq.Eq{"run_id": prefix}, sq.Like{"run_id": prefix + "%"}}).
		OrderBy("run_id").Limit(2))
	if err != nil {
		return Run{}, err
	}
	switch {
	case len(runs) == 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case len(runs) > 1 && runs[0].ID != prefix:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguousRun, prefix)
	}
	return runs[0], nil
}

// RunMappings returns the mapping table archived with a run, in output order.
func (s *Store) RunMappings(ctx context.Context, runID string) ([]company.Mapping, error) {
	query, args, err := psql.Select(mappingColumns...).From("run_mappings").
		Where(sq.Eq{"run_id": runID}).OrderBy("position").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build mapping query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	var mappings []company.Mapping
	for rows.Next() {
		var (
			m                              company.Mapping
			ticker, externalID, externalNm sql.NullString
			status, method                 string
		)
		if err := rows.Scan(&m.CompanyID, &m.CompanyName, &ticker, &externalID, &externalNm, &status, &m.Confidence, &method); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		m.TSXCode = fromNullable(ticker)
		m.ExternalID = fromNullable(externalID)
		m.ExternalName = fromNullable(externalNm)
		m.Status = company.Status(status)
		m.Method = company.Method(method)
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	return mappings, nil
}

func (s *Store) queryRuns(ctx context.Context, builder sq.SelectBuilder) ([]Run, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build run query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run               Run
			started, finished string
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.Variant, &run.Resumed, &run.Interrupted,
			&run.Entities, &run.Records, &run.Tally.Matched, &run.Tally.Manual, &run.Tally.Unmatched,
			&run.LogosVerified); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func nullable(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func fromNullable(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
