package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ecbatch/internal/config"
	"ecbatch/internal/dispatch"
	"ecbatch/internal/services"
)

const (
	maxDetailBytes = 4096
	// timeLayout is fixed width so stored timestamps sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store manages the run ledger backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database at cfg.LedgerPath.
func Open(cfg *config.Config) (*Store, error) {
	return OpenPath(cfg.LedgerPath())
}

// OpenPath opens the ledger at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}
	// Pragmas go in the DSN so every connection gets them; run through db.Exec
	// they would only reach whichever pooled connection executed them.
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes this process's writes in Go; busy_timeout
	// covers readers and writers in other processes.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect ledger %s: %w", dbPath, err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

var pragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// dsn appends the pragmas in the form modernc.org/sqlite applies on connect.
func dsn(path string) string {
	return path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun records the start of one stage of a run. A multi-stage run stores
// one row per stage under the same id.
func (s *Store) BeginRun(ctx context.Context, id, stage string, submitted int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, stage, started_at, submitted) VALUES (?, ?, ?, ?)`,
		id, stage, formatTime(time.Now()), submitted,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the summary counts of one stage of a run.
func (s *Store) FinishRun(ctx context.Context, id, stage string, summary dispatch.Summary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs
         SET finished_at = ?, submitted = ?, succeeded = ?, skipped = ?, failed = ?, not_started = ?, dropped = ?
         WHERE id = ? AND stage = ?`,
		formatTime(time.Now()),
		summary.Submitted,
		summary.Succeeded,
		summary.Skipped,
		summary.Failed,
		summary.NotStarted,
		summary.Dropped,
		id,
		stage,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "ledger", "finish run", id+"/"+stage, nil)
	}
	return nil
}

// Recorder returns a dispatch.Recorder that files results under runID and the
// stage named by each result's job. BeginRun must have been called for that
// stage first.
func (s *Store) Recorder(runID string) dispatch.Recorder {
	return &runRecorder{store: s, runID: runID}
}

type runRecorder struct {
	store *Store
	runID string
}

func (r *runRecorder) Record(ctx context.Context, category string, result dispatch.Result) error {
	return r.store.insertResult(ctx, r.runID, category, result)
}

func (s *Store) insertResult(ctx context.Context, runID, category string, result dispatch.Result) error {
	var errMessage string
	if result.Err != nil {
		errMessage = result.Err.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_results (
            run_id, category, stage, status, dropped, detail, error_kind, error_message, duration_ms, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		category,
		result.Job.Stage,
		string(result.Status),
		result.Dropped,
		nullableString(truncate(result.Detail, maxDetailBytes)),
		nullableString(services.Kind(result.Err)),
		nullableString(errMessage),
		result.Duration.Milliseconds(),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert job result: %w", err)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, stage, started_at, finished_at, submitted, succeeded, skipped, failed, not_started, dropped
         FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run         Run
			startedRaw  string
			finishedRaw sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Stage, &startedRaw, &finishedRaw,
			&run.Submitted, &run.Succeeded, &run.Skipped, &run.Failed, &run.NotStarted, &run.Dropped); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(startedRaw)
		if finishedRaw.Valid {
			finished := parseTime(finishedRaw.String)
			run.FinishedAt = &finished
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ByCategory returns the latest results for one category, newest first.
func (s *Store) ByCategory(ctx context.Context, category string, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryResults(ctx,
		`WHERE category = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`, category, limit)
}

// ResultsForRun returns every result recorded under runID in insertion order.
func (s *Store) ResultsForRun(ctx context.Context, runID string) ([]JobRecord, error) {
	return s.queryResults(ctx, `WHERE run_id = ? ORDER BY id`, runID)
}

func (s *Store) queryResults(ctx context.Context, clause string, args ...any) ([]JobRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, category, stage, status, dropped, detail, error_kind, error_message, duration_ms, recorded_at
         FROM job_results `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query job results: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var (
			rec         JobRecord
			status      string
			detail      sql.NullString
			kind        sql.NullString
			message     sql.NullString
			durationMS  int64
			recordedRaw string
		)
		if err := rows.Scan(&rec.RunID, &rec.Category, &rec.Stage, &status, &rec.Dropped,
			&detail, &kind, &message, &durationMS, &recordedRaw); err != nil {
			return nil, fmt.Errorf("scan job result: %w", err)
		}
		rec.Status = dispatch.Status(status)
		rec.Detail = detail.String
		rec.ErrorKind = kind.String
		rec.ErrorMessage = message.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.RecordedAt = parseTime(recordedRaw)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
