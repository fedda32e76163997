package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ecbatch/internal/dispatch"
	"ecbatch/internal/ledger"
	"ecbatch/internal/services"
	"ecbatch/internal/testsupport"
)

func TestRecorderPersistsResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if err := store.BeginRun(ctx, "run-1", "createdb", 2); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	rec := store.Recorder("run-1")
	failure := dispatch.Result{
		Job:      dispatch.Job{Category: "1.1.1.1", Stage: "createdb"},
		Status:   dispatch.StatusFailure,
		Detail:   "stderr prefix",
		Dropped:  1,
		Duration: 1200 * time.Millisecond,
		Err:      services.Wrap(services.ErrExternalTool, "createdb", "foldseek", "exit status 1", nil),
	}
	if err := rec.Record(ctx, "1.1.1.1", failure); err != nil {
		t.Fatalf("Record: %v", err)
	}
	skipped := dispatch.Result{Job: dispatch.Job{Category: "2.2.2.2", Stage: "createdb"}, Status: dispatch.StatusSkipped}
	if err := rec.Record(ctx, "2.2.2.2", skipped); err != nil {
		t.Fatalf("Record: %v", err)
	}

	records, err := store.ResultsForRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ResultsForRun: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	first := records[0]
	if first.Category != "1.1.1.1" || first.Status != dispatch.StatusFailure || first.Dropped != 1 {
		t.Fatalf("unexpected record %+v", first)
	}
	if first.ErrorKind != "external_tool" || first.Detail != "stderr prefix" || first.Duration != 1200*time.Millisecond {
		t.Fatalf("unexpected record details %+v", first)
	}
	if records[1].ErrorKind != "" || records[1].Status != dispatch.StatusSkipped {
		t.Fatalf("unexpected skipped record %+v", records[1])
	}

	byCategory, err := store.ByCategory(ctx, "2.2.2.2", 10)
	if err != nil {
		t.Fatalf("ByCategory: %v", err)
	}
	if len(byCategory) != 1 || byCategory[0].RunID != "run-1" {
		t.Fatalf("unexpected ByCategory %+v", byCategory)
	}
}

func TestFinishRunAndRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"run-a", "run-b"} {
		if err := store.BeginRun(ctx, id, "partition", 3); err != nil {
			t.Fatalf("BeginRun: %v", err)
		}
	}
	summary := dispatch.Summary{Submitted: 3, Succeeded: 1, Skipped: 1, Failed: 1, Dropped: 4}
	if err := store.FinishRun(ctx, "run-b", "partition", summary); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if err := store.FinishRun(ctx, "missing", "partition", summary); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-b" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if !runs[0].Finished() || runs[0].Failed != 1 || runs[0].Dropped != 4 {
		t.Fatalf("unexpected finished run %+v", runs[0])
	}
	if runs[1].Finished() {
		t.Fatal("run-a should not be finished")
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.BeginRun(context.Background(), "run-1", "search", 1); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	_ = store.Close()

	reopened := testsupport.MustOpenLedger(t, cfg)
	runs, err := reopened.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].Stage != "search" {
		t.Fatalf("unexpected runs after reopen %+v", runs)
	}
}

func TestOpenRejectsForeignSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("stamp version: %v", err)
	}
	_ = db.Close()

	if _, err := ledger.OpenPath(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}

	// Reopening a current ledger is a no-op.
	fresh := filepath.Join(t.TempDir(), "fresh.db")
	for i := 0; i < 2; i++ {
		s, err := ledger.OpenPath(fresh)
		if err != nil {
			t.Fatalf("OpenPath #%d: %v", i+1, err)
		}
		_ = s.Close()
	}
}

func TestConcurrentRecordersKeepEveryResult(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := testsupport.MustOpenLedger(t, cfg)
	// A second handle on the same file stands in for another process, so the
	// writers contend on the SQLite lock rather than only on Go's pool.
	second := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	if err := first.BeginRun(ctx, "run-c", "createdb", 0); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	const workers, perWorker = 16, 50
	errs := make(chan error, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		store := first
		if w%2 == 1 {
			store = second
		}
		rec := store.Recorder("run-c")
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				category := fmt.Sprintf("%d.%d.0.0", w, i)
				res := dispatch.Result{Job: dispatch.Job{Category: category, Stage: "createdb"}, Status: dispatch.StatusSkipped}
				if err := rec.Record(ctx, category, res); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Record failed under contention: %v", err)
	}

	records, err := first.ResultsForRun(ctx, "run-c")
	if err != nil {
		t.Fatalf("ResultsForRun: %v", err)
	}
	if len(records) != workers*perWorker {
		t.Fatalf("stored %d results, want %d", len(records), workers*perWorker)
	}
}
