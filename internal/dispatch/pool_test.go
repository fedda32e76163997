package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"ecbatch/internal/dispatch"
	"ecbatch/internal/services"
)

func makeJobs(keys ...string) []dispatch.Job {
	jobs := make([]dispatch.Job, len(keys))
	for i, key := range keys {
		jobs[i] = dispatch.Job{Category: key, Stage: "test", Target: "/out/" + key}
	}
	return jobs
}

type memoryRecorder struct {
	mu      sync.Mutex
	records []string
	err     error
}

func (m *memoryRecorder) Record(_ context.Context, category string, result dispatch.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, fmt.Sprintf("%s:%s", category, result.Status))
	return m.err
}

func TestRunIsolatesFailures(t *testing.T) {
	boom := services.Wrap(services.ErrExternalTool, "test", "run", "exit status 1", nil)
	pool := &dispatch.Pool{
		Concurrency: 3,
		Execute: func(_ context.Context, job dispatch.Job) (string, error) {
			if job.Category == "2.2.2.2" {
				return "stderr prefix", boom
			}
			return "ok", nil
		},
	}

	results := pool.Run(context.Background(), makeJobs("1.1.1.1", "2.2.2.2", "3.3.3.3"))
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []dispatch.Status{dispatch.StatusSuccess, dispatch.StatusFailure, dispatch.StatusSuccess} {
		if results[i].Status != want {
			t.Fatalf("result %d status = %s, want %s", i, results[i].Status, want)
		}
	}
	if !errors.Is(results[1].Err, services.ErrExternalTool) || results[1].Detail != "stderr prefix" {
		t.Fatalf("unexpected failure result %+v", results[1])
	}
}

func TestRunRecoversPanics(t *testing.T) {
	pool := &dispatch.Pool{
		Concurrency: 2,
		Execute: func(_ context.Context, job dispatch.Job) (string, error) {
			if job.Category == "bad" {
				panic("kaboom")
			}
			return "", nil
		},
	}
	results := pool.Run(context.Background(), makeJobs("bad", "good"))
	if results[0].Status != dispatch.StatusFailure || results[1].Status != dispatch.StatusSuccess {
		t.Fatalf("unexpected statuses %s/%s", results[0].Status, results[1].Status)
	}
}

func TestRunShortCircuitsCompleteJobs(t *testing.T) {
	var executed atomic.Int32
	rec := &memoryRecorder{}
	pool := &dispatch.Pool{
		Concurrency: 2,
		Checker: dispatch.CheckFunc(func(job dispatch.Job) bool {
			return job.Category == "2.2.2.2"
		}),
		Execute: func(_ context.Context, job dispatch.Job) (string, error) {
			if job.Category == "2.2.2.2" {
				t.Errorf("complete job was executed")
			}
			executed.Add(1)
			return "", nil
		},
		Recorder: rec,
	}

	results := pool.Run(context.Background(), makeJobs("1.1.1.1", "2.2.2.2"))
	if results[1].Status != dispatch.StatusSkipped {
		t.Fatalf("status = %s, want skipped", results[1].Status)
	}
	if executed.Load() != 1 {
		t.Fatalf("executed %d jobs, want 1", executed.Load())
	}
	sort.Strings(rec.records)
	if want := []string{"1.1.1.1:success", "2.2.2.2:skipped"}; !reflect.DeepEqual(rec.records, want) {
		t.Fatalf("records = %v, want %v", rec.records, want)
	}
}

func TestRunSameResultsAcrossConcurrency(t *testing.T) {
	keys := make([]string, 40)
	for i := range keys {
		keys[i] = fmt.Sprintf("%d.1.1.1", i)
	}
	execute := func(_ context.Context, job dispatch.Job) (string, error) {
		if len(job.Category)%2 == 0 {
			return "", errors.New("even")
		}
		return job.Category, nil
	}

	run := func(workers int) []string {
		pool := &dispatch.Pool{Concurrency: workers, Execute: execute}
		var out []string
		for _, r := range pool.Run(context.Background(), makeJobs(keys...)) {
			out = append(out, r.Job.Category+":"+string(r.Status)+":"+r.Detail)
		}
		return out
	}

	serial := run(1)
	parallel := run(8)
	if !reflect.DeepEqual(serial, parallel) {
		t.Fatalf("results differ between 1 and 8 workers\n%v\n%v", serial, parallel)
	}
}

func TestRunStopsBeforeNewJobs(t *testing.T) {
	token := dispatch.NewStopToken()
	pool := &dispatch.Pool{
		Concurrency: 1,
		Stop:        token,
		Execute: func(_ context.Context, job dispatch.Job) (string, error) {
			token.Stop()
			return "", nil
		},
	}
	results := pool.Run(context.Background(), makeJobs("a", "b", "c"))
	if len(results) != 1 || results[0].Job.Category != "a" || results[0].Status != dispatch.StatusSuccess {
		t.Fatalf("unexpected results %+v", results)
	}
	summary := dispatch.Summarize(3, results)
	if summary.NotStarted != 2 || summary.Succeeded != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunCancellationDoesNotReachInFlightWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	token := dispatch.NewStopToken()
	var inFlightErr error
	pool := &dispatch.Pool{
		Concurrency: 1,
		Stop:        token,
		Execute: func(execCtx context.Context, job dispatch.Job) (string, error) {
			cancel()
			<-token.Done()
			inFlightErr = execCtx.Err()
			return "", nil
		},
	}
	results := pool.Run(ctx, makeJobs("a", "b"))
	if inFlightErr != nil {
		t.Fatalf("in-flight context was cancelled: %v", inFlightErr)
	}
	if len(results) != 1 || results[0].Status != dispatch.StatusSuccess {
		t.Fatalf("unexpected results %+v", results)
	}
}

func TestRunAlreadyStopped(t *testing.T) {
	token := dispatch.NewStopToken()
	token.Stop()
	pool := &dispatch.Pool{
		Concurrency: 4,
		Stop:        token,
		Execute: func(context.Context, dispatch.Job) (string, error) {
			t.Error("no job should run")
			return "", nil
		},
	}
	if results := pool.Run(context.Background(), makeJobs("a", "b")); len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestRunRecorderErrorDoesNotFailJob(t *testing.T) {
	rec := &memoryRecorder{err: errors.New("disk full")}
	pool := &dispatch.Pool{
		Execute:  func(context.Context, dispatch.Job) (string, error) { return "", nil },
		Recorder: dispatch.MultiRecorder{rec, nil},
	}
	results := pool.Run(context.Background(), makeJobs("a"))
	if results[0].Status != dispatch.StatusSuccess {
		t.Fatalf("status = %s, want success", results[0].Status)
	}
	if len(rec.records) != 1 {
		t.Fatalf("recorder saw %d records", len(rec.records))
	}
}

func TestRunCarriesCategoryInContext(t *testing.T) {
	pool := &dispatch.Pool{
		Concurrency: 2,
		Execute: func(ctx context.Context, job dispatch.Job) (string, error) {
			key, ok := services.CategoryFromContext(ctx)
			if !ok || key != job.Category {
				return "", fmt.Errorf("category %q missing from context", job.Category)
			}
			return "", nil
		},
	}
	for _, r := range pool.Run(context.Background(), makeJobs("1.1.1.1", "2.2.2.2")) {
		if r.Err != nil {
			t.Fatal(r.Err)
		}
	}
}

func TestSummarize(t *testing.T) {
	results := []dispatch.Result{
		{Status: dispatch.StatusSuccess, Dropped: 1},
		{Status: dispatch.StatusSkipped},
		{Status: dispatch.StatusFailure, Dropped: 2},
	}
	s := dispatch.Summarize(5, results)
	if s.Succeeded != 1 || s.Skipped != 1 || s.Failed != 1 || s.NotStarted != 2 || s.Dropped != 3 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.OK() {
		t.Fatal("summary with failures should not be OK")
	}
	var total dispatch.Summary
	total.Add(s)
	total.Add(dispatch.Summarize(1, []dispatch.Result{{Status: dispatch.StatusSuccess}}))
	if total.Submitted != 6 || total.Succeeded != 2 || len(total.Failures) != 1 {
		t.Fatalf("unexpected merged summary %+v", total)
	}
}

func TestStatusTag(t *testing.T) {
	if dispatch.StatusSuccess.Tag() != "SUCCESS" || dispatch.StatusSkipped.Tag() != "SKIPPED" || dispatch.StatusFailure.Tag() != "FAILURE" {
		t.Fatal("unexpected tags")
	}
}
