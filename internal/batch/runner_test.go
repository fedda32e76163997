package batch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"ecbatch/internal/batch"
	"ecbatch/internal/config"
	"ecbatch/internal/dispatch"
	"ecbatch/internal/ledger"
	"ecbatch/internal/services"
	"ecbatch/internal/stage"
	"ecbatch/internal/testsupport"
	"ecbatch/internal/toolexec"
)

// fakeFoldseek writes the outputs foldseek would produce.
type fakeFoldseek struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeFoldseek) Run(_ context.Context, inv toolexec.Invocation) (toolexec.Outcome, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	switch inv.Args[0] {
	case "createdb":
		for _, suffix := range []string{".dbtype", ".index", ".source"} {
			if err := os.WriteFile(inv.Args[2]+suffix, []byte("db"), 0o644); err != nil {
				return toolexec.Outcome{}, err
			}
		}
	case "easy-search":
		if err := os.WriteFile(inv.Args[3], []byte("q\tt\t0.9\n"), 0o644); err != nil {
			return toolexec.Outcome{}, err
		}
	}
	return toolexec.Outcome{}, nil
}

func (f *fakeFoldseek) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newPipelineConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries(), testsupport.WithConcurrency(3))
	root := cfg.Paths.ProteinDirs[0]
	testsupport.WriteStructure(t, root, "P12345", ".pdb")
	testsupport.WriteStructure(t, root, "P67890", ".pdb.gz")
	testsupport.WriteMetadata(t, cfg.Paths.MetadataDir, "1.1.1.1", "P12345")
	testsupport.WriteMetadata(t, cfg.Paths.MetadataDir, "3.3.3.3", "P67890", "Q99999")
	return cfg
}

func TestRunPipelineIsIdempotent(t *testing.T) {
	cfg := newPipelineConfig(t)
	tool := &fakeFoldseek{}

	runner, err := batch.New(cfg, nil, batch.WithStageOptions(stage.WithExecutor(tool)))
	if err != nil {
		t.Fatal(err)
	}
	first, err := runner.Run(context.Background(), batch.Pipeline...)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first.Reports) != 3 || !first.OK() {
		t.Fatalf("unexpected outcome %+v", first)
	}
	if first.Total.Succeeded != 6 || first.Total.Dropped != 1 {
		t.Fatalf("unexpected totals %+v", first.Total)
	}
	if tool.count() != 4 {
		t.Fatalf("expected 4 tool invocations, got %d", tool.count())
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.AlignmentDir, "ec_3_3_3_3", "align.m8")); err != nil {
		t.Fatalf("alignment missing: %v", err)
	}
	logText, err := os.ReadFile(cfg.CreationLogPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logText), "[SUCCESS] 1.1.1.1") {
		t.Fatalf("creation log missing success block:\n%s", logText)
	}

	second, err := runner.Run(context.Background(), batch.Pipeline...)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Total.Skipped != 6 || second.Total.Succeeded != 0 {
		t.Fatalf("rerun should skip everything: %+v", second.Total)
	}
	if tool.count() != 4 {
		t.Fatalf("rerun invoked the tool again: %d calls", tool.count())
	}
	if first.RunID == second.RunID {
		t.Fatal("runs should get distinct IDs")
	}

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 6 {
		t.Fatalf("expected one ledger row per stage per run, got %d", len(runs))
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	cfg := newPipelineConfig(t)
	runner, err := batch.New(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	held := flock.New(runner.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer held.Unlock()

	_, err = runner.Run(context.Background(), stage.NameMaterialize)
	if !errors.Is(err, batch.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunPreflightFailureIsFatal(t *testing.T) {
	cfg := newPipelineConfig(t)
	cfg.Foldseek.Binary = "ecbatch-missing-foldseek"
	tool := &fakeFoldseek{}
	runner, err := batch.New(cfg, nil, batch.WithStageOptions(stage.WithExecutor(tool)))
	if err != nil {
		t.Fatal(err)
	}
	_, err = runner.Run(context.Background(), stage.NameCreateDB)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if tool.count() != 0 {
		t.Fatal("no tool should run after a failed preflight")
	}
}

func TestRunUnknownStage(t *testing.T) {
	runner, err := batch.New(testsupport.NewConfig(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Run(context.Background(), "compress"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRunStoppedSkipsRemainingStages(t *testing.T) {
	cfg := newPipelineConfig(t)
	token := dispatch.NewStopToken()
	token.Stop()
	tool := &fakeFoldseek{}
	runner, err := batch.New(cfg, nil, batch.WithStopToken(token), batch.WithStageOptions(stage.WithExecutor(tool)))
	if err != nil {
		t.Fatal(err)
	}
	outcome, err := runner.Run(context.Background(), batch.Pipeline...)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !outcome.Interrupted || outcome.OK() || len(outcome.Reports) != 0 || tool.count() != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
}

func TestScopeFor(t *testing.T) {
	scope := batch.ScopeFor(stage.NameMaterialize, stage.NameSearch)
	if !scope.Partition || !scope.Foldseek || scope.Diamond {
		t.Fatalf("unexpected scope %+v", scope)
	}
}

func TestResultLogPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if got := batch.ResultLogPath(cfg, stage.NameCreateDB); got != cfg.CreationLogPath() {
		t.Fatalf("createdb log = %s", got)
	}
	if got := batch.ResultLogPath(cfg, stage.NameSearch); got != filepath.Join(cfg.Paths.LogDir, "search.log") {
		t.Fatalf("search log = %s", got)
	}
}
