package runlog_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ecbatch/internal/dispatch"
	"ecbatch/internal/runlog"
)

func TestFormatBlock(t *testing.T) {
	block := runlog.FormatBlock("1.1.1.1", dispatch.Result{
		Job:      dispatch.Job{Category: "1.1.1.1", Stage: "createdb", Target: "/db/ec_1_1_1_1", Inputs: []string{"/c/1.1.1.1"}},
		Status:   dispatch.StatusFailure,
		Detail:   "stderr: bad input\n",
		Dropped:  2,
		Duration: 1500 * time.Millisecond,
		Err:      errors.New("exit status 1"),
	})
	want := strings.Join([]string{
		"[FAILURE] 1.1.1.1",
		"----------------------------------------",
		"stage: createdb",
		"target: /db/ec_1_1_1_1",
		"inputs: 1",
		"dropped: 2",
		"duration: 1.5s",
		"error: exit status 1",
		"stderr: bad input",
		"",
		"",
	}, "\n")
	if block != want {
		t.Fatalf("block mismatch\n got: %q\nwant: %q", block, want)
	}
}

func TestFileAppendsWholeBlocksConcurrently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "creation.log")
	log, err := runlog.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	const writers = 50
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("%d.1.1.1", i)
			result := dispatch.Result{Job: dispatch.Job{Category: key}, Status: dispatch.StatusSuccess, Detail: strings.Repeat("x", 2000)}
			if err := log.Record(context.Background(), key, result); err != nil {
				t.Errorf("Record: %v", err)
			}
		}()
	}
	wg.Wait()
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	blocks := strings.Split(strings.TrimSuffix(string(data), "\n\n"), "\n\n")
	if len(blocks) != writers {
		t.Fatalf("got %d blocks, want %d", len(blocks), writers)
	}
	for _, block := range blocks {
		lines := strings.Split(block, "\n")
		if !strings.HasPrefix(lines[0], "[SUCCESS] ") || lines[1] != strings.Repeat("-", 40) {
			t.Fatalf("malformed block header %q", lines[:2])
		}
		if lines[len(lines)-1] != strings.Repeat("x", 2000) {
			t.Fatalf("block body interleaved: %q", lines[len(lines)-1][:20])
		}
	}
}

func TestFileAppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creation.log")
	for _, key := range []string{"1.1.1.1", "2.2.2.2"} {
		log, err := runlog.Open(path)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if err := log.Record(context.Background(), key, dispatch.Result{Status: dispatch.StatusSkipped}); err != nil {
			t.Fatalf("Record: %v", err)
		}
		_ = log.Close()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(string(data), "[SKIPPED]") != 2 {
		t.Fatalf("expected two blocks, got %q", data)
	}
}

func TestRecordAfterClose(t *testing.T) {
	log, err := runlog.Open(filepath.Join(t.TempDir(), "creation.log"))
	if err != nil {
		t.Fatal(err)
	}
	_ = log.Close()
	if err := log.Record(context.Background(), "1.1.1.1", dispatch.Result{Status: dispatch.StatusSuccess}); err == nil {
		t.Fatal("expected error after close")
	}
}
