// Package runlog appends per-job result blocks to a plain-text log.
//
// Each block is a tag line, a rule, and a diagnostic body:
//
//	[SUCCESS] 1.1.1.1
//	----------------------------------------
//	stage: createdb
//	...
//
// Blocks are written whole under a mutex so concurrent workers never
// interleave.
package runlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ecbatch/internal/dispatch"
)

const rule = "----------------------------------------"

// File is a dispatch.Recorder backed by an append-only file.
type File struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open opens path for appending, creating it and its parent directory.
func Open(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create result log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open result log: %w", err)
	}
	return &File{path: path, file: file}, nil
}

// Path returns the log location.
func (f *File) Path() string { return f.path }

// Record implements dispatch.Recorder.
func (f *File) Record(_ context.Context, category string, result dispatch.Result) error {
	block := FormatBlock(category, result)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return fmt.Errorf("result log %s is closed", f.path)
	}
	if _, err := f.file.WriteString(block); err != nil {
		return fmt.Errorf("append result log: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// FormatBlock renders one result block, including its trailing blank line.
func FormatBlock(category string, result dispatch.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n%s\n", result.Status.Tag(), category, rule)
	if result.Job.Stage != "" {
		fmt.Fprintf(&b, "stage: %s\n", result.Job.Stage)
	}
	if result.Job.Target != "" {
		fmt.Fprintf(&b, "target: %s\n", result.Job.Target)
	}
	fmt.Fprintf(&b, "inputs: %d\n", len(result.Job.Inputs))
	fmt.Fprintf(&b, "dropped: %d\n", result.Dropped)
	fmt.Fprintf(&b, "duration: %s\n", result.Duration.Round(time.Millisecond))
	if result.Err != nil {
		fmt.Fprintf(&b, "error: %s\n", result.Err)
	}
	if detail := strings.TrimRight(result.Detail, "\n"); detail != "" {
		b.WriteString(detail)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}
