package dispatch

import (
	"context"
	"strings"
	"time"
)

// Status classifies a job result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailure Status = "failure"
)

// Tag returns the upper-case label used in the result log.
func (s Status) Tag() string {
	return strings.ToUpper(string(s))
}

// Job is one unit of work for a single category.
type Job struct {
	Category string
	Stage    string
	// Inputs holds the resolved files, or the database path for tool stages.
	Inputs []string
	// Target is the expected output location consulted by completion checks.
	Target  string
	Dropped int
}

// Result is the outcome of a job that ran.
type Result struct {
	Job      Job
	Status   Status
	Detail   string
	Dropped  int
	Duration time.Duration
	Err      error
}

// ExecuteFunc performs a job and returns a diagnostic detail. A non-nil error
// classifies the job as failed.
type ExecuteFunc func(ctx context.Context, job Job) (string, error)

// Checker reports whether a job's work is already done.
type Checker interface {
	Complete(job Job) bool
}

// CheckFunc adapts a function to the Checker interface.
type CheckFunc func(job Job) bool

// Complete implements Checker.
func (f CheckFunc) Complete(job Job) bool { return f(job) }

// Recorder receives every result as soon as its job finishes. Implementations
// must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, category string, result Result) error
}

// MultiRecorder fans a result out to several recorders. Every recorder is
// called even when an earlier one fails; the first error is returned.
type MultiRecorder []Recorder

// Record implements Recorder.
func (m MultiRecorder) Record(ctx context.Context, category string, result Result) error {
	var first error
	for _, rec := range m {
		if rec == nil {
			continue
		}
		if err := rec.Record(ctx, category, result); err != nil && first == nil {
			first = err
		}
	}
	return first
}
