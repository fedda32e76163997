package ledger

import (
	"time"

	"ecbatch/internal/dispatch"
)

// Run is one batch invocation of a stage.
type Run struct {
	ID         string
	Stage      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Submitted  int
	Succeeded  int
	Skipped    int
	Failed     int
	NotStarted int
	Dropped    int
}

// Finished reports whether the run recorded a summary.
func (r Run) Finished() bool { return r.FinishedAt != nil }

// JobRecord is one persisted job result.
type JobRecord struct {
	RunID        string
	Category     string
	Stage        string
	Status       dispatch.Status
	Dropped      int
	Detail       string
	ErrorKind    string
	ErrorMessage string
	Duration     time.Duration
	RecordedAt   time.Time
}
