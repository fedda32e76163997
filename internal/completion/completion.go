// Package completion decides whether a job's output already exists so reruns
// can skip it. Checks look at existence and size only; file contents are never
// validated, so a crashed build that left every marker behind is treated as
// complete.
package completion

import (
	"os"
	"path/filepath"

	"ecbatch/internal/dispatch"
)

// DefaultMarkerSuffixes are the files a finished foldseek database leaves
// beside its basename.
var DefaultMarkerSuffixes = []string{".dbtype", ".index", ".source"}

// Markers treats a job as complete when every <Target><suffix> file exists.
type Markers struct {
	Suffixes []string
}

// Complete implements dispatch.Checker.
func (m Markers) Complete(job dispatch.Job) bool {
	suffixes := m.Suffixes
	if len(suffixes) == 0 {
		suffixes = DefaultMarkerSuffixes
	}
	if job.Target == "" {
		return false
	}
	for _, suffix := range suffixes {
		if !isRegular(job.Target + suffix) {
			return false
		}
	}
	return true
}

// NonEmptyFile treats a job as complete when Target exists with nonzero size.
type NonEmptyFile struct{}

// Complete implements dispatch.Checker.
func (NonEmptyFile) Complete(job dispatch.Job) bool {
	if job.Target == "" {
		return false
	}
	info, err := os.Stat(job.Target)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// LinkSet treats a materialization job as complete when Target is a directory
// already holding an entry named after every input file.
type LinkSet struct{}

// Complete implements dispatch.Checker.
func (LinkSet) Complete(job dispatch.Job) bool {
	if job.Target == "" {
		return false
	}
	info, err := os.Stat(job.Target)
	if err != nil || !info.IsDir() {
		return false
	}
	for _, input := range job.Inputs {
		if _, err := os.Lstat(filepath.Join(job.Target, filepath.Base(input))); err != nil {
			return false
		}
	}
	return true
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
