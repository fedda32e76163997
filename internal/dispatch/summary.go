package dispatch

// Summary aggregates the results of one Run.
type Summary struct {
	Submitted  int
	Succeeded  int
	Skipped    int
	Failed     int
	NotStarted int
	Dropped    int
	Failures   []Result
}

// Summarize counts results against the number of submitted jobs.
func Summarize(submitted int, results []Result) Summary {
	s := Summary{Submitted: submitted}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			s.Succeeded++
		case StatusSkipped:
			s.Skipped++
		case StatusFailure:
			s.Failed++
			s.Failures = append(s.Failures, r)
		}
		s.Dropped += r.Dropped
	}
	s.NotStarted = submitted - len(results)
	if s.NotStarted < 0 {
		s.NotStarted = 0
	}
	return s
}

// Add merges another summary into s, for multi-stage runs.
func (s *Summary) Add(other Summary) {
	s.Submitted += other.Submitted
	s.Succeeded += other.Succeeded
	s.Skipped += other.Skipped
	s.Failed += other.Failed
	s.NotStarted += other.NotStarted
	s.Dropped += other.Dropped
	s.Failures = append(s.Failures, other.Failures...)
}

// OK reports whether no job failed.
func (s Summary) OK() bool {
	return s.Failed == 0
}
