// Package dispatch runs one independent job per category across a fixed pool
// of workers.
//
// Each job is first offered to a completion Checker; complete work is recorded
// as skipped without being executed. Otherwise the job's ExecuteFunc runs and
// its outcome is classified as success or failure. A failing or panicking job
// never affects its siblings. Cancellation is cooperative through a StopToken:
// workers finish the job in hand, start no new one, and Run returns the partial
// results once every worker has drained.
package dispatch
