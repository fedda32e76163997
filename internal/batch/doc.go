// Package batch sequences stages for one ecbatch invocation.
//
// A Runner holds an exclusive lock on the log directory for the duration of a
// run, verifies the environment with preflight, assigns a run ID, and feeds
// each stage's results to its result log and the run ledger. Stages run in
// the order requested; a stage that cannot be planned ends the run, while
// per-category failures never do.
package batch
