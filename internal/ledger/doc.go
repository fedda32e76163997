// Package ledger persists batch runs and per-category results in SQLite.
//
// The ledger receives the same results as the text result log through a
// dispatch.Recorder and backs the history command. The schema is embedded and
// versioned; a mismatched database must be removed before reuse.
package ledger
