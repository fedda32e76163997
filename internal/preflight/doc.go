// Package preflight provides readiness checks for the tool binaries and
// filesystem paths a batch depends on.
//
// These checks run in two contexts:
//   - Every batch command calls Require before dispatch. Any failed check is a
//     configuration error, so nothing is started against a doomed setup.
//   - The CLI "ecbatch status" command renders RunAll's results as a table.
package preflight
