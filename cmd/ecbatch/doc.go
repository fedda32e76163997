// Package main hosts the ecbatch CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, then hands each batch
// command to internal/batch, which owns locking, preflight, and result
// recording. One-shot helpers (split, fasta) call their packages directly.
// Keep this package thin: new behavior belongs in the internal packages and
// is surfaced here through commands or flags.
package main
