// Package services defines shared utilities consumed by the batch stages and
// the external tool runners.
//
// Key responsibilities:
//   - Context helpers that stamp category keys, stage names, and run
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep per-category
//     failures classifiable (external tool, link creation, configuration).
//
// Use these helpers when wiring new stage logic so failure classification and
// observability stay uniform across every batch.
package services
