// Package fileindex builds an immutable identifier → file lookup over one or
// more structure roots.
//
// Filenames follow the AF-<id>-F1-model_v4<ext> convention; the prefix, marker,
// and recognized extensions are configurable. Each root is walked once, roots
// are walked concurrently, and the results are merged in root order so the
// variant list for an identifier is deterministic. Unreadable subtrees are
// recorded on the index and skipped; the rest of the scan continues.
package fileindex
