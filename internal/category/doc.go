// Package category discovers EC category membership files, loads their member
// identifiers, and resolves members against a fileindex.Index.
//
// Membership files are tab-delimited with a header row; column 0 holds the
// record identifier. Resolution is deterministic: for identical inputs the
// resolved file list and the dropped list are identical on every run.
package category
