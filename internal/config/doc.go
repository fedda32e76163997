// Package config loads, normalizes, and validates ecbatch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// FOLDSEEK_BIN and DIAMOND_BIN (a .env file in the working directory is loaded
// first). The Config type centralizes every knob the batch stages need: where
// structure files and category metadata live, where category directories,
// databases, and alignments are written, how external tools are invoked, and
// how many workers run at once.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, validated argument templates, and clear configuration errors.
package config
