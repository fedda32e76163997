package config

import (
	"fmt"
	"regexp"
	"strings"

	"ecbatch/internal/services"
	"ecbatch/internal/toolexec"
)

// Validate ensures the configuration is usable. Every failure is tagged with
// services.ErrConfiguration so callers can treat it as fatal before dispatch.
func (c *Config) Validate() error {
	for _, check := range []func() error{
		c.validatePaths,
		c.validateIndex,
		c.validateMaterialize,
		c.validateFoldseek,
		c.validateDiamond,
		c.validateWorkers,
		c.validateLogging,
	} {
		if err := check(); err != nil {
			return services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if len(c.Paths.ProteinDirs) == 0 {
		return fmt.Errorf("paths.protein_dirs must list at least one directory")
	}
	return nil
}

func (c *Config) validateIndex() error {
	if len(c.Index.Extensions) == 0 {
		return fmt.Errorf("index.extensions must include at least one extension")
	}
	if c.Index.Prefix == "" && c.Index.Marker == "" {
		return fmt.Errorf("index.prefix or index.marker must be set")
	}
	if _, err := regexp.Compile(c.Index.CategoryPattern); err != nil {
		return fmt.Errorf("index.category_pattern: %w", err)
	}
	return nil
}

func (c *Config) validateMaterialize() error {
	switch c.Materialize.Mode {
	case "symlink", "copy":
		return nil
	default:
		return fmt.Errorf("materialize.mode: unsupported value %q (use symlink or copy)", c.Materialize.Mode)
	}
}

func (c *Config) validateFoldseek() error {
	if c.Foldseek.Binary == "" {
		return fmt.Errorf("foldseek.binary must be set (or export FOLDSEEK_BIN)")
	}
	if err := ensurePositiveMap(map[string]int{
		"foldseek.createdb_threads": c.Foldseek.CreateDBThreads,
		"foldseek.search_threads":   c.Foldseek.SearchThreads,
		"foldseek.max_accept":       c.Foldseek.MaxAccept,
	}); err != nil {
		return err
	}
	if _, err := toolexec.ParseTemplate(c.Foldseek.CreateDBArgs); err != nil {
		return fmt.Errorf("foldseek.createdb_args: %w", err)
	}
	if _, err := toolexec.ParseTemplate(c.Foldseek.SearchArgs); err != nil {
		return fmt.Errorf("foldseek.search_args: %w", err)
	}
	return nil
}

func (c *Config) validateDiamond() error {
	if c.Diamond.Binary == "" {
		return fmt.Errorf("diamond.binary must be set (or export DIAMOND_BIN)")
	}
	if err := ensurePositiveMap(map[string]int{
		"diamond.threads":     c.Diamond.Threads,
		"diamond.max_targets": c.Diamond.MaxTargets,
	}); err != nil {
		return err
	}
	if c.Diamond.SequenceColumn < 1 {
		return fmt.Errorf("diamond.sequence_column must be >= 1 (column 0 holds the identifier)")
	}
	if _, err := toolexec.ParseTemplate(c.Diamond.Args); err != nil {
		return fmt.Errorf("diamond.args: %w", err)
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if c.Workers.Concurrency <= 0 {
		return fmt.Errorf("workers.concurrency must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", strings.TrimSpace(c.Logging.Level))
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
