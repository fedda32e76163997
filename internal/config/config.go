package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains input and output directory configuration.
type Paths struct {
	ProteinDirs      []string `toml:"protein_dirs"`
	MetadataDir      string   `toml:"metadata_dir"`
	CategoryDir      string   `toml:"category_dir"`
	DatabaseDir      string   `toml:"database_dir"`
	AlignmentDir     string   `toml:"alignment_dir"`
	FastaDir         string   `toml:"fasta_dir"`
	DiamondDBDir     string   `toml:"diamond_db_dir"`
	DiamondOutputDir string   `toml:"diamond_output_dir"`
	LogDir           string   `toml:"log_dir"`
}

// Index describes how structure files are recognized and how category
// metadata files are discovered.
type Index struct {
	Prefix              string   `toml:"prefix"`
	Marker              string   `toml:"marker"`
	Extensions          []string `toml:"extensions"`
	PreferredExtensions []string `toml:"preferred_extensions"`
	MetadataGlob        string   `toml:"metadata_glob"`
	CategoryPattern     string   `toml:"category_pattern"`
}

// Materialize controls how resolved files are placed in category directories.
type Materialize struct {
	// Mode is "symlink" (relative links) or "copy" (verified copies).
	Mode string `toml:"mode"`
}

// Foldseek contains structural comparison settings.
type Foldseek struct {
	Binary          string   `toml:"binary"`
	CreateDBThreads int      `toml:"createdb_threads"`
	SearchThreads   int      `toml:"search_threads"`
	MaxAccept       int      `toml:"max_accept"`
	FormatOutput    string   `toml:"format_output"`
	CreateDBArgs    []string `toml:"createdb_args"`
	SearchArgs      []string `toml:"search_args"`
}

// Diamond contains sequence alignment settings.
type Diamond struct {
	Binary         string   `toml:"binary"`
	Mode           string   `toml:"mode"`
	Threads        int      `toml:"threads"`
	MaxTargets     int      `toml:"max_targets"`
	FormatSpec     string   `toml:"format_spec"`
	SequenceColumn int      `toml:"sequence_column"`
	Args           []string `toml:"args"`
}

// Workers controls the bounded dispatch pool.
type Workers struct {
	Concurrency int `toml:"concurrency"`
	StderrLimit int `toml:"stderr_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for ecbatch.
//
// Configuration sections by subsystem:
//   - Paths: structure roots, metadata, and every output directory
//   - Index: filename recognition and category discovery
//   - Materialize: symlink or copy placement of resolved files
//   - Foldseek: createdb and easy-search invocation
//   - Diamond: blastp invocation
//   - Workers: dispatch concurrency and stderr capture bound
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Index       Index       `toml:"index"`
	Materialize Materialize `toml:"materialize"`
	Foldseek    Foldseek    `toml:"foldseek"`
	Diamond     Diamond     `toml:"diamond"`
	Workers     Workers     `toml:"workers"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ecbatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	// A missing .env is the common case.
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ecbatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories. Input directories
// are never created; preflight reports them when missing.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.CategoryDir,
		c.Paths.DatabaseDir,
		c.Paths.AlignmentDir,
		c.Paths.DiamondOutputDir,
		c.Paths.LogDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreationLogPath returns the append-only result log for database builds.
func (c *Config) CreationLogPath() string {
	return filepath.Join(c.Paths.DatabaseDir, "creation.log")
}

// LedgerPath returns the SQLite run ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.LogDir, "ledger.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
