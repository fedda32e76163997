package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ecbatch/internal/config"
	"ecbatch/internal/services"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	for _, dir := range append([]string{cfg.Paths.MetadataDir, cfg.Paths.CategoryDir, cfg.Paths.LogDir}, cfg.Paths.ProteinDirs...) {
		if !filepath.IsAbs(dir) {
			t.Fatalf("expected absolute path, got %q", dir)
		}
	}
	if cfg.Workers.Concurrency != 8 {
		t.Fatalf("unexpected default concurrency: %d", cfg.Workers.Concurrency)
	}
	if got := strings.Join(cfg.Index.PreferredExtensions, ","); got != ".pdb,.pdb.gz" {
		t.Fatalf("unexpected preferred extensions: %s", got)
	}
	if cfg.Materialize.Mode != "symlink" {
		t.Fatalf("unexpected materialize mode: %q", cfg.Materialize.Mode)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ecbatch.toml")

	type payload struct {
		Paths struct {
			ProteinDirs []string `toml:"protein_dirs"`
			LogDir      string   `toml:"log_dir"`
		} `toml:"paths"`
		Index struct {
			Extensions []string `toml:"extensions"`
		} `toml:"index"`
		Workers struct {
			Concurrency int `toml:"concurrency"`
		} `toml:"workers"`
	}
	custom := payload{}
	custom.Paths.ProteinDirs = []string{filepath.Join(tempDir, "a"), filepath.Join(tempDir, "a"), filepath.Join(tempDir, "b")}
	custom.Paths.LogDir = filepath.Join(tempDir, "logs")
	custom.Index.Extensions = []string{"PDB", ".cif.gz"}
	custom.Workers.Concurrency = 3
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if len(cfg.Paths.ProteinDirs) != 2 {
		t.Fatalf("expected duplicate protein dirs to collapse, got %v", cfg.Paths.ProteinDirs)
	}
	if got := strings.Join(cfg.Index.Extensions, ","); got != ".pdb,.cif.gz" {
		t.Fatalf("unexpected normalized extensions: %s", got)
	}
	if cfg.Workers.Concurrency != 3 {
		t.Fatalf("expected concurrency 3, got %d", cfg.Workers.Concurrency)
	}
}

func TestEnvVarOverridesBinaries(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FOLDSEEK_BIN", "/opt/foldseek/bin/foldseek")
	t.Setenv("DIAMOND_BIN", "/opt/diamond")
	t.Setenv("ECBATCH_WORKERS", "2")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Foldseek.Binary != "/opt/foldseek/bin/foldseek" {
		t.Errorf("expected foldseek binary from env, got %q", cfg.Foldseek.Binary)
	}
	if cfg.Diamond.Binary != "/opt/diamond" {
		t.Errorf("expected diamond binary from env, got %q", cfg.Diamond.Binary)
	}
	if cfg.Workers.Concurrency != 2 {
		t.Errorf("expected workers from env, got %d", cfg.Workers.Concurrency)
	}
}

func TestInvalidWorkersEnvFailsLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ECBATCH_WORKERS", "many")
	if _, _, _, err := config.Load(""); err == nil {
		t.Fatal("expected error for non-numeric ECBATCH_WORKERS")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Index.Prefix != "AF-" {
		t.Fatalf("expected sample prefix AF-, got %q", cfg.Index.Prefix)
	}
	if len(cfg.Paths.ProteinDirs) == 0 {
		t.Fatal("expected sample to list protein dirs")
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"workers":       func(c *config.Config) { c.Workers.Concurrency = 0 },
		"extensions":    func(c *config.Config) { c.Index.Extensions = nil },
		"mode":          func(c *config.Config) { c.Materialize.Mode = "hardlink" },
		"foldseek bin":  func(c *config.Config) { c.Foldseek.Binary = "" },
		"diamond bin":   func(c *config.Config) { c.Diamond.Binary = "" },
		"pattern":       func(c *config.Config) { c.Index.CategoryPattern = "([" },
		"template":      func(c *config.Config) { c.Foldseek.SearchArgs = []string{"{mode}", "{bogus}"} },
		"search thread": func(c *config.Config) { c.Foldseek.SearchThreads = 0 },
		"log format":    func(c *config.Config) { c.Logging.Format = "xml" },
		"seq column":    func(c *config.Config) { c.Diamond.SequenceColumn = 0 },
		"log level":     func(c *config.Config) { c.Logging.Level = "verbose" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration marker, got %v", err)
			}
		})
	}
}

func TestValidateAcceptsLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error"} {
		cfg := config.Default()
		cfg.Logging.Level = level
		if err := cfg.Validate(); err != nil {
			t.Fatalf("level %q rejected: %v", level, err)
		}
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestEnsureDirectoriesCreatesOutputs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CategoryDir = filepath.Join(base, "cats")
	cfg.Paths.DatabaseDir = filepath.Join(base, "dbs")
	cfg.Paths.AlignmentDir = filepath.Join(base, "aln")
	cfg.Paths.DiamondOutputDir = filepath.Join(base, "dmnd-out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CategoryDir, cfg.Paths.DatabaseDir, cfg.Paths.AlignmentDir, cfg.Paths.DiamondOutputDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
	if filepath.Dir(cfg.CreationLogPath()) != cfg.Paths.DatabaseDir {
		t.Fatalf("unexpected creation log path %q", cfg.CreationLogPath())
	}
}
