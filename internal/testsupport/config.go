package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ecbatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig returns a config whose every directory lives under a fresh
// t.TempDir(). The protein and metadata directories exist on return; output
// directories are left for EnsureDirectories.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	in := func(name string) string { return filepath.Join(base, name) }
	cfg.Paths = config.Paths{
		ProteinDirs:      []string{in("proteins")},
		MetadataDir:      in("metadata"),
		CategoryDir:      in("categories"),
		DatabaseDir:      in("databases"),
		AlignmentDir:     in("alignments"),
		FastaDir:         in("fasta"),
		DiamondDBDir:     in("dmnd"),
		DiamondOutputDir: in("diamond"),
		LogDir:           in("logs"),
	}
	cfg.Workers.Concurrency = 2
	mkdirs(t, cfg.Paths.ProteinDirs[0], cfg.Paths.MetadataDir)

	b := &configBuilder{t: t, baseDir: base, cfg: &cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b.cfg
}

func mkdirs(t testing.TB, dirs ...string) {
	t.Helper()
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
}

// WithProteinRoots replaces the structure roots with the named subdirectories
// of the test base directory, creating each one.
func WithProteinRoots(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.ProteinDirs = b.cfg.Paths.ProteinDirs[:0]
		for _, name := range names {
			b.cfg.Paths.ProteinDirs = append(b.cfg.Paths.ProteinDirs, filepath.Join(b.baseDir, name))
		}
		mkdirs(b.t, b.cfg.Paths.ProteinDirs...)
	}
}

// WithConcurrency overrides the dispatch worker count.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workers.Concurrency = n
	}
}

// WithMaterializeMode sets symlink or copy placement.
func WithMaterializeMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Materialize.Mode = mode
	}
}

// WithStubbedBinaries puts always-succeeding executables named foldseek and
// diamond (or the given names) first on PATH for the rest of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"foldseek", "diamond"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		mkdirs(b.t, binDir)
		for _, name := range names {
			if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		previous := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+previous); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() { _ = os.Setenv("PATH", previous) })
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
