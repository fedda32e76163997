package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIndex()
	c.normalizeTools()
	if err := c.normalizeWorkers(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	roots := make([]string, 0, len(c.Paths.ProteinDirs))
	seen := make(map[string]struct{}, len(c.Paths.ProteinDirs))
	for _, dir := range c.Paths.ProteinDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(dir))
		if err != nil {
			return fmt.Errorf("paths.protein_dirs: %w", err)
		}
		if _, dup := seen[expanded]; dup {
			continue
		}
		seen[expanded] = struct{}{}
		roots = append(roots, expanded)
	}
	c.Paths.ProteinDirs = roots

	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.metadata_dir", &c.Paths.MetadataDir, defaultMetadataDir},
		{"paths.category_dir", &c.Paths.CategoryDir, defaultCategoryDir},
		{"paths.database_dir", &c.Paths.DatabaseDir, defaultDatabaseDir},
		{"paths.alignment_dir", &c.Paths.AlignmentDir, defaultAlignmentDir},
		{"paths.fasta_dir", &c.Paths.FastaDir, defaultFastaDir},
		{"paths.diamond_db_dir", &c.Paths.DiamondDBDir, defaultDiamondDBDir},
		{"paths.diamond_output_dir", &c.Paths.DiamondOutputDir, defaultDiamondOutputDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeIndex() {
	c.Index.Prefix = strings.TrimSpace(c.Index.Prefix)
	c.Index.Marker = strings.TrimSpace(c.Index.Marker)
	c.Index.Extensions = normalizeExtensions(c.Index.Extensions)
	c.Index.PreferredExtensions = normalizeExtensions(c.Index.PreferredExtensions)
	c.Index.MetadataGlob = strings.TrimSpace(c.Index.MetadataGlob)
	if c.Index.MetadataGlob == "" {
		c.Index.MetadataGlob = defaultMetadataGlob
	}
	c.Index.CategoryPattern = strings.TrimSpace(c.Index.CategoryPattern)
	if c.Index.CategoryPattern == "" {
		c.Index.CategoryPattern = defaultCategoryPattern
	}
	c.Materialize.Mode = strings.ToLower(strings.TrimSpace(c.Materialize.Mode))
	if c.Materialize.Mode == "" {
		c.Materialize.Mode = defaultMaterializeMode
	}
}

func (c *Config) normalizeTools() {
	if value, ok := os.LookupEnv("FOLDSEEK_BIN"); ok && strings.TrimSpace(value) != "" {
		c.Foldseek.Binary = value
	}
	c.Foldseek.Binary = strings.TrimSpace(c.Foldseek.Binary)
	c.Foldseek.FormatOutput = strings.TrimSpace(c.Foldseek.FormatOutput)
	if c.Foldseek.FormatOutput == "" {
		c.Foldseek.FormatOutput = defaultFoldseekFormat
	}
	if len(c.Foldseek.CreateDBArgs) == 0 {
		c.Foldseek.CreateDBArgs = append([]string(nil), defaultCreateDBArgs...)
	}
	if len(c.Foldseek.SearchArgs) == 0 {
		c.Foldseek.SearchArgs = append([]string(nil), defaultSearchArgs...)
	}

	if value, ok := os.LookupEnv("DIAMOND_BIN"); ok && strings.TrimSpace(value) != "" {
		c.Diamond.Binary = value
	}
	c.Diamond.Binary = strings.TrimSpace(c.Diamond.Binary)
	c.Diamond.Mode = strings.TrimSpace(c.Diamond.Mode)
	if c.Diamond.Mode == "" {
		c.Diamond.Mode = defaultDiamondMode
	}
	c.Diamond.FormatSpec = strings.TrimSpace(c.Diamond.FormatSpec)
	if c.Diamond.FormatSpec == "" {
		c.Diamond.FormatSpec = defaultDiamondFormat
	}
	if len(c.Diamond.Args) == 0 {
		c.Diamond.Args = append([]string(nil), defaultDiamondArgs...)
	}
}

func (c *Config) normalizeWorkers() error {
	if value, ok := os.LookupEnv("ECBATCH_WORKERS"); ok && strings.TrimSpace(value) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("ECBATCH_WORKERS: %w", err)
		}
		c.Workers.Concurrency = n
	}
	if c.Workers.StderrLimit <= 0 {
		c.Workers.StderrLimit = defaultStderrLimit
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// normalizeExtensions lowercases, dot-prefixes, and de-duplicates extensions
// while keeping their configured order.
func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
