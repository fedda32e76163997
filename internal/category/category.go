package category

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"ecbatch/internal/services"
)

// Category is one EC label and its member identifiers in file order.
type Category struct {
	Key     string
	Source  string
	Members []string
}

// Source names a membership file before it is loaded.
type Source struct {
	Key  string
	Path string
}

// Load reads the member list of the source file.
func (s Source) Load() (Category, error) {
	members, err := Load(s.Path)
	if err != nil {
		return Category{}, err
	}
	return Category{Key: s.Key, Source: s.Path, Members: members}, nil
}

// Load reads a tab-delimited membership file, skips the header row, and
// returns column 0 of every non-empty row.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "category", "open metadata", path, err)
	}
	defer file.Close()

	reader := newTSVReader(file)
	members := make([]string, 0, 64)
	header := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if header {
			header = false
			continue
		}
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(row[0])
		if id == "" {
			continue
		}
		members = append(members, id)
	}
	return members, nil
}

// Discover lists membership files in dir matching glob, ordered by key. The key
// is the part of the filename matched by the glob's "*". Files whose key does
// not satisfy keyPattern are returned separately so callers can report them.
func Discover(dir, glob string, keyPattern *regexp.Regexp) ([]Source, []string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "category", "discover", dir, err)
	}
	if !info.IsDir() {
		return nil, nil, services.Wrap(services.ErrConfiguration, "category", "discover", dir+" is not a directory", nil)
	}
	before, after, ok := strings.Cut(glob, "*")
	if !ok {
		return nil, nil, services.Wrap(services.ErrConfiguration, "category", "discover", fmt.Sprintf("metadata glob %q has no wildcard", glob), nil)
	}
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrConfiguration, "category", "discover", "metadata glob", err)
	}

	sources := make([]Source, 0, len(matches))
	var rejected []string
	for _, path := range matches {
		name := filepath.Base(path)
		key := strings.TrimSuffix(strings.TrimPrefix(name, before), after)
		if err := ValidateKey(key, keyPattern); err != nil {
			rejected = append(rejected, path)
			continue
		}
		sources = append(sources, Source{Key: key, Path: path})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Key < sources[j].Key })
	return sources, rejected, nil
}

// ValidateKey checks that key is usable as a directory and database name.
func ValidateKey(key string, pattern *regexp.Regexp) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return services.Wrap(services.ErrConfiguration, "category", "validate key", fmt.Sprintf("invalid category key %q", key), nil)
	}
	if pattern != nil && !pattern.MatchString(key) {
		return services.Wrap(services.ErrConfiguration, "category", "validate key", fmt.Sprintf("category key %q does not match %s", key, pattern), nil)
	}
	return nil
}

// DatabaseName maps a category key to its database basename: 1.1.1.1 becomes
// ec_1_1_1_1.
func DatabaseName(key string) string {
	return "ec_" + strings.ReplaceAll(key, ".", "_")
}

func newTSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false
	return reader
}
