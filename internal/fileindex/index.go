package fileindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"ecbatch/internal/logging"
	"ecbatch/internal/services"
)

// Variant is one on-disk representation of a record.
type Variant struct {
	Path string
	Root string
	Ext  string
}

// Index maps record identifiers to their variants. It is never mutated after
// Build returns, so concurrent lookups need no locking.
type Index struct {
	entries  map[string][]Variant
	order    []string
	files    int
	scanErrs []error
}

// Lookup returns the variants recorded for id in root order, or nil.
func (i *Index) Lookup(id string) []Variant {
	if i == nil {
		return nil
	}
	return slices.Clone(i.entries[id])
}

// Len returns the number of distinct identifiers.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// Files returns the number of indexed files across all identifiers.
func (i *Index) Files() int {
	if i == nil {
		return 0
	}
	return i.files
}

// IDs returns identifiers in first-seen order.
func (i *Index) IDs() []string {
	if i == nil {
		return nil
	}
	return slices.Clone(i.order)
}

// ScanErrors returns the unreadable subtrees encountered while building. Each
// error wraps services.ErrIndexBuild.
func (i *Index) ScanErrors() []error {
	if i == nil {
		return nil
	}
	return slices.Clone(i.scanErrs)
}

type entry struct {
	id      string
	variant Variant
}

type rootScan struct {
	entries []entry
	errs    []error
}

// Build walks every root and returns the merged index. A root that is missing
// or not a directory is a configuration error; nothing is scanned in that case.
func Build(ctx context.Context, roots []string, pattern Pattern, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "fileindex")
	if len(roots) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "index", "build", "no structure roots configured", nil)
	}
	pattern = pattern.normalized()
	if len(pattern.Extensions) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "index", "build", "no extensions configured", nil)
	}
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "index", "stat root", root, err)
		}
		if !info.IsDir() {
			return nil, services.Wrap(services.ErrConfiguration, "index", "stat root", root+" is not a directory", nil)
		}
	}

	scans := make([]rootScan, len(roots))
	group, gctx := errgroup.WithContext(ctx)
	for idx, root := range roots {
		group.Go(func() error {
			scan, err := scanRoot(gctx, root, pattern, logger)
			scans[idx] = scan
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	index := &Index{entries: make(map[string][]Variant)}
	for _, scan := range scans {
		for _, e := range scan.entries {
			if _, seen := index.entries[e.id]; !seen {
				index.order = append(index.order, e.id)
			}
			index.entries[e.id] = append(index.entries[e.id], e.variant)
			index.files++
		}
		index.scanErrs = append(index.scanErrs, scan.errs...)
	}

	logger.Info("structure index built",
		logging.Int("roots", len(roots)),
		logging.Int("identifiers", index.Len()),
		logging.Int("files", index.files),
		logging.Int("scan_errors", len(index.scanErrs)),
	)
	return index, nil
}

func scanRoot(ctx context.Context, root string, pattern Pattern, logger *slog.Logger) (rootScan, error) {
	var scan rootScan
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return services.Wrap(services.ErrConfiguration, "index", "read root", root, walkErr)
			}
			scanErr := services.Wrap(services.ErrIndexBuild, "index", "walk", path, walkErr)
			scan.errs = append(scan.errs, scanErr)
			logging.WarnWithContext(logger, "skipping unreadable path", "index_scan_error",
				logging.Path(path),
				logging.Error(walkErr),
				logging.String(logging.FieldErrorHint, "check permissions on the structure directory"),
				logging.String(logging.FieldImpact, "records under this path are treated as absent"),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return ctx.Err()
		}
		id, ext, ok := pattern.match(d.Name())
		if !ok {
			return nil
		}
		scan.entries = append(scan.entries, entry{
			id:      id,
			variant: Variant{Path: path, Root: root, Ext: ext},
		})
		return nil
	})
	if err != nil && !errors.Is(err, fs.SkipDir) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return scan, fmt.Errorf("scan %s: %w", root, err)
		}
		return scan, err
	}
	return scan, nil
}
