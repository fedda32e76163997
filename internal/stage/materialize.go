package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ecbatch/internal/category"
	"ecbatch/internal/completion"
	"ecbatch/internal/config"
	"ecbatch/internal/dispatch"
	"ecbatch/internal/fileindex"
	"ecbatch/internal/fileutil"
	"ecbatch/internal/logging"
	"ecbatch/internal/services"
)

const maxListedDrops = 20

// Materialize resolves every category's members and places the chosen files
// in <category_dir>/<key>, as relative symlinks or verified copies.
type Materialize struct {
	base
	cfg *config.Config
	// dropped is filled by Plan and only read afterwards.
	dropped map[string][]string
}

// NewMaterialize constructs the partitioning stage.
func NewMaterialize(cfg *config.Config, opts ...Option) *Materialize {
	return &Materialize{
		base:    newBase(NameMaterialize, cfg.Workers.StderrLimit, opts),
		cfg:     cfg,
		dropped: make(map[string][]string),
	}
}

// Name implements Handler.
func (m *Materialize) Name() string { return NameMaterialize }

// Checker implements Handler.
func (m *Materialize) Checker() dispatch.Checker { return completion.LinkSet{} }

// HealthCheck implements Handler.
func (m *Materialize) HealthCheck(context.Context) Health {
	for _, root := range m.cfg.Paths.ProteinDirs {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			return Unhealthy(NameMaterialize, fmt.Sprintf("structure root %s unavailable", root))
		}
	}
	if info, err := os.Stat(m.cfg.Paths.MetadataDir); err != nil || !info.IsDir() {
		return Unhealthy(NameMaterialize, fmt.Sprintf("metadata directory %s unavailable", m.cfg.Paths.MetadataDir))
	}
	return Healthy(NameMaterialize)
}

// Plan builds the structure index once and resolves every membership file
// against it.
func (m *Materialize) Plan(ctx context.Context) (Plan, error) {
	var plan Plan
	keyPattern, err := regexp.Compile(m.cfg.Index.CategoryPattern)
	if err != nil {
		return plan, services.Wrap(services.ErrConfiguration, NameMaterialize, "plan", "category pattern", err)
	}

	index, err := fileindex.Build(ctx, m.cfg.Paths.ProteinDirs, fileindex.Pattern{
		Prefix:     m.cfg.Index.Prefix,
		Marker:     m.cfg.Index.Marker,
		Extensions: m.cfg.Index.Extensions,
	}, m.logger)
	if err != nil {
		return plan, err
	}

	sources, rejected, err := category.Discover(m.cfg.Paths.MetadataDir, m.cfg.Index.MetadataGlob, keyPattern)
	if err != nil {
		return plan, err
	}
	for _, path := range rejected {
		logging.WarnWithContext(m.logger, "ignoring metadata file with invalid category key", "category_key_invalid",
			logging.Path(path),
			logging.String(logging.FieldErrorHint, "rename the file to EC_<a.b.c.d>.csv"),
			logging.String(logging.FieldImpact, "category is not partitioned"),
		)
	}

	for _, src := range sources {
		target := filepath.Join(m.cfg.Paths.CategoryDir, src.Key)
		cat, err := src.Load()
		if err != nil {
			plan.Failed = append(plan.Failed, dispatch.Result{
				Job:    dispatch.Job{Category: src.Key, Stage: NameMaterialize, Target: target},
				Status: dispatch.StatusFailure,
				Detail: fmt.Sprintf("metadata: %s", src.Path),
				Err:    err,
			})
			continue
		}
		set := category.Resolve(cat, index, m.cfg.Index.PreferredExtensions)
		if len(set.Dropped) > 0 {
			m.logger.Debug("category members missing from index",
				logging.Category(src.Key),
				logging.Int("dropped", len(set.Dropped)),
				logging.Int("members", len(cat.Members)),
			)
		}
		plan.Jobs = append(plan.Jobs, dispatch.Job{
			Category: src.Key,
			Stage:    NameMaterialize,
			Inputs:   set.Paths(),
			Target:   target,
			Dropped:  len(set.Dropped),
		})
		m.rememberDrops(src.Key, set.Dropped)
	}

	m.logger.Info("categories planned",
		logging.Int("categories", len(plan.Jobs)),
		logging.Int("unplannable", len(plan.Failed)),
		logging.Int("rejected_files", len(rejected)),
	)
	return plan, nil
}

// Execute places every input of job in its category directory. All inputs are
// attempted; any failure fails the category with ErrLinkCreation.
func (m *Materialize) Execute(_ context.Context, job dispatch.Job) (string, error) {
	if err := os.MkdirAll(job.Target, 0o755); err != nil {
		return "", services.Wrap(services.ErrLinkCreation, NameMaterialize, "create category directory", job.Target, err)
	}
	place := fileutil.SymlinkRelative
	if m.cfg.Materialize.Mode == "copy" {
		place = fileutil.CopyFileVerified
	}

	var created, existing int
	var failures []string
	for _, input := range job.Inputs {
		dest := filepath.Join(job.Target, filepath.Base(input))
		ok, err := place(input, dest)
		switch {
		case err != nil:
			failures = append(failures, fmt.Sprintf("%s -> %s: %v", input, dest, err))
		case ok:
			created++
		default:
			existing++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "mode: %s\nplaced: %d\nexisting: %d", m.cfg.Materialize.Mode, created, existing)
	if dropped := m.drops(job.Category); len(dropped) > 0 {
		listed := dropped
		if len(listed) > maxListedDrops {
			listed = listed[:maxListedDrops]
		}
		fmt.Fprintf(&b, "\nmissing members: %s", strings.Join(listed, ", "))
		if len(dropped) > len(listed) {
			fmt.Fprintf(&b, " (+%d more)", len(dropped)-len(listed))
		}
	}
	if len(failures) > 0 {
		for _, failure := range failures {
			b.WriteString("\n" + failure)
		}
		return b.String(), services.Wrap(services.ErrLinkCreation, NameMaterialize, "place files",
			fmt.Sprintf("%d of %d files failed", len(failures), len(job.Inputs)), nil)
	}
	return b.String(), nil
}

func (m *Materialize) rememberDrops(key string, ids []string) {
	if len(ids) == 0 {
		delete(m.dropped, key)
		return
	}
	m.dropped[key] = ids
}

func (m *Materialize) drops(key string) []string {
	return m.dropped[key]
}
