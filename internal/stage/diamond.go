package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ecbatch/internal/completion"
	"ecbatch/internal/config"
	"ecbatch/internal/dispatch"
	"ecbatch/internal/logging"
	"ecbatch/internal/services"
	"ecbatch/internal/toolexec"
)

// CombinedResultsFile collects every category's diamond hits after a run.
const CombinedResultsFile = "all_results.m8"

// Diamond runs diamond blastp of each category FASTA against its .dmnd database.
type Diamond struct {
	base
	cfg      *config.Config
	template toolexec.Template
}

// NewDiamond constructs the sequence comparison stage.
func NewDiamond(cfg *config.Config, opts ...Option) (*Diamond, error) {
	tmpl, err := toolexec.ParseTemplate(cfg.Diamond.Args)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, NameDiamond, "parse template", "diamond.args", err)
	}
	return &Diamond{base: newBase(NameDiamond, cfg.Workers.StderrLimit, opts), cfg: cfg, template: tmpl}, nil
}

// Name implements Handler.
func (d *Diamond) Name() string { return NameDiamond }

// Checker implements Handler.
func (d *Diamond) Checker() dispatch.Checker { return completion.NonEmptyFile{} }

// HealthCheck implements Handler.
func (d *Diamond) HealthCheck(context.Context) Health {
	return toolHealth(NameDiamond, d.cfg.Diamond.Binary)
}

// Plan pairs every FASTA file with the same-named .dmnd database. FASTA files
// without a database are skipped with a warning.
func (d *Diamond) Plan(context.Context) (Plan, error) {
	var plan Plan
	entries, err := os.ReadDir(d.cfg.Paths.FastaDir)
	if err != nil {
		return plan, services.Wrap(services.ErrConfiguration, NameDiamond, "list fasta", d.cfg.Paths.FastaDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".fasta") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		baseName := strings.TrimSuffix(name, ".fasta")
		key := strings.TrimPrefix(baseName, "EC_")
		dmnd := filepath.Join(d.cfg.Paths.DiamondDBDir, baseName+".dmnd")
		if _, err := os.Stat(dmnd); err != nil {
			logging.WarnWithContext(d.logger, "no diamond database for fasta file", "diamond_db_missing",
				logging.Category(key),
				logging.String("fasta", name),
				logging.String("expected", dmnd),
				logging.String(logging.FieldErrorHint, "build the database with diamond makedb"),
				logging.String(logging.FieldImpact, "category is not compared"),
			)
			continue
		}
		plan.Jobs = append(plan.Jobs, dispatch.Job{
			Category: key,
			Stage:    NameDiamond,
			Inputs:   []string{filepath.Join(d.cfg.Paths.FastaDir, name), dmnd},
			Target:   filepath.Join(d.cfg.Paths.DiamondOutputDir, baseName+".m8"),
		})
	}
	return plan, nil
}

// Execute runs diamond for one category.
func (d *Diamond) Execute(ctx context.Context, job dispatch.Job) (string, error) {
	if len(job.Inputs) < 2 {
		return "", services.Wrap(services.ErrConfiguration, NameDiamond, "execute", "job needs a fasta file and a database", nil)
	}
	if err := os.MkdirAll(filepath.Dir(job.Target), 0o755); err != nil {
		return "", services.Wrap(services.ErrExternalTool, NameDiamond, "create output directory", job.Target, err)
	}
	inv := toolexec.Invocation{
		Binary: d.cfg.Diamond.Binary,
		Args: d.template.Expand(toolexec.Values{
			Mode:         d.cfg.Diamond.Mode,
			Threads:      d.cfg.Diamond.Threads,
			QueryPath:    job.Inputs[0],
			DatabasePath: job.Inputs[1],
			OutputPath:   job.Target,
			FormatSpec:   d.cfg.Diamond.FormatSpec,
			MaxAccept:    d.cfg.Diamond.MaxTargets,
		}),
	}
	return runTool(ctx, d.executor, d.logger, inv)
}

// Finalize concatenates the per-category outputs of successful and skipped
// jobs into CombinedResultsFile, in category order.
func (d *Diamond) Finalize(_ context.Context, results []dispatch.Result) error {
	var targets []string
	for _, r := range results {
		if r.Status == dispatch.StatusFailure {
			continue
		}
		targets = append(targets, r.Job.Target)
	}
	if len(targets) == 0 {
		return nil
	}
	combined := filepath.Join(d.cfg.Paths.DiamondOutputDir, CombinedResultsFile)
	partial := combined + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("create combined results: %w", err)
	}
	for _, target := range targets {
		if err := appendFile(out, target); err != nil {
			_ = out.Close()
			_ = os.Remove(partial)
			return err
		}
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("close combined results: %w", err)
	}
	if err := os.Rename(partial, combined); err != nil {
		return fmt.Errorf("publish combined results: %w", err)
	}
	d.logger.Info("combined diamond results written",
		logging.Path(combined),
		logging.Int("categories", len(targets)),
	)
	return nil
}

func appendFile(dst io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer in.Close()
	if _, err := io.Copy(dst, in); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}
