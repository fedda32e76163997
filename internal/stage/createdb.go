package stage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"ecbatch/internal/category"
	"ecbatch/internal/completion"
	"ecbatch/internal/config"
	"ecbatch/internal/dispatch"
	"ecbatch/internal/fileindex"
	"ecbatch/internal/logging"
	"ecbatch/internal/services"
	"ecbatch/internal/toolexec"
)

// CreateDB builds one foldseek database per category directory.
type CreateDB struct {
	base
	cfg      *config.Config
	template toolexec.Template
}

// NewCreateDB constructs the database build stage.
func NewCreateDB(cfg *config.Config, opts ...Option) (*CreateDB, error) {
	tmpl, err := toolexec.ParseTemplate(cfg.Foldseek.CreateDBArgs)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, NameCreateDB, "parse template", "foldseek.createdb_args", err)
	}
	return &CreateDB{base: newBase(NameCreateDB, cfg.Workers.StderrLimit, opts), cfg: cfg, template: tmpl}, nil
}

// Name implements Handler.
func (c *CreateDB) Name() string { return NameCreateDB }

// Checker implements Handler.
func (c *CreateDB) Checker() dispatch.Checker { return completion.Markers{} }

// HealthCheck implements Handler.
func (c *CreateDB) HealthCheck(context.Context) Health {
	return toolHealth(NameCreateDB, c.cfg.Foldseek.Binary)
}

// Plan lists category directories whose name is a valid key and that hold at
// least one structure file. Other directories are skipped with a warning.
func (c *CreateDB) Plan(context.Context) (Plan, error) {
	var plan Plan
	keyPattern, err := regexp.Compile(c.cfg.Index.CategoryPattern)
	if err != nil {
		return plan, services.Wrap(services.ErrConfiguration, NameCreateDB, "plan", "category pattern", err)
	}
	entries, err := os.ReadDir(c.cfg.Paths.CategoryDir)
	if err != nil {
		return plan, services.Wrap(services.ErrConfiguration, NameCreateDB, "list categories", c.cfg.Paths.CategoryDir, err)
	}
	pattern := fileindex.Pattern{Prefix: c.cfg.Index.Prefix, Marker: c.cfg.Index.Marker, Extensions: c.cfg.Index.Extensions}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		key := entry.Name()
		dir := filepath.Join(c.cfg.Paths.CategoryDir, key)
		if err := category.ValidateKey(key, keyPattern); err != nil {
			logging.WarnWithContext(c.logger, "skipping directory with invalid category name", "category_key_invalid",
				logging.Path(dir),
				logging.String(logging.FieldErrorHint, "category directories must be named like 1.1.1.1"),
				logging.String(logging.FieldImpact, "no database is built for this directory"),
			)
			continue
		}
		files, err := countStructures(dir, pattern)
		if err != nil {
			plan.Failed = append(plan.Failed, dispatch.Result{
				Job:    dispatch.Job{Category: key, Stage: NameCreateDB, Inputs: []string{dir}},
				Status: dispatch.StatusFailure,
				Err:    services.Wrap(services.ErrIndexBuild, NameCreateDB, "list category", dir, err),
			})
			continue
		}
		if files == 0 {
			logging.WarnWithContext(c.logger, "skipping category without structure files", "category_empty",
				logging.Category(key),
				logging.String(logging.FieldErrorHint, "check that partition resolved members for this category"),
				logging.String(logging.FieldImpact, "no database is built for this category"),
			)
			continue
		}
		plan.Jobs = append(plan.Jobs, dispatch.Job{
			Category: key,
			Stage:    NameCreateDB,
			Inputs:   []string{dir},
			Target:   filepath.Join(c.cfg.Paths.DatabaseDir, category.DatabaseName(key)),
		})
	}
	return plan, nil
}

// Execute runs foldseek createdb for one category. Standard output becomes the
// result detail; on failure the bounded stderr prefix is reported instead.
func (c *CreateDB) Execute(ctx context.Context, job dispatch.Job) (string, error) {
	if len(job.Inputs) == 0 {
		return "", services.Wrap(services.ErrConfiguration, NameCreateDB, "execute", "job has no input directory", nil)
	}
	inv := toolexec.Invocation{
		Binary: c.cfg.Foldseek.Binary,
		Args: c.template.Expand(toolexec.Values{
			Mode:         "createdb",
			Threads:      c.cfg.Foldseek.CreateDBThreads,
			QueryPath:    job.Inputs[0],
			DatabasePath: job.Target,
			FormatSpec:   c.cfg.Foldseek.FormatOutput,
			MaxAccept:    c.cfg.Foldseek.MaxAccept,
		}),
	}
	return runTool(ctx, c.executor, c.logger, inv)
}

func countStructures(dir string, pattern fileindex.Pattern) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, _, ok := pattern.Match(entry.Name()); ok {
			count++
		}
	}
	return count, nil
}

// runTool executes inv and renders the outcome as a result detail.
func runTool(ctx context.Context, executor toolexec.Executor, logger *slog.Logger, inv toolexec.Invocation) (string, error) {
	logger.Debug("running external tool", logging.String("command", inv.CommandLine()))
	outcome, err := executor.Run(ctx, inv)
	var b strings.Builder
	fmt.Fprintf(&b, "command: %s", inv.CommandLine())
	if err != nil {
		if outcome.ExitCode != 0 {
			fmt.Fprintf(&b, "\nexit code: %d", outcome.ExitCode)
		}
		if stderr := strings.TrimSpace(outcome.Stderr); stderr != "" {
			fmt.Fprintf(&b, "\nstderr: %s", stderr)
			if outcome.StderrTruncated {
				b.WriteString(" [truncated]")
			}
		}
		return b.String(), err
	}
	if stdout := strings.TrimSpace(outcome.Stdout); stdout != "" {
		b.WriteString("\n" + stdout)
	}
	return b.String(), nil
}
