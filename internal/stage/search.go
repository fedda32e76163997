package stage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"ecbatch/internal/completion"
	"ecbatch/internal/config"
	"ecbatch/internal/dispatch"
	"ecbatch/internal/logging"
	"ecbatch/internal/services"
	"ecbatch/internal/toolexec"
)

const alignmentFile = "align.m8"

// databasePattern matches the .dbtype marker of a category database such as
// ec_1_1_1_1.dbtype; auxiliary databases foldseek writes alongside
// (ec_1_1_1_1_h, ec_1_1_1_1_ss) do not match.
var databasePattern = regexp.MustCompile(`^ec_([^_]+_){3}[^_]+\.dbtype$`)

// Search runs a foldseek all-versus-all easy-search over each category database.
type Search struct {
	base
	cfg      *config.Config
	template toolexec.Template
}

// NewSearch constructs the self-alignment stage.
func NewSearch(cfg *config.Config, opts ...Option) (*Search, error) {
	tmpl, err := toolexec.ParseTemplate(cfg.Foldseek.SearchArgs)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, NameSearch, "parse template", "foldseek.search_args", err)
	}
	return &Search{base: newBase(NameSearch, cfg.Workers.StderrLimit, opts), cfg: cfg, template: tmpl}, nil
}

// Name implements Handler.
func (s *Search) Name() string { return NameSearch }

// Checker implements Handler.
func (s *Search) Checker() dispatch.Checker { return completion.NonEmptyFile{} }

// HealthCheck implements Handler.
func (s *Search) HealthCheck(context.Context) Health {
	return toolHealth(NameSearch, s.cfg.Foldseek.Binary)
}

// Plan lists complete category databases in lexical order.
func (s *Search) Plan(context.Context) (Plan, error) {
	var plan Plan
	entries, err := os.ReadDir(s.cfg.Paths.DatabaseDir)
	if err != nil {
		return plan, services.Wrap(services.ErrConfiguration, NameSearch, "list databases", s.cfg.Paths.DatabaseDir, err)
	}
	markers := completion.Markers{}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && databasePattern.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		dbName := strings.TrimSuffix(name, ".dbtype")
		db := filepath.Join(s.cfg.Paths.DatabaseDir, dbName)
		key := KeyFromDatabaseName(dbName)
		if !markers.Complete(dispatch.Job{Target: db}) {
			logging.WarnWithContext(s.logger, "skipping incomplete database", "database_incomplete",
				logging.Category(key),
				logging.String("database", db),
				logging.String(logging.FieldErrorHint, "rerun createdb for this category"),
				logging.String(logging.FieldImpact, "no alignment is produced for this category"),
			)
			continue
		}
		outDir := filepath.Join(s.cfg.Paths.AlignmentDir, dbName)
		plan.Jobs = append(plan.Jobs, dispatch.Job{
			Category: key,
			Stage:    NameSearch,
			Inputs:   []string{db},
			Target:   filepath.Join(outDir, alignmentFile),
		})
	}
	if len(plan.Jobs) == 0 {
		logging.WarnWithContext(s.logger, "no category databases found", "databases_missing",
			logging.String("database_dir", s.cfg.Paths.DatabaseDir),
			logging.String(logging.FieldErrorHint, "run ecbatch createdb first"),
			logging.String(logging.FieldImpact, "search stage has nothing to do"),
		)
	}
	return plan, nil
}

// Execute runs easy-search of the category database against itself.
func (s *Search) Execute(ctx context.Context, job dispatch.Job) (string, error) {
	if len(job.Inputs) == 0 {
		return "", services.Wrap(services.ErrConfiguration, NameSearch, "execute", "job has no database", nil)
	}
	outDir := filepath.Dir(job.Target)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrExternalTool, NameSearch, "create output directory", outDir, err)
	}
	inv := toolexec.Invocation{
		Binary: s.cfg.Foldseek.Binary,
		Args: s.template.Expand(toolexec.Values{
			Mode:         "easy-search",
			Threads:      s.cfg.Foldseek.SearchThreads,
			DatabasePath: job.Inputs[0],
			QueryPath:    job.Inputs[0],
			OutputPath:   job.Target,
			TmpDir:       filepath.Join(outDir, "tmp"),
			FormatSpec:   s.cfg.Foldseek.FormatOutput,
			MaxAccept:    s.cfg.Foldseek.MaxAccept,
		}),
	}
	return runTool(ctx, s.executor, s.logger, inv)
}

// KeyFromDatabaseName maps ec_1_1_1_1 back to 1.1.1.1.
func KeyFromDatabaseName(name string) string {
	return strings.ReplaceAll(strings.TrimPrefix(name, "ec_"), "_", ".")
}
