package preflight

import (
	"context"
	"fmt"
	"strings"

	"ecbatch/internal/config"
	"ecbatch/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Scope selects which checks apply to a command.
type Scope struct {
	Partition bool
	Foldseek  bool
	Diamond   bool
}

// AllScopes enables every check; used by the status command.
var AllScopes = Scope{Partition: true, Foldseek: true, Diamond: true}

// RunAll executes the checks selected by scope for the given config.
func RunAll(ctx context.Context, cfg *config.Config, scope Scope) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if scope.Partition {
		for i, dir := range cfg.Paths.ProteinDirs {
			results = append(results, CheckDirectoryReadable(fmt.Sprintf("Structure root %d", i+1), dir))
		}
		results = append(results, CheckDirectoryReadable("Metadata directory", cfg.Paths.MetadataDir))
		results = append(results, CheckDirectoryAccess("Category directory", cfg.Paths.CategoryDir))
	}
	if scope.Foldseek {
		results = append(results, CheckDirectoryAccess("Database directory", cfg.Paths.DatabaseDir))
		results = append(results, CheckDirectoryAccess("Alignment directory", cfg.Paths.AlignmentDir))
	}
	if scope.Diamond {
		results = append(results, CheckDirectoryReadable("FASTA directory", cfg.Paths.FastaDir))
		results = append(results, CheckDirectoryReadable("DIAMOND database directory", cfg.Paths.DiamondDBDir))
		results = append(results, CheckDirectoryAccess("DIAMOND output directory", cfg.Paths.DiamondOutputDir))
	}
	for _, status := range CheckSystemDeps(ctx, cfg, scope) {
		result := Result{Name: status.Name, Passed: status.Available || status.Optional, Detail: status.Resolved}
		if !status.Available {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// Require runs the checks for scope and returns a configuration error naming
// every failure.
func Require(ctx context.Context, cfg *config.Config, scope Scope) error {
	var failures []string
	for _, result := range RunAll(ctx, cfg, scope) {
		if !result.Passed {
			failures = append(failures, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(failures, "; "), nil)
}
