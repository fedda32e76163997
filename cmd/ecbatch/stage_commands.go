package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ecbatch/internal/batch"
	"ecbatch/internal/dispatch"
	"ecbatch/internal/stage"
)

// errCategoriesFailed is returned after the summary is printed so the process
// exits nonzero.
var errCategoriesFailed = errors.New("one or more categories failed")

type stageCommandSpec struct {
	use    string
	short  string
	stages []string
}

var stageCommandSpecs = []stageCommandSpec{
	{use: "partition", short: "Index structure roots and place each category's files in its directory", stages: []string{stage.NameMaterialize}},
	{use: "createdb", short: "Build one foldseek database per category directory", stages: []string{stage.NameCreateDB}},
	{use: "search", short: "Run foldseek easy-search of each category database against itself", stages: []string{stage.NameSearch}},
	{use: "diamond", short: "Run diamond blastp of each category FASTA against its database", stages: []string{stage.NameDiamond}},
	{use: "run", short: "Run partition, createdb, and search in order", stages: batch.Pipeline},
}

func newStageCommands(ctx *commandContext) []*cobra.Command {
	commands := make([]*cobra.Command, 0, len(stageCommandSpecs))
	for _, spec := range stageCommandSpecs {
		commands = append(commands, newStageCommand(ctx, spec))
	}
	return commands
}

func newStageCommand(ctx *commandContext, spec stageCommandSpec) *cobra.Command {
	var workers int
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   spec.use,
		Short: spec.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if workers > 0 {
				cfg.Workers.Concurrency = workers
			}
			logger, err := ctx.logger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			var opts []batch.Option
			if skipPreflight {
				opts = append(opts, batch.WithoutPreflight())
			}
			runner, err := batch.New(cfg, logger, opts...)
			if err != nil {
				return err
			}
			outcome, err := runner.Run(cmd.Context(), spec.stages...)
			if len(outcome.Reports) > 0 {
				printOutcome(cmd.OutOrStdout(), outcome)
			}
			if err != nil {
				return err
			}
			if outcome.Interrupted {
				return fmt.Errorf("run %s interrupted; rerun to continue", outcome.RunID)
			}
			if !outcome.OK() {
				return errCategoriesFailed
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Override workers.concurrency")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Dispatch without checking directories and binaries")
	return cmd
}

func printOutcome(out io.Writer, outcome batch.Outcome) {
	rows := make([][]string, 0, len(outcome.Reports)+1)
	for _, report := range outcome.Reports {
		rows = append(rows, summaryRow(report.Label, report.Summary, report.Duration))
	}
	if len(outcome.Reports) > 1 {
		rows = append(rows, summaryRow("Total", outcome.Total, outcome.Duration))
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		headers: []string{"Stage", "Submitted", "Succeeded", "Skipped", "Failed", "Not started", "Dropped", "Duration"},
		aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	}, rows))

	var failures [][]string
	for _, report := range outcome.Reports {
		for _, failure := range report.Summary.Failures {
			failures = append(failures, []string{report.Label, failure.Job.Category, failureMessage(failure)})
		}
	}
	if len(failures) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(tableSpec{
			headers: []string{"Stage", "Category", "Error"},
			wrap:    maxErrorWidth,
		}, failures))
	}
	fmt.Fprintf(out, "Run ID: %s\n", outcome.RunID)
}

func summaryRow(label string, s dispatch.Summary, elapsed time.Duration) []string {
	return []string{
		label,
		strconv.Itoa(s.Submitted),
		strconv.Itoa(s.Succeeded),
		strconv.Itoa(s.Skipped),
		strconv.Itoa(s.Failed),
		strconv.Itoa(s.NotStarted),
		strconv.Itoa(s.Dropped),
		elapsed.Round(time.Millisecond).String(),
	}
}

func failureMessage(result dispatch.Result) string {
	if result.Err != nil {
		return result.Err.Error()
	}
	if line, _, _ := strings.Cut(result.Detail, "\n"); line != "" {
		return line
	}
	return "failed"
}
