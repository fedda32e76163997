package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ecbatch/internal/ledger"
	"ecbatch/internal/stageexec"
)

const historyTimeLayout = "2006-01-02 15:04:05"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var categoryKey string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs, or one category's results, from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if key := strings.TrimSpace(categoryKey); key != "" {
				records, err := store.ByCategory(cmd.Context(), key, limit)
				if err != nil {
					return err
				}
				printCategoryHistory(out, key, records)
				return nil
			}
			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRunHistory(out, runs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show")
	cmd.Flags().StringVar(&categoryKey, "category", "", "Show results for one category key, e.g. 1.1.1.1")
	return cmd
}

func printRunHistory(out io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		finished := "running"
		if run.Finished() {
			finished = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		rows = append(rows, []string{
			shortRunID(run.ID),
			stageexec.StageLabel(run.Stage),
			run.StartedAt.Local().Format(historyTimeLayout),
			finished,
			strconv.Itoa(run.Submitted),
			strconv.Itoa(run.Succeeded),
			strconv.Itoa(run.Skipped),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.NotStarted),
		})
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		headers: []string{"Run", "Stage", "Started", "Duration", "Submitted", "Succeeded", "Skipped", "Failed", "Not started"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	}, rows))
}

func printCategoryHistory(out io.Writer, key string, records []ledger.JobRecord) {
	if len(records) == 0 {
		fmt.Fprintf(out, "No results recorded for %s\n", key)
		return
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		message := rec.ErrorMessage
		if message == "" {
			message, _, _ = strings.Cut(rec.Detail, "\n")
		}
		rows = append(rows, []string{
			shortRunID(rec.RunID),
			stageexec.StageLabel(rec.Stage),
			rec.RecordedAt.Local().Format(historyTimeLayout),
			rec.Status.Tag(),
			strconv.Itoa(rec.Dropped),
			rec.Duration.Round(time.Millisecond).String(),
			message,
		})
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		headers: []string{"Run", "Stage", "Recorded", "Status", "Dropped", "Duration", "Detail"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
		wrap:    maxErrorWidth,
	}, rows))
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
