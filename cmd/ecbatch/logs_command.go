package main

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"ecbatch/internal/batch"
	"ecbatch/internal/dispatch"
	"ecbatch/internal/runlog"
	"ecbatch/internal/stage"
)

var logStages = []string{stage.NameMaterialize, stage.NameCreateDB, stage.NameSearch, stage.NameDiamond}

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var failuresOnly bool
	var follow bool

	cmd := &cobra.Command{
		Use:       "logs [stage]",
		Short:     "Show the latest result blocks of a stage's result log",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: logStages,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name := stage.NameCreateDB
			if len(args) == 1 {
				name = args[0]
			}
			if !slices.Contains(logStages, name) {
				return fmt.Errorf("unknown stage %q (expected one of %v)", name, logStages)
			}
			path := batch.ResultLogPath(cfg, name)

			opts := runlog.TailOptions{Offset: -1, Limit: limit}
			if failuresOnly {
				opts.Status = dispatch.StatusFailure
			}
			out := cmd.OutOrStdout()
			for {
				result, err := runlog.Tail(cmd.Context(), path, opts)
				if err != nil {
					if errors.Is(err, cmd.Context().Err()) {
						return nil
					}
					return err
				}
				for _, block := range result.Blocks {
					fmt.Fprintln(out, block.String())
				}
				if !follow {
					return nil
				}
				opts.Offset = result.Offset
				opts.Follow = true
				opts.Wait = 5 * time.Second
			}
		},
	}
	cmd.Flags().IntVarP(&limit, "lines", "n", 10, "Number of result blocks to show")
	cmd.Flags().BoolVar(&failuresOnly, "failures", false, "Only show failed categories")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new result blocks")
	return cmd
}
