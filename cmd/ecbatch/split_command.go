package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ecbatch/internal/category"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var labelsPath string
	var outDir string

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a labelled TSV into one EC_<label>.csv per EC number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(labelsPath) == "" {
				return errors.New("--labels is required")
			}
			if strings.TrimSpace(outDir) == "" {
				outDir = cfg.Paths.MetadataDir
			}
			result, err := category.Split(labelsPath, outDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Read %d rows, wrote %d label files to %s\n", result.Rows, result.Labels, outDir)
			if result.Skipped > 0 {
				fmt.Fprintf(out, "Skipped %d rows without a usable label\n", result.Skipped)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&labelsPath, "labels", "l", "", "Tab-delimited file whose second column lists ';'-separated EC numbers")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default paths.metadata_dir)")
	return cmd
}
