package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ecbatch/internal/fasta"
)

func newFastaCommand(ctx *commandContext) *cobra.Command {
	var inDir string
	var outDir string
	var column int

	cmd := &cobra.Command{
		Use:   "fasta",
		Short: "Convert every category .csv into a .fasta file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(inDir) == "" {
				inDir = cfg.Paths.MetadataDir
			}
			if strings.TrimSpace(outDir) == "" {
				outDir = cfg.Paths.FastaDir
			}
			if column <= 0 {
				column = cfg.Diamond.SequenceColumn
			}
			converted, err := fasta.ConvertDir(inDir, outDir, column)
			if err != nil {
				return err
			}
			records, skipped := 0, 0
			for _, c := range converted {
				records += c.Stats.Records
				skipped += c.Stats.Skipped
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Converted %d files (%d records) into %s\n", len(converted), records, outDir)
			if skipped > 0 {
				fmt.Fprintf(out, "Skipped %d rows without a sequence\n", skipped)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&inDir, "in", "i", "", "Directory of EC_<key>.csv files (default paths.metadata_dir)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default paths.fasta_dir)")
	cmd.Flags().IntVar(&column, "column", 0, "Zero-based sequence column (default diamond.sequence_column)")
	return cmd
}
