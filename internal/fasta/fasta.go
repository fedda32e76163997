// Package fasta converts tab-delimited sequence tables into FASTA files.
package fasta

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Stats counts what a conversion wrote.
type Stats struct {
	Records int
	Skipped int
}

// Write converts rows from r into FASTA records on w. The header row is
// skipped; each data row becomes ">" + column 0 followed by the sequence
// column. Rows too short to carry a sequence are counted in Skipped.
func Write(w io.Writer, r io.Reader, sequenceColumn int) (Stats, error) {
	var stats Stats
	if sequenceColumn < 1 {
		return stats, fmt.Errorf("sequence column must be >= 1, got %d", sequenceColumn)
	}
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	out := bufio.NewWriter(w)
	header := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read row: %w", err)
		}
		if header {
			header = false
			continue
		}
		if len(row) <= sequenceColumn || strings.TrimSpace(row[0]) == "" {
			stats.Skipped++
			continue
		}
		if _, err := fmt.Fprintf(out, ">%s\n%s\n", strings.TrimSpace(row[0]), strings.TrimSpace(row[sequenceColumn])); err != nil {
			return stats, fmt.Errorf("write record: %w", err)
		}
		stats.Records++
	}
	if err := out.Flush(); err != nil {
		return stats, fmt.Errorf("flush: %w", err)
	}
	return stats, nil
}

// Convert writes the FASTA rendering of the table at in to out.
func Convert(in, out string, sequenceColumn int) (Stats, error) {
	src, err := os.Open(in)
	if err != nil {
		return Stats{}, fmt.Errorf("open %s: %w", in, err)
	}
	defer src.Close()

	dst, err := os.Create(out)
	if err != nil {
		return Stats{}, fmt.Errorf("create %s: %w", out, err)
	}
	stats, err := Write(dst, src, sequenceColumn)
	if closeErr := dst.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", out, closeErr)
	}
	return stats, err
}

// Converted describes one file produced by ConvertDir.
type Converted struct {
	Source string
	Target string
	Stats  Stats
}

// ConvertDir converts every .csv file in inDir into a same-named .fasta file in
// outDir, in lexical order.
func ConvertDir(inDir, outDir string, sequenceColumn int) ([]Converted, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", inDir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", outDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	converted := make([]Converted, 0, len(names))
	for _, name := range names {
		src := filepath.Join(inDir, name)
		dst := filepath.Join(outDir, strings.TrimSuffix(name, ".csv")+".fasta")
		stats, err := Convert(src, dst, sequenceColumn)
		if err != nil {
			return converted, err
		}
		converted = append(converted, Converted{Source: src, Target: dst, Stats: stats})
	}
	return converted, nil
}
