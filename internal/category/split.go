package category

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SplitResult summarizes a label split.
type SplitResult struct {
	Rows    int
	Labels  int
	Skipped int
	Files   []string
}

// Split reads a tab-delimited label table whose column 1 holds
// semicolon-separated EC numbers and writes one EC_<label>.csv per label into
// outDir. Each output file carries the original header followed by every row
// tagged with that label, in input order. Rows without a label column are
// counted in Skipped.
func Split(labelsPath, outDir string) (SplitResult, error) {
	var result SplitResult

	file, err := os.Open(labelsPath)
	if err != nil {
		return result, fmt.Errorf("open labels: %w", err)
	}
	defer file.Close()

	reader := newTSVReader(file)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return result, fmt.Errorf("labels file %s is empty", labelsPath)
		}
		return result, fmt.Errorf("read header: %w", err)
	}

	groups := make(map[string][][]string)
	var order []string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read labels: %w", err)
		}
		result.Rows++
		if len(row) < 2 {
			result.Skipped++
			continue
		}
		labeled := false
		for _, label := range strings.Split(row[1], ";") {
			label = strings.TrimSpace(label)
			if label == "" || strings.ContainsAny(label, `/\`) {
				continue
			}
			if _, seen := groups[label]; !seen {
				order = append(order, label)
			}
			groups[label] = append(groups[label], row)
			labeled = true
		}
		if !labeled {
			result.Skipped++
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return result, fmt.Errorf("create output dir: %w", err)
	}
	for _, label := range order {
		path := filepath.Join(outDir, "EC_"+label+".csv")
		if err := writeTSV(path, header, groups[label]); err != nil {
			return result, err
		}
		result.Files = append(result.Files, path)
	}
	result.Labels = len(order)
	return result, nil
}

func writeTSV(path string, header []string, rows [][]string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	writer := csv.NewWriter(out)
	writer.Comma = '\t'
	if err := writer.Write(header); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := writer.WriteAll(rows); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
