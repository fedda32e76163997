package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes size filler bytes to path, creating parent directories.
// A size <= 0 writes a single byte so the file counts as non-empty.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	WriteText(t, path, strings.Repeat("B", int(max(size, 1))))
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// StructureName returns the conventional filename for a record identifier.
func StructureName(id, ext string) string {
	return "AF-" + id + "-F1-model_v4" + ext
}

// WriteStructure creates a small structure file for id under dir and returns
// its path.
func WriteStructure(t testing.TB, dir, id, ext string) string {
	t.Helper()

	path := filepath.Join(dir, StructureName(id, ext))
	WriteText(t, path, "ATOM      1  N   MET A   1\n")
	return path
}

// WriteMetadata writes a tab-delimited EC_<key>.csv membership file with a
// header row and returns its path.
func WriteMetadata(t testing.TB, dir, key string, ids ...string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("Entry\tEC number\tSequence\n")
	for _, id := range ids {
		b.WriteString(id + "\t" + key + "\tMSEQ\n")
	}
	path := filepath.Join(dir, "EC_"+key+".csv")
	WriteText(t, path, b.String())
	return path
}

// WriteMarkers creates the three foldseek database marker files for db.
func WriteMarkers(t testing.TB, db string) {
	t.Helper()

	for _, suffix := range []string{".dbtype", ".index", ".source"} {
		WriteFile(t, db+suffix, 4)
	}
}
