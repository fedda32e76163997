package completion_test

import (
	"os"
	"path/filepath"
	"testing"

	"ecbatch/internal/completion"
	"ecbatch/internal/dispatch"
	"ecbatch/internal/testsupport"
)

func TestMarkers(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ec_2_2_2_2")
	job := dispatch.Job{Category: "2.2.2.2", Target: db}
	checker := completion.Markers{}

	if checker.Complete(job) {
		t.Fatal("no markers should be incomplete")
	}
	testsupport.WriteFile(t, db+".dbtype", 4)
	testsupport.WriteFile(t, db+".index", 4)
	if checker.Complete(job) {
		t.Fatal("two of three markers should be incomplete")
	}
	testsupport.WriteFile(t, db+".source", 4)
	if !checker.Complete(job) {
		t.Fatal("all markers present should be complete")
	}
	if (completion.Markers{Suffixes: []string{".lookup"}}).Complete(job) {
		t.Fatal("custom suffix should be honored")
	}
}

func TestNonEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "align.m8")
	job := dispatch.Job{Target: path}
	checker := completion.NonEmptyFile{}

	if checker.Complete(job) {
		t.Fatal("missing file should be incomplete")
	}
	testsupport.WriteText(t, path, "")
	if checker.Complete(job) {
		t.Fatal("empty file should be incomplete")
	}
	testsupport.WriteText(t, path, "q\tt\t0.9\n")
	if !checker.Complete(job) {
		t.Fatal("non-empty file should be complete")
	}
}

func TestLinkSet(t *testing.T) {
	base := t.TempDir()
	src := testsupport.WriteStructure(t, filepath.Join(base, "proteins"), "P12345", ".pdb")
	src2 := testsupport.WriteStructure(t, filepath.Join(base, "proteins"), "P67890", ".pdb.gz")
	dest := filepath.Join(base, "categories", "1.1.1.1")
	job := dispatch.Job{Target: dest, Inputs: []string{src, src2}}
	checker := completion.LinkSet{}

	if checker.Complete(job) {
		t.Fatal("missing directory should be incomplete")
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(src, filepath.Join(dest, filepath.Base(src))); err != nil {
		t.Fatal(err)
	}
	if checker.Complete(job) {
		t.Fatal("partial link set should be incomplete")
	}
	if err := os.Symlink(src2, filepath.Join(dest, filepath.Base(src2))); err != nil {
		t.Fatal(err)
	}
	if !checker.Complete(job) {
		t.Fatal("full link set should be complete")
	}
}
