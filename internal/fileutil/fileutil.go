// Package fileutil places resolved structure files into category directories,
// either as relative symlinks or as verified copies.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrConflict reports that a destination exists but does not refer to the
// expected source.
var ErrConflict = errors.New("destination exists with different content")

// SymlinkRelative creates dst as a symlink to src expressed relative to dst's
// directory. An existing link to the same file is left alone and reported as
// created=false; any other existing entry is ErrConflict.
func SymlinkRelative(src, dst string) (created bool, err error) {
	rel, err := filepath.Rel(filepath.Dir(dst), src)
	if err != nil {
		return false, fmt.Errorf("relative path: %w", err)
	}
	if err := os.Symlink(rel, dst); err != nil {
		if !errors.Is(err, fs.ErrExist) {
			return false, err
		}
		same, sameErr := sameFile(src, dst)
		if sameErr != nil {
			return false, sameErr
		}
		if !same {
			return false, fmt.Errorf("%w: %s", ErrConflict, dst)
		}
		return false, nil
	}
	return true, nil
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// The copy is written beside dst and renamed into place, so a partial copy is
// never visible under the final name. An existing dst with the same size is
// left alone and reported as created=false.
func CopyFileVerified(src, dst string) (created bool, err error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("stat source: %w", err)
	}
	srcSize := srcInfo.Size()
	if dstInfo, err := os.Stat(dst); err == nil {
		if dstInfo.Size() == srcSize {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s", ErrConflict, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()

	partial := dst + ".partial"
	out, err := os.Create(partial)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(partial)
		}
	}()

	srcHash := sha256.New()
	written, err := io.Copy(out, io.TeeReader(in, srcHash))
	if err != nil {
		return false, err
	}
	if err = out.Close(); err != nil {
		return false, err
	}
	if written != srcSize {
		err = fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, written)
		return false, err
	}

	// Re-read what landed on disk rather than trusting the write path.
	copied, err := fileDigest(partial)
	if err != nil {
		return false, err
	}
	if !bytes.Equal(srcHash.Sum(nil), copied) {
		err = fmt.Errorf("copy hash mismatch for %s", dst)
		return false, err
	}

	if err = os.Rename(partial, dst); err != nil {
		return false, err
	}
	return true, nil
}

func sameFile(src, dst string) (bool, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false, fmt.Errorf("stat source: %w", err)
	}
	dstInfo, err := os.Stat(dst)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Dangling link left by an earlier run.
			return false, nil
		}
		return false, fmt.Errorf("stat destination: %w", err)
	}
	return os.SameFile(srcInfo, dstInfo), nil
}

func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash %s: %w", path, err)
	}
	return h.Sum(nil), nil
}
