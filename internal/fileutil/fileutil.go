// Package fileutil holds the file primitives shared by the compiler, the
// concatenator and the reporter: temp siblings, atomic publication and
// verified copies.
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

// TempSibling returns a hidden temp path in the same directory as dst so a
// later rename stays on one filesystem.
func TempSibling(dst string) string {
	return filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp")
}

// RemoveIfExists deletes path, treating absence as success.
func RemoveIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// NonEmptySize returns the size of a regular, non-empty file.
func NonEmptySize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("%s is empty", path)
	}
	return info.Size(), nil
}

// Publish renames tmp onto dst. On failure tmp is removed.
func Publish(tmp, dst string) error {
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(dst), err)
	}
	return nil
}

// WriteFileAtomic writes data to a temp sibling and renames it onto path.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp := TempSibling(path)
	if err := os.WriteFile(tmp, data, mode); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return Publish(tmp, path)
}

// CopyFile streams src to dst with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// CopyFileVerified copies src to dst through a temp sibling, re-reads the
// copy and compares size and SHA-256 with the source before renaming it into
// place. Nothing is left at dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcSum, srcSize, err := hashFile(src)
	if err != nil {
		return fmt.Errorf("hash source: %w", err)
	}
	tmp := TempSibling(dst)
	if err := CopyFile(src, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	dstSum, dstSize, err := hashFile(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("hash copy: %w", err)
	}
	if dstSize != srcSize {
		_ = os.Remove(tmp)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcSize, dstSize)
	}
	if !bytes.Equal(srcSum, dstSum) {
		_ = os.Remove(tmp)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return Publish(tmp, dst)
}

func hashFile(path string) ([]byte, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()
	hasher := sha256.New()
	n, err := io.Copy(hasher, file)
	if err != nil {
		return nil, 0, err
	}
	return hasher.Sum(nil), n, nil
}
