// Package fileutil moves and copies frame and render files.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// CopyFile writes a copy of src to dst with mode 0o644, replacing dst.
// Pre- and post-roll frames are produced this way.
func CopyFile(src, dst string) error {
	_, err := copyContents(src, dst, 0o644, nil)
	return err
}

// MoveFile renames src to dst, creating dst's parent directory. Across
// filesystems it falls back to a checksummed copy followed by removing src;
// a copy whose digest differs from the source is deleted and reported.
func MoveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	srcSum := sha256.New()
	written, err := copyContents(src, dst, info.Mode().Perm(), srcSum)
	if err != nil {
		return fmt.Errorf("cross-device copy: %w", err)
	}
	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("cross-device copy: wrote %d of %d bytes", written, info.Size())
	}
	dstSum, err := digest(dst)
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("cross-device copy: %w", err)
	}
	if !bytes.Equal(srcSum.Sum(nil), dstSum) {
		_ = os.Remove(dst)
		return errors.New("cross-device copy: checksum mismatch")
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// copyContents streams src into dst. When sum is non-nil it also receives
// every byte read from src.
func copyContents(src, dst string, mode os.FileMode, sum hash.Hash) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, err
	}
	var reader io.Reader = in
	if sum != nil {
		reader = io.TeeReader(in, sum)
	}
	written, err := io.Copy(out, reader)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return written, err
}

func digest(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	sum := sha256.New()
	if _, err := io.Copy(sum, file); err != nil {
		return nil, err
	}
	return sum.Sum(nil), nil
}
