package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// imageExtensions lists the artifact extensions the pipeline recognizes.
var imageExtensions = map[string]struct{}{
	".fit":  {},
	".fits": {},
	".fts":  {},
	".fz":   {},
}

// IsImage reports whether name carries a recognized image artifact extension.
func IsImage(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ListImages returns the sorted image artifact filenames directly under dir.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsImage(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// MoveFile renames src to dst, falling back to copy+remove across devices.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := CopyFile(src, dst); err != nil {
		return fmt.Errorf("move %q: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove moved source %q: %w", src, err)
	}
	return nil
}

// DrainDir removes every regular file directly under dir. A missing dir is
// not an error; subdirectories are left alone.
func DrainDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("drain %q: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("drain %q: %w", dir, err)
		}
	}
	return nil
}

// NextSequenceIndex scans dir for files named <prefix>NNNNN<ext> and returns
// one past the highest index found, or 1 when no frame matches.
func NextSequenceIndex(dir, prefix, ext string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("scan sequence %q: %w", dir, err)
	}
	next := 1
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		digits := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ext)
		idx, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if idx >= next {
			next = idx + 1
		}
	}
	return next, nil
}

// SequenceFrameName formats a sequence frame filename with zero-padded index.
func SequenceFrameName(prefix string, index int, ext string) string {
	return fmt.Sprintf("%s%05d%s", prefix, index, ext)
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
