// Package archive moves settled files into <root>/<category>/<filename>.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

var (
	// ErrBadCategory is returned when a category is empty after sanitization.
	ErrBadCategory = errors.New("archive: empty category")
	// ErrTargetExists is returned when a different file already occupies the
	// archive location.
	ErrTargetExists = errors.New("archive: target exists")
)

// Target returns the archive location of path for category under root.
func Target(path, root, category string) (string, error) {
	dir := SanitizeCategory(category)
	if dir == "" {
		return "", fmt.Errorf("%w: %q", ErrBadCategory, category)
	}
	return filepath.Join(root, dir, filepath.Base(path)), nil
}

// Relocate moves path into its category directory, creating the directory on
// demand. A file already at its target is left alone. On failure the file is
// where it was and the original path is returned with the error. An existing
// file at the target is never replaced.
func Relocate(path, root, category string) (string, error) {
	target, err := Target(path, root, category)
	if err != nil {
		return path, err
	}

	if samePath(path, target) {
		return target, nil
	}
	linked, err := checkVacant(path, target)
	if err != nil {
		return path, err
	}
	if linked {
		// rename(2) is a no-op between links of one file.
		if err := os.Remove(path); err != nil {
			return path, fmt.Errorf("archive: unlink %s: %w", filepath.Base(path), err)
		}
		return target, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return path, fmt.Errorf("archive: create category dir: %w", err)
	}
	if err := move(path, target); err != nil {
		return path, fmt.Errorf("archive: move %s: %w", filepath.Base(path), err)
	}
	return target, nil
}

// Restore moves a relocated file back to where it came from.
func Restore(current, original string) error {
	if samePath(current, original) {
		return nil
	}
	linked, err := checkVacant(current, original)
	if err != nil {
		return err
	}
	if linked {
		return os.Remove(current)
	}
	if err := os.MkdirAll(filepath.Dir(original), 0o755); err != nil {
		return fmt.Errorf("archive: restore: %w", err)
	}
	if err := move(current, original); err != nil {
		return fmt.Errorf("archive: restore %s: %w", filepath.Base(current), err)
	}
	return nil
}

// SanitizeCategory turns a model-produced label into a single directory name.
// Separators and parent references are removed so the result cannot leave
// the archive root.
func SanitizeCategory(category string) string {
	s := strings.NewReplacer("/", "", "\\", "", "\x00", "").Replace(category)
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", "")
	}
	s = strings.TrimSpace(s)
	if s == "." {
		return ""
	}
	return s
}

// checkVacant fails with ErrTargetExists when dst names a file other than src.
// linked reports that dst is already another link to src.
func checkVacant(src, dst string) (linked bool, err error) {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return false, fmt.Errorf("archive: stat %s: %w", filepath.Base(src), err)
	}
	dstInfo, err := os.Lstat(dst)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("archive: stat %s: %w", dst, err)
	case os.SameFile(srcInfo, dstInfo):
		return true, nil
	}
	return false, fmt.Errorf("%w: %s", ErrTargetExists, dst)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// move renames src to dst, falling back to copy and remove across devices.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
