// Package relocator moves processed archives between the importer directories.
package relocator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// ErrDestinationExists is returned when the target file is already present.
var ErrDestinationExists = errors.New("destination already exists")

// rename is swapped in tests to simulate cross-device moves.
var rename = os.Rename

// Relocate moves sourcePath into destinationDir, creating the directory if needed,
// and returns the new path. An existing file at the destination is never overwritten.
func Relocate(sourcePath, destinationDir string) (string, error) {
	if err := os.MkdirAll(destinationDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination %s: %w", destinationDir, err)
	}

	target := filepath.Join(destinationDir, filepath.Base(sourcePath))
	if _, err := os.Lstat(target); err == nil {
		return "", fmt.Errorf("relocate %s: %w: %s", sourcePath, ErrDestinationExists, target)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat destination %s: %w", target, err)
	}

	err := rename(sourcePath, target)
	if err == nil {
		return target, nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return "", fmt.Errorf("rename %s: %w", sourcePath, err)
	}

	if err := copyFile(sourcePath, target); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("copy %s across devices: %w", sourcePath, err)
	}
	if err := os.Remove(sourcePath); err != nil {
		return "", fmt.Errorf("remove source %s: %w", sourcePath, err)
	}
	return target, nil
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

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
