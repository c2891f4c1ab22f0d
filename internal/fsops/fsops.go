package fsops

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// EnsureDir ensures a directory exists with the given permissions
func EnsureDir(fs afero.Fs, path string, perm os.FileMode) error {
	if err := fs.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("ensure directory: %w", err)
	}
	return nil
}

// Exists checks if a path exists
func Exists(fs afero.Fs, path string) bool {
	_, err := fs.Stat(path)
	return err == nil
}

// IsDir checks if a path is a directory
func IsDir(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// FileSize returns the size of a file in bytes, or 0 if it does not exist
func FileSize(fs afero.Fs, path string) int64 {
	info, err := fs.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// VerifyFile reports whether a file exists and is non-empty
func VerifyFile(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

// CopyFile copies a file from src to dst
func CopyFile(fs afero.Fs, src, dst string) error {
	content, err := afero.ReadFile(fs, src)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	if err := afero.WriteFile(fs, dst, content, 0644); err != nil {
		return fmt.Errorf("write destination: %w", err)
	}

	return nil
}
