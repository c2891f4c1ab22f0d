package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateExtractPath prevents directory traversal attacks (Zip Slip vulnerability)
// Ensures that the extracted path does not escape the target directory
func ValidateExtractPath(targetDir, extractedPath string) error {
	// Clean the path to resolve . and ..
	cleanPath := filepath.Clean(extractedPath)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains ..: %s", extractedPath)
	}

	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("absolute path not allowed: %s", extractedPath)
	}

	destPath := filepath.Join(targetDir, cleanPath)

	cleanDest, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("failed to resolve target directory: %w", err)
	}

	cleanTarget, err := filepath.Abs(destPath)
	if err != nil {
		return fmt.Errorf("failed to resolve destination path: %w", err)
	}

	if !strings.HasPrefix(cleanTarget, cleanDest+string(filepath.Separator)) &&
		cleanTarget != cleanDest {
		return fmt.Errorf("path escapes destination directory: %s", extractedPath)
	}

	return nil
}

// ValidateSymlink ensures symlinks don't escape the target directory
func ValidateSymlink(targetDir, linkPath, linkTarget string) error {
	linkDir := filepath.Dir(linkPath)
	resolvedTarget := filepath.Join(linkDir, linkTarget)

	cleanTarget, err := filepath.Abs(resolvedTarget)
	if err != nil {
		return fmt.Errorf("failed to resolve symlink target: %w", err)
	}

	cleanDest, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("failed to resolve target directory: %w", err)
	}

	if !strings.HasPrefix(cleanTarget, cleanDest+string(filepath.Separator)) &&
		cleanTarget != cleanDest {
		return fmt.Errorf("symlink target escapes destination: %s -> %s", linkPath, linkTarget)
	}

	return nil
}
