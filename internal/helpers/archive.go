package helpers

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/jpdarela/luaenv/internal/security"
)

// MoveFunc maps a top-level extracted entry to its final location. It
// receives the extracted path and the entry's original name and returns the
// target path; an empty return leaves the entry where it was extracted.
type MoveFunc func(extractedPath, name string) string

// ExtractArchive extracts an archive into destDir, dispatching on the file
// extension (.tar.gz/.tgz, .tar.xz/.txz, .zip). After extraction each
// top-level entry is offered to move for relocation, which callers use to
// map version-qualified archive folders onto a canonical layout.
func ExtractArchive(archivePath, destDir string, move MoveFunc) error {
	name := strings.ToLower(filepath.Base(archivePath))
	switch {
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		return ExtractTarGz(archivePath, destDir, move)
	case strings.HasSuffix(name, ".tar.xz") || strings.HasSuffix(name, ".txz"):
		return ExtractTarXz(archivePath, destDir, move)
	case strings.HasSuffix(name, ".zip"):
		return ExtractZip(archivePath, destDir, move)
	default:
		return fmt.Errorf("unsupported archive format: %s", archivePath)
	}
}

// ExtractTarGz extracts a .tar.gz archive with security checks
func ExtractTarGz(archivePath, destDir string, move MoveFunc) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzr.Close()

	return extractTar(gzr, destDir, move)
}

// ExtractTarXz extracts a .tar.xz archive with security checks
func ExtractTarXz(archivePath, destDir string, move MoveFunc) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	xzr, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create xz reader: %w", err)
	}

	return extractTar(xzr, destDir, move)
}

func extractTar(r io.Reader, destDir string, move MoveFunc) error {
	tr := tar.NewReader(r)
	topLevel := make(map[string]struct{})

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read error: %w", err)
		}

		// Security: Validate path to prevent directory traversal
		if err := security.ValidateExtractPath(destDir, header.Name); err != nil {
			return fmt.Errorf("invalid path in archive: %w", err)
		}

		recordTopLevel(topLevel, header.Name)
		target := filepath.Join(destDir, header.Name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}

		case tar.TypeReg:
			if err := extractFile(tr, target, header.Mode); err != nil {
				return fmt.Errorf("failed to extract file %s: %w", header.Name, err)
			}

		case tar.TypeSymlink:
			if err := security.ValidateSymlink(destDir, target, header.Linkname); err != nil {
				return fmt.Errorf("invalid symlink: %w", err)
			}

			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("failed to create symlink: %w", err)
			}

		default:
			// Skip unsupported types (TypeBlock, TypeChar, TypeFifo, etc.)
			continue
		}
	}

	return applyMoves(destDir, topLevel, move)
}

func extractFile(r io.Reader, target string, mode int64) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(mode))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// ExtractZip extracts a .zip archive with security checks
func ExtractZip(archivePath, destDir string, move MoveFunc) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	topLevel := make(map[string]struct{})

	for _, f := range r.File {
		if err := security.ValidateExtractPath(destDir, f.Name); err != nil {
			return fmt.Errorf("invalid path in zip: %w", err)
		}

		recordTopLevel(topLevel, f.Name)
		target := filepath.Join(destDir, f.Name)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, f.Mode()); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			continue
		}

		if err := extractZipFile(f, target); err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}

	return applyMoves(destDir, topLevel, move)
}

func extractZipFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open zip file entry: %w", err)
	}
	defer rc.Close()

	outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, rc); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

func recordTopLevel(set map[string]struct{}, name string) {
	name = strings.TrimPrefix(name, "./")
	top := strings.SplitN(filepath.ToSlash(name), "/", 2)[0]
	if top != "" && top != "." {
		set[top] = struct{}{}
	}
}

// applyMoves offers every extracted top-level directory to the move
// callback and renames it when the callback picks a new location.
func applyMoves(destDir string, topLevel map[string]struct{}, move MoveFunc) error {
	if move == nil {
		return nil
	}

	names := make([]string, 0, len(topLevel))
	for name := range topLevel {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		source := filepath.Join(destDir, name)
		info, err := os.Stat(source)
		if err != nil || !info.IsDir() {
			continue
		}

		dest := move(source, name)
		if dest == "" || dest == source {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("failed to create move target parent: %w", err)
		}
		if err := os.RemoveAll(dest); err != nil {
			return fmt.Errorf("failed to clear move target: %w", err)
		}
		if err := os.Rename(source, dest); err != nil {
			return fmt.Errorf("failed to move %s to %s: %w", source, dest, err)
		}
	}

	return nil
}
