// Package store persists registry documents as JSON files on disk.
//
// Each document is read fully into memory and rewritten fully on every
// mutation; before a rewrite the previous file is copied to a one-generation
// ".backup" sibling. The file is not locked: two concurrent writers race and
// the second save wins. The backup protects a single writer crashing
// mid-write, nothing more.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Store reads and writes JSON documents over an afero filesystem.
type Store struct {
	fs  afero.Fs
	log *zerolog.Logger
}

// New creates a Store on the given filesystem.
func New(fs afero.Fs, log *zerolog.Logger) *Store {
	return &Store{fs: fs, log: log}
}

// BackupPath returns the backup sibling for a document path.
func BackupPath(path string) string {
	return path + ".backup"
}

// Load reads a document into doc. It returns false when the file does not
// exist or cannot be decoded; a corrupt document is logged and treated as
// absent so the caller starts fresh rather than failing.
func (s *Store) Load(path string, doc any) bool {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", path).Msg("could not read registry document")
		}
		return false
	}

	if err := json.Unmarshal(data, doc); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("could not decode registry document, starting fresh")
		return false
	}

	return true
}

// Save writes a document, copying the current file to its backup first.
func (s *Store) Save(path string, doc any) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create document directory: %w", err)
	}

	if exists, _ := afero.Exists(s.fs, path); exists {
		if err := s.copyBackup(path); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("could not write backup copy")
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	if err := afero.WriteFile(s.fs, path, data, 0644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	return nil
}

func (s *Store) copyBackup(path string) error {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return err
	}
	return afero.WriteFile(s.fs, BackupPath(path), data, 0644)
}
