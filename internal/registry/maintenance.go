package registry

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jpdarela/luaenv/internal/fsops"
)

// ValidationResult classifies every installation by registry/filesystem
// consistency.
type ValidationResult struct {
	Valid   []string
	Broken  []string
	Missing []string
}

// Validate checks every record against the filesystem: missing when either
// directory tree is absent, broken when the install tree lacks the expected
// entry-point executables, valid otherwise.
func (r *Registry) Validate() ValidationResult {
	var result ValidationResult

	for id, rec := range r.doc.Installations {
		if !fsops.Exists(r.fs, rec.InstallationPath) || !fsops.Exists(r.fs, rec.EnvironmentPath) {
			result.Missing = append(result.Missing, id)
			continue
		}

		broken := false
		for _, exe := range EntryPoints {
			if !fsops.Exists(r.fs, filepath.Join(rec.InstallationPath, "bin", exe)) {
				broken = true
				break
			}
		}
		if broken {
			result.Broken = append(result.Broken, id)
			continue
		}

		result.Valid = append(result.Valid, id)
	}

	return result
}

// CleanupBroken removes every broken or missing installation.
func (r *Registry) CleanupBroken(confirm bool) (int, error) {
	validation := r.Validate()
	toRemove := append(append([]string{}, validation.Broken...), validation.Missing...)

	if len(toRemove) == 0 {
		r.log.Info().Msg("no broken installations found")
		return 0, nil
	}

	if confirm && r.prompter != nil {
		ok, err := r.prompter.Confirm(fmt.Sprintf("Remove %d broken installations", len(toRemove)))
		if err != nil {
			return 0, err
		}
		if !ok {
			r.log.Info().Msg("cleanup cancelled")
			return 0, nil
		}
	}

	count := 0
	for _, id := range toRemove {
		removed, err := r.Remove(id, false)
		if err != nil {
			r.log.Error().Err(err).Str("id", id).Msg("could not remove broken installation")
			continue
		}
		if removed {
			count++
		}
	}

	return count, nil
}

// CleanupZombies deletes installation and environment directories that have
// no registry record. This is the inverse consistency check: filesystem to
// registry rather than registry to filesystem.
func (r *Registry) CleanupZombies(confirm bool) (int, error) {
	type zombie struct {
		kind string
		path string
	}

	var zombies []zombie
	for _, root := range []struct {
		kind string
		dir  string
	}{
		{"installation", r.resolver.InstallationsRoot()},
		{"environment", r.resolver.EnvironmentsRoot()},
	} {
		entries, err := afero.ReadDir(r.fs, root.dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if _, tracked := r.doc.Installations[entry.Name()]; !tracked {
				zombies = append(zombies, zombie{root.kind, filepath.Join(root.dir, entry.Name())})
			}
		}
	}

	if len(zombies) == 0 {
		r.log.Info().Msg("no zombie directories found")
		return 0, nil
	}

	if confirm && r.prompter != nil {
		ok, err := r.prompter.Confirm(fmt.Sprintf("Remove %d zombie directories", len(zombies)))
		if err != nil {
			return 0, err
		}
		if !ok {
			r.log.Info().Msg("cleanup cancelled")
			return 0, nil
		}
	}

	cleaned := 0
	for _, z := range zombies {
		if err := r.fs.RemoveAll(z.path); err != nil {
			r.log.Error().Err(err).Str("path", z.path).Msg("could not remove zombie directory")
			continue
		}
		r.log.Info().Str("kind", z.kind).Str("path", z.path).Msg("zombie directory removed")
		cleaned++
	}

	return cleaned, nil
}
