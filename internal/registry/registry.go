// Package registry owns the authoritative mapping from identity (UUID or
// alias) to an installation's metadata and on-disk location.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/jpdarela/luaenv/internal/core"
	"github.com/jpdarela/luaenv/internal/fsops"
	"github.com/jpdarela/luaenv/internal/paths"
	"github.com/jpdarela/luaenv/internal/store"
	"github.com/jpdarela/luaenv/internal/transaction"
	"github.com/jpdarela/luaenv/internal/ui"
)

// RegistryVersion is the schema version of the persisted document
const RegistryVersion = "1.0"

// PrefixMinLen is the minimum number of characters accepted for a partial
// installation id
const PrefixMinLen = 8

// EntryPoints are the executables Validate expects under an installation's
// bin directory
var EntryPoints = []string{"lua.exe", "luac.exe"}

var (
	// ErrAliasExists is returned by Create when the requested alias is taken
	ErrAliasExists = errors.New("alias already exists")

	// ErrAliasConflict is returned by SetAlias when the alias points at a
	// different installation
	ErrAliasConflict = errors.New("alias points to another installation")

	// ErrNotFound is returned when an id, alias, or prefix resolves to nothing
	ErrNotFound = errors.New("installation not found")

	// ErrAmbiguousID is returned when a partial id matches more than one
	// installation; callers treat it as not-found and supply more characters
	ErrAmbiguousID = errors.New("ambiguous installation id")
)

// Document is the persisted registry schema
type Document struct {
	RegistryVersion     string                              `json:"registry_version"`
	Created             time.Time                           `json:"created"`
	Updated             time.Time                           `json:"updated"`
	DefaultInstallation string                              `json:"default_installation,omitempty"`
	Installations       map[string]*core.InstallationRecord `json:"installations"`
	Aliases             map[string]string                   `json:"aliases"`
}

// Registry manages the installation registry document and its directory
// trees. All operations are synchronous; the document is rewritten in full
// (with a backup copy) after every mutation.
type Registry struct {
	fs       afero.Fs
	store    *store.Store
	resolver *paths.Resolver
	log      *zerolog.Logger
	prompter ui.Prompter
	doc      *Document
}

// CreateOptions describes a new installation
type CreateOptions struct {
	LuaVersion      string
	LuaRocksVersion string
	BuildType       core.BuildType
	BuildConfig     core.BuildConfig
	Architecture    core.Architecture
	Name            string
	Alias           string
}

// Open loads the registry document (creating a fresh one when absent) and
// ensures the luaenv directory tree exists.
func Open(fs afero.Fs, resolver *paths.Resolver, log *zerolog.Logger, prompter ui.Prompter) (*Registry, error) {
	r := &Registry{
		fs:       fs,
		store:    store.New(fs, log),
		resolver: resolver,
		log:      log,
		prompter: prompter,
	}

	for _, dir := range []string{
		resolver.Root(),
		resolver.InstallationsRoot(),
		resolver.EnvironmentsRoot(),
		resolver.CacheDir(),
	} {
		if err := fsops.EnsureDir(fs, dir, 0755); err != nil {
			return nil, err
		}
	}

	doc := &Document{}
	if r.store.Load(resolver.RegistryFile(), doc) {
		if doc.RegistryVersion != RegistryVersion {
			log.Warn().
				Str("expected", RegistryVersion).
				Str("found", doc.RegistryVersion).
				Msg("registry version mismatch")
		}
		normalize(doc)
		r.doc = doc
		return r, nil
	}

	now := time.Now().UTC()
	r.doc = &Document{
		RegistryVersion: RegistryVersion,
		Created:         now,
		Updated:         now,
		Installations:   make(map[string]*core.InstallationRecord),
		Aliases:         make(map[string]string),
	}
	return r, nil
}

// normalize applies forward-compatible defaults to records loaded from
// older documents.
func normalize(doc *Document) {
	if doc.Installations == nil {
		doc.Installations = make(map[string]*core.InstallationRecord)
	}
	if doc.Aliases == nil {
		doc.Aliases = make(map[string]string)
	}
	for _, rec := range doc.Installations {
		// Records written before the architecture field existed are x64
		if rec.Architecture == "" {
			rec.Architecture = core.ArchX64
		}
	}
}

func (r *Registry) save() error {
	r.doc.Updated = time.Now().UTC()
	return r.store.Save(r.resolver.RegistryFile(), r.doc)
}

// Create allocates a new installation: directories created, record written,
// alias registered, default set when this is the first installation. Any
// failure partway through unwinds every side effect already made and
// persists the cleaned document, so a failed Create leaves no trace.
func (r *Registry) Create(opts CreateOptions) (string, error) {
	// Validate the alias before creating anything
	if opts.Alias != "" {
		if _, taken := r.doc.Aliases[opts.Alias]; taken {
			return "", fmt.Errorf("alias %q: %w", opts.Alias, ErrAliasExists)
		}
	}

	id := uuid.NewString()
	arch := opts.Architecture
	if arch == "" {
		arch = core.ArchX64
	}

	name := opts.Name
	if name == "" {
		name = defaultName(opts.LuaVersion, opts.BuildType, opts.BuildConfig, arch)
	}

	installPath := r.resolver.InstallationDir(id)
	envPath := r.resolver.EnvironmentDir(id)

	txn := transaction.New(r.log)

	fail := func(cause error) (string, error) {
		if err := txn.Rollback(); err != nil {
			r.log.Warn().Err(err).Msg("create rollback incomplete")
		}
		if err := r.save(); err != nil {
			r.log.Warn().Err(err).Msg("could not persist registry after rollback")
		}
		return "", cause
	}

	if err := r.fs.MkdirAll(installPath, 0755); err != nil {
		return fail(fmt.Errorf("create installation directory: %w", err))
	}
	txn.Add("remove installation directory", func() error {
		return r.fs.RemoveAll(installPath)
	})

	if err := r.fs.MkdirAll(envPath, 0755); err != nil {
		return fail(fmt.Errorf("create environment directory: %w", err))
	}
	txn.Add("remove environment directory", func() error {
		return r.fs.RemoveAll(envPath)
	})

	record := &core.InstallationRecord{
		ID:               id,
		Name:             name,
		Alias:            opts.Alias,
		LuaVersion:       opts.LuaVersion,
		LuaRocksVersion:  opts.LuaRocksVersion,
		BuildType:        opts.BuildType,
		BuildConfig:      opts.BuildConfig,
		Architecture:     arch,
		Created:          time.Now().UTC(),
		Status:           core.StatusBuilding,
		InstallationPath: installPath,
		EnvironmentPath:  envPath,
		Tags:             []string{},
	}

	r.doc.Installations[id] = record
	txn.Add("unregister installation", func() error {
		delete(r.doc.Installations, id)
		return nil
	})

	if opts.Alias != "" {
		r.doc.Aliases[opts.Alias] = id
		txn.Add("unregister alias", func() error {
			delete(r.doc.Aliases, opts.Alias)
			return nil
		})
	}

	if r.doc.DefaultInstallation == "" {
		r.doc.DefaultInstallation = id
		txn.Add("clear default installation", func() error {
			r.doc.DefaultInstallation = ""
			return nil
		})
	}

	if err := r.save(); err != nil {
		return fail(fmt.Errorf("persist registry: %w", err))
	}

	txn.Commit()

	r.log.Info().
		Str("id", id).
		Str("name", name).
		Str("alias", opts.Alias).
		Msg("installation created")

	return id, nil
}

// defaultName derives a human label like "Lua 5.4.8 STATIC Release (x64)"
func defaultName(luaVersion string, bt core.BuildType, bc core.BuildConfig, arch core.Architecture) string {
	cfg := string(bc)
	if cfg != "" {
		cfg = strings.ToUpper(cfg[:1]) + cfg[1:]
	}
	return fmt.Sprintf("Lua %s %s %s (%s)", luaVersion, strings.ToUpper(string(bt)), cfg, arch)
}

// Get resolves an installation by alias, full UUID, or a unique UUID prefix
// of at least PrefixMinLen characters.
func (r *Registry) Get(idOrAlias string) (*core.InstallationRecord, error) {
	if id, ok := r.doc.Aliases[idOrAlias]; ok {
		if rec, ok := r.doc.Installations[id]; ok {
			return rec, nil
		}
	}

	if rec, ok := r.doc.Installations[idOrAlias]; ok {
		return rec, nil
	}

	if len(idOrAlias) >= PrefixMinLen {
		var matches []string
		for id := range r.doc.Installations {
			if strings.HasPrefix(id, idOrAlias) {
				matches = append(matches, id)
			}
		}

		switch len(matches) {
		case 1:
			return r.doc.Installations[matches[0]], nil
		default:
			if len(matches) > 1 {
				r.log.Error().
					Str("partial", idOrAlias).
					Strs("matches", matches).
					Msg("ambiguous partial installation id")
				return nil, fmt.Errorf("%q: %w", idOrAlias, ErrAmbiguousID)
			}
		}
	}

	return nil, fmt.Errorf("%q: %w", idOrAlias, ErrNotFound)
}

// ResolveID resolves an alias or partial id to a full UUID.
func (r *Registry) ResolveID(idOrAlias string) (string, error) {
	rec, err := r.Get(idOrAlias)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

// List returns all installations, newest first.
func (r *Registry) List() []*core.InstallationRecord {
	records := make([]*core.InstallationRecord, 0, len(r.doc.Installations))
	for _, rec := range r.doc.Installations {
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Created.After(records[j].Created)
	})

	return records
}

// Aliases returns a copy of the alias map.
func (r *Registry) Aliases() map[string]string {
	out := make(map[string]string, len(r.doc.Aliases))
	for alias, id := range r.doc.Aliases {
		out[alias] = id
	}
	return out
}

// Remove deletes an installation: both directory trees, the record, every
// alias pointing at it, and reassigns or clears the default. With confirm
// set a prompt guards the deletion; automated callers pass false.
func (r *Registry) Remove(idOrAlias string, confirm bool) (bool, error) {
	rec, err := r.Get(idOrAlias)
	if err != nil {
		r.log.Warn().Str("ref", idOrAlias).Msg("installation not found")
		return false, nil
	}

	if confirm && r.prompter != nil {
		ok, err := r.prompter.Confirm(fmt.Sprintf("Remove installation %q (%s)", rec.Name, rec.ID))
		if err != nil {
			return false, err
		}
		if !ok {
			r.log.Info().Msg("removal cancelled")
			return false, nil
		}
	}

	if err := r.fs.RemoveAll(rec.InstallationPath); err != nil {
		return false, fmt.Errorf("remove installation directory: %w", err)
	}
	if err := r.fs.RemoveAll(rec.EnvironmentPath); err != nil {
		return false, fmt.Errorf("remove environment directory: %w", err)
	}

	delete(r.doc.Installations, rec.ID)

	for alias, target := range r.doc.Aliases {
		if target == rec.ID {
			delete(r.doc.Aliases, alias)
			r.log.Debug().Str("alias", alias).Msg("alias removed")
		}
	}

	if r.doc.DefaultInstallation == rec.ID {
		r.doc.DefaultInstallation = ""
		for id := range r.doc.Installations {
			r.doc.DefaultInstallation = id
			break
		}
		if r.doc.DefaultInstallation != "" {
			r.log.Info().Str("id", r.doc.DefaultInstallation).Msg("new default installation")
		}
	}

	if err := r.save(); err != nil {
		return false, fmt.Errorf("persist registry: %w", err)
	}

	r.log.Info().Str("id", rec.ID).Str("name", rec.Name).Msg("installation removed")
	return true, nil
}

// SetAlias points alias at an installation. Re-pointing an alias at the
// installation it already names is a no-op success; pointing it elsewhere is
// a conflict.
func (r *Registry) SetAlias(installationID, alias string) error {
	rec, ok := r.doc.Installations[installationID]
	if !ok {
		return fmt.Errorf("%q: %w", installationID, ErrNotFound)
	}

	if existing, taken := r.doc.Aliases[alias]; taken {
		if existing != installationID {
			return fmt.Errorf("alias %q already points to %s: %w", alias, existing, ErrAliasConflict)
		}
	}

	r.doc.Aliases[alias] = installationID
	rec.Alias = alias

	if err := r.save(); err != nil {
		return fmt.Errorf("persist registry: %w", err)
	}

	r.log.Info().Str("alias", alias).Str("id", installationID).Msg("alias set")
	return nil
}

// RemoveAlias removes an alias and clears the owning record's alias field.
func (r *Registry) RemoveAlias(alias string) error {
	id, ok := r.doc.Aliases[alias]
	if !ok {
		return fmt.Errorf("alias %q: %w", alias, ErrNotFound)
	}

	delete(r.doc.Aliases, alias)
	if rec, ok := r.doc.Installations[id]; ok && rec.Alias == alias {
		rec.Alias = ""
	}

	if err := r.save(); err != nil {
		return fmt.Errorf("persist registry: %w", err)
	}

	r.log.Info().Str("alias", alias).Msg("alias removed")
	return nil
}

// SetDefault marks an installation as the default.
func (r *Registry) SetDefault(idOrAlias string) error {
	id, err := r.ResolveID(idOrAlias)
	if err != nil {
		return err
	}

	r.doc.DefaultInstallation = id
	if err := r.save(); err != nil {
		return fmt.Errorf("persist registry: %w", err)
	}

	r.log.Info().Str("id", id).Msg("default installation set")
	return nil
}

// GetDefault returns the default installation, or nil when none is set or
// the default pointer no longer resolves.
func (r *Registry) GetDefault() *core.InstallationRecord {
	if r.doc.DefaultInstallation == "" {
		return nil
	}
	return r.doc.Installations[r.doc.DefaultInstallation]
}

// Summary is an aggregate view of the registry
type Summary struct {
	RegistryFile  string
	Installations int
	Aliases       map[string]string
	Default       *core.InstallationRecord
}

// Status summarizes the registry for reporting.
func (r *Registry) Status() Summary {
	return Summary{
		RegistryFile:  r.resolver.RegistryFile(),
		Installations: len(r.doc.Installations),
		Aliases:       r.Aliases(),
		Default:       r.GetDefault(),
	}
}

// UpdateStatus sets the lifecycle status of an installation. The external
// builder uses this to mark a record active or broken.
func (r *Registry) UpdateStatus(installationID string, status core.Status) error {
	rec, ok := r.doc.Installations[installationID]
	if !ok {
		return fmt.Errorf("%q: %w", installationID, ErrNotFound)
	}

	rec.Status = status
	return r.save()
}

// UpdateLastUsed stamps the activation time of an installation.
func (r *Registry) UpdateLastUsed(installationID string) error {
	rec, ok := r.doc.Installations[installationID]
	if !ok {
		return fmt.Errorf("%q: %w", installationID, ErrNotFound)
	}

	now := time.Now().UTC()
	rec.LastUsed = &now
	return r.save()
}
