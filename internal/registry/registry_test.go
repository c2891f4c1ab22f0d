package registry

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpdarela/luaenv/internal/core"
	"github.com/jpdarela/luaenv/internal/fsops"
	"github.com/jpdarela/luaenv/internal/paths"
	"github.com/jpdarela/luaenv/internal/store"
)

// stubPrompter answers every confirmation with a fixed result
type stubPrompter struct {
	answer bool
	asked  int
}

func (p *stubPrompter) Confirm(label string) (bool, error) {
	p.asked++
	return p.answer, nil
}

func newTestRegistry(t *testing.T) (*Registry, afero.Fs, *paths.Resolver) {
	t.Helper()

	fs := afero.NewMemMapFs()
	resolver := paths.NewResolverWithRoot("/luaenv")
	logger := zerolog.Nop()

	r, err := Open(fs, resolver, &logger, &stubPrompter{answer: true})
	require.NoError(t, err)
	return r, fs, resolver
}

func testCreateOptions() CreateOptions {
	return CreateOptions{
		LuaVersion:      "5.4.8",
		LuaRocksVersion: "3.12.2",
		BuildType:       core.BuildTypeStatic,
		BuildConfig:     core.BuildConfigRelease,
	}
}

func TestOpenCreatesTree(t *testing.T) {
	_, fs, resolver := newTestRegistry(t)

	for _, dir := range []string{
		resolver.Root(),
		resolver.InstallationsRoot(),
		resolver.EnvironmentsRoot(),
		resolver.CacheDir(),
	} {
		assert.True(t, fsops.IsDir(fs, dir), "expected %s to exist", dir)
	}
}

func TestCreateAndGet(t *testing.T) {
	r, fs, resolver := newTestRegistry(t)

	opts := testCreateOptions()
	opts.Alias = "dev"

	id, err := r.Create(opts)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	assert.True(t, fsops.IsDir(fs, resolver.InstallationDir(id)))
	assert.True(t, fsops.IsDir(fs, resolver.EnvironmentDir(id)))

	rec, err := r.Get("dev")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "dev", rec.Alias)
	assert.Equal(t, "5.4.8", rec.LuaVersion)
	assert.Equal(t, "3.12.2", rec.LuaRocksVersion)
	assert.Equal(t, core.StatusBuilding, rec.Status)
	assert.Equal(t, core.ArchX64, rec.Architecture)

	byID, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, rec, byID)
}

func TestCreateDefaultName(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	id, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	rec, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Lua 5.4.8 STATIC Release (x64)", rec.Name)
}

func TestCreateCustomName(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	opts := testCreateOptions()
	opts.Name = "my build"

	id, err := r.Create(opts)
	require.NoError(t, err)

	rec, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "my build", rec.Name)
}

func TestCreateFirstBecomesDefault(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	first, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	_, err = r.Create(testCreateOptions())
	require.NoError(t, err)

	def := r.GetDefault()
	require.NotNil(t, def)
	assert.Equal(t, first, def.ID)
}

func TestCreateDuplicateAlias(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	opts := testCreateOptions()
	opts.Alias = "dev"

	_, err := r.Create(opts)
	require.NoError(t, err)

	_, err = r.Create(opts)
	assert.ErrorIs(t, err, ErrAliasExists)
	assert.Len(t, r.List(), 1)
}

// failWriteFs rejects file creation under a path prefix, letting directory
// operations through. Used to force a persist failure mid-Create.
type failWriteFs struct {
	afero.Fs
	failPath string
}

func (f *failWriteFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_WRONLY != 0 && name == f.failPath {
		return nil, errors.New("disk full")
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func TestCreateRollsBackOnPersistFailure(t *testing.T) {
	r, fs, resolver := newTestRegistry(t)

	r.fs = &failWriteFs{Fs: fs, failPath: resolver.RegistryFile()}
	r.store = store.New(r.fs, r.log)

	opts := testCreateOptions()
	opts.Alias = "dev"

	_, err := r.Create(opts)
	require.Error(t, err)

	// Every side effect is unwound: no record, no alias, no default, no dirs
	assert.Empty(t, r.List())
	assert.Empty(t, r.Aliases())
	assert.Nil(t, r.GetDefault())

	entries, err := afero.ReadDir(fs, resolver.InstallationsRoot())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGetNotFound(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByPrefix(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	id, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	rec, err := r.Get(id[:8])
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)

	// Below the minimum prefix length nothing matches
	_, err = r.Get(id[:7])
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAmbiguousPrefix(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	// Two records sharing the first eight characters
	for _, id := range []string{
		"aaaabbbb-1111-4000-8000-000000000001",
		"aaaabbbb-2222-4000-8000-000000000002",
	} {
		r.doc.Installations[id] = &core.InstallationRecord{ID: id, Created: time.Now().UTC()}
	}

	_, err := r.Get("aaaabbbb")
	assert.ErrorIs(t, err, ErrAmbiguousID)
}

func TestResolveID(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	opts := testCreateOptions()
	opts.Alias = "dev"

	id, err := r.Create(opts)
	require.NoError(t, err)

	resolved, err := r.ResolveID("dev")
	require.NoError(t, err)
	assert.Equal(t, id, resolved)
}

func TestListNewestFirst(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	first, err := r.Create(testCreateOptions())
	require.NoError(t, err)
	second, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	// Force distinct creation times
	r.doc.Installations[first].Created = time.Now().UTC().Add(-time.Hour)
	r.doc.Installations[second].Created = time.Now().UTC()

	records := r.List()
	require.Len(t, records, 2)
	assert.Equal(t, second, records[0].ID)
	assert.Equal(t, first, records[1].ID)
}

func TestRemove(t *testing.T) {
	r, fs, resolver := newTestRegistry(t)

	opts := testCreateOptions()
	opts.Alias = "dev"

	id, err := r.Create(opts)
	require.NoError(t, err)

	removed, err := r.Remove("dev", false)
	require.NoError(t, err)
	assert.True(t, removed)

	assert.False(t, fsops.Exists(fs, resolver.InstallationDir(id)))
	assert.False(t, fsops.Exists(fs, resolver.EnvironmentDir(id)))
	assert.Empty(t, r.List())
	assert.Empty(t, r.Aliases())
	assert.Nil(t, r.GetDefault())
}

func TestRemoveNotFound(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	removed, err := r.Remove("missing", false)
	assert.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveDeclined(t *testing.T) {
	fs := afero.NewMemMapFs()
	resolver := paths.NewResolverWithRoot("/luaenv")
	logger := zerolog.Nop()
	prompter := &stubPrompter{answer: false}

	r, err := Open(fs, resolver, &logger, prompter)
	require.NoError(t, err)

	id, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	removed, err := r.Remove(id, true)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, prompter.asked)
	assert.Len(t, r.List(), 1)
}

func TestRemoveReassignsDefault(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	first, err := r.Create(testCreateOptions())
	require.NoError(t, err)
	second, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	require.Equal(t, first, r.GetDefault().ID)

	removed, err := r.Remove(first, false)
	require.NoError(t, err)
	require.True(t, removed)

	def := r.GetDefault()
	require.NotNil(t, def)
	assert.Equal(t, second, def.ID)
}

func TestSetAlias(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	id, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	require.NoError(t, r.SetAlias(id, "prod"))

	rec, err := r.Get("prod")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "prod", rec.Alias)

	// Re-pointing an alias at the same installation is a no-op success
	assert.NoError(t, r.SetAlias(id, "prod"))
}

func TestSetAliasConflict(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	first, err := r.Create(testCreateOptions())
	require.NoError(t, err)
	second, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	require.NoError(t, r.SetAlias(first, "prod"))
	assert.ErrorIs(t, r.SetAlias(second, "prod"), ErrAliasConflict)
}

func TestSetAliasUnknownInstallation(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	assert.ErrorIs(t, r.SetAlias("no-such-id", "dev"), ErrNotFound)
}

func TestRemoveAlias(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	opts := testCreateOptions()
	opts.Alias = "dev"

	id, err := r.Create(opts)
	require.NoError(t, err)

	require.NoError(t, r.RemoveAlias("dev"))

	rec, err := r.Get(id)
	require.NoError(t, err)
	assert.Empty(t, rec.Alias)

	_, err = r.Get("dev")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, r.RemoveAlias("dev"), ErrNotFound)
}

func TestSetDefault(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	_, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	opts := testCreateOptions()
	opts.Alias = "dev"
	second, err := r.Create(opts)
	require.NoError(t, err)

	require.NoError(t, r.SetDefault("dev"))
	assert.Equal(t, second, r.GetDefault().ID)

	assert.ErrorIs(t, r.SetDefault("missing"), ErrNotFound)
}

func TestGetDefaultStalePointer(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	r.doc.DefaultInstallation = "gone"
	assert.Nil(t, r.GetDefault())
}

func TestUpdateStatus(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	id, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	require.NoError(t, r.UpdateStatus(id, core.StatusActive))

	rec, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusActive, rec.Status)

	assert.ErrorIs(t, r.UpdateStatus("missing", core.StatusActive), ErrNotFound)
}

func TestUpdateLastUsed(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	id, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	rec, err := r.Get(id)
	require.NoError(t, err)
	require.Nil(t, rec.LastUsed)

	require.NoError(t, r.UpdateLastUsed(id))
	require.NotNil(t, rec.LastUsed)
	assert.WithinDuration(t, time.Now().UTC(), *rec.LastUsed, time.Minute)
}

func TestStatusSummary(t *testing.T) {
	r, _, resolver := newTestRegistry(t)

	opts := testCreateOptions()
	opts.Alias = "dev"
	id, err := r.Create(opts)
	require.NoError(t, err)

	summary := r.Status()
	assert.Equal(t, resolver.RegistryFile(), summary.RegistryFile)
	assert.Equal(t, 1, summary.Installations)
	assert.Equal(t, map[string]string{"dev": id}, summary.Aliases)
	require.NotNil(t, summary.Default)
	assert.Equal(t, id, summary.Default.ID)
}

func TestPersistenceAcrossOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	resolver := paths.NewResolverWithRoot("/luaenv")
	logger := zerolog.Nop()

	r, err := Open(fs, resolver, &logger, &stubPrompter{answer: true})
	require.NoError(t, err)

	opts := testCreateOptions()
	opts.Alias = "dev"
	id, err := r.Create(opts)
	require.NoError(t, err)

	reopened, err := Open(fs, resolver, &logger, &stubPrompter{answer: true})
	require.NoError(t, err)

	rec, err := reopened.Get("dev")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, id, reopened.GetDefault().ID)
}

func TestOpenNormalizesArchitecture(t *testing.T) {
	fs := afero.NewMemMapFs()
	resolver := paths.NewResolverWithRoot("/luaenv")
	logger := zerolog.Nop()

	r, err := Open(fs, resolver, &logger, &stubPrompter{answer: true})
	require.NoError(t, err)

	id, err := r.Create(testCreateOptions())
	require.NoError(t, err)

	// Simulate a record written before the architecture field existed
	r.doc.Installations[id].Architecture = ""
	require.NoError(t, r.save())

	reopened, err := Open(fs, resolver, &logger, &stubPrompter{answer: true})
	require.NoError(t, err)

	rec, err := reopened.Get(id)
	require.NoError(t, err)
	assert.Equal(t, core.ArchX64, rec.Architecture)
}

func TestOpenCorruptDocument(t *testing.T) {
	fs := afero.NewMemMapFs()
	resolver := paths.NewResolverWithRoot("/luaenv")
	logger := zerolog.Nop()

	require.NoError(t, fs.MkdirAll(resolver.Root(), 0755))
	require.NoError(t, afero.WriteFile(fs, resolver.RegistryFile(), []byte("{garbage"), 0644))

	r, err := Open(fs, resolver, &logger, &stubPrompter{answer: true})
	require.NoError(t, err)
	assert.Empty(t, r.List())
}

func TestSaveWritesBackup(t *testing.T) {
	r, fs, resolver := newTestRegistry(t)

	_, err := r.Create(testCreateOptions())
	require.NoError(t, err)
	_, err = r.Create(testCreateOptions())
	require.NoError(t, err)

	exists, err := afero.Exists(fs, store.BackupPath(resolver.RegistryFile()))
	require.NoError(t, err)
	assert.True(t, exists)
}
