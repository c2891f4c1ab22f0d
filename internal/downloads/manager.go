// Package downloads manages version-aware acquisition of source archives.
// Archives are shared between version combinations and reclaimed only when
// no combination references them.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/jpdarela/luaenv/internal/core"
	"github.com/jpdarela/luaenv/internal/fsops"
	"github.com/jpdarela/luaenv/internal/helpers"
	"github.com/jpdarela/luaenv/internal/store"
)

// DocumentVersion is the schema version of the download registry
const DocumentVersion = "2.0"

// registryFilename is the download registry document inside the cache dir
const registryFilename = "download_registry.json"

// luaFileTypes are the archive slots fetched for the Lua side
var luaFileTypes = []string{"lua", "lua_tests"}

// ErrNotDownloaded is returned by Extract when the combination is not
// fully present on disk
var ErrNotDownloaded = errors.New("version combination not downloaded")

// Document is the persisted download registry schema
type Document struct {
	Version           string                            `json:"version"`
	Created           time.Time                         `json:"created"`
	LastUpdated       time.Time                         `json:"last_updated"`
	LuaDownloads      map[string]*core.LuaDownload      `json:"lua_downloads"`
	LuaRocksDownloads map[string]*core.LuaRocksDownload `json:"luarocks_downloads"`
	Combinations      map[string]*core.Combination      `json:"combinations"`
}

// Options configures a Manager
type Options struct {
	// Progress renders a progress bar per fetched file
	Progress bool
	// Client overrides the HTTP client (tests)
	Client *http.Client
}

// Manager is the download cache manager. Single-threaded: every operation
// is a direct sequence of HTTP and file I/O, and downloads within Acquire
// run sequentially file by file.
type Manager struct {
	fs       afero.Fs
	store    *store.Store
	baseDir  string
	client   *http.Client
	log      *zerolog.Logger
	progress bool
	doc      *Document
}

// ComboInfo summarizes one downloaded version combination
type ComboInfo struct {
	Key             string    `json:"key"`
	LuaVersion      string    `json:"lua_version"`
	LuaRocksVersion string    `json:"luarocks_version"`
	Platform        string    `json:"platform"`
	Created         time.Time `json:"created"`
	TotalSize       int64     `json:"total_size"`
	FileCount       int       `json:"file_count"`
}

// Info aggregates the download registry independent of combinations
type Info struct {
	CombinationCount int    `json:"combination_count"`
	LuaVersions      int    `json:"lua_versions"`
	LuaRocksVersions int    `json:"luarocks_versions"`
	TotalSize        int64  `json:"total_size"`
	RegistryFile     string `json:"registry_file"`
	BaseDir          string `json:"base_dir"`
}

// New creates a Manager rooted at baseDir, loading the download registry
// document or starting a fresh one.
func New(fs afero.Fs, baseDir string, log *zerolog.Logger, opts Options) *Manager {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}

	m := &Manager{
		fs:       fs,
		store:    store.New(fs, log),
		baseDir:  baseDir,
		client:   client,
		log:      log,
		progress: opts.Progress,
	}

	doc := &Document{}
	if m.store.Load(m.registryPath(), doc) {
		if doc.Version != DocumentVersion {
			log.Warn().
				Str("expected", DocumentVersion).
				Str("found", doc.Version).
				Msg("download registry version mismatch")
		}
		if doc.LuaDownloads == nil {
			doc.LuaDownloads = make(map[string]*core.LuaDownload)
		}
		if doc.LuaRocksDownloads == nil {
			doc.LuaRocksDownloads = make(map[string]*core.LuaRocksDownload)
		}
		if doc.Combinations == nil {
			doc.Combinations = make(map[string]*core.Combination)
		}
		m.doc = doc
		return m
	}

	m.doc = &Document{
		Version:           DocumentVersion,
		Created:           time.Now().UTC(),
		LuaDownloads:      make(map[string]*core.LuaDownload),
		LuaRocksDownloads: make(map[string]*core.LuaRocksDownload),
		Combinations:      make(map[string]*core.Combination),
	}
	return m
}

func (m *Manager) registryPath() string {
	return filepath.Join(m.baseDir, registryFilename)
}

func (m *Manager) save() error {
	m.doc.LastUpdated = time.Now().UTC()
	return m.store.Save(m.registryPath(), m.doc)
}

// LuaDir returns the archive directory for a Lua version.
func (m *Manager) LuaDir(luaVersion string) string {
	return filepath.Join(m.baseDir, "lua", "lua-"+luaVersion)
}

// LuaRocksDir returns the archive directory for a LuaRocks version and platform.
func (m *Manager) LuaRocksDir(luarocksVersion, platform string) string {
	return filepath.Join(m.baseDir, "luarocks", fmt.Sprintf("luarocks-%s-%s", luarocksVersion, platform))
}

// VersionKey returns the combination key for a version pair.
func VersionKey(luaVersion, luarocksVersion string) string {
	return fmt.Sprintf("lua-%s_luarocks-%s", luaVersion, luarocksVersion)
}

func luarocksKey(luarocksVersion, platform string) string {
	return fmt.Sprintf("%s-%s", luarocksVersion, platform)
}

// IsLuaDownloaded reports whether every recorded file for a Lua version
// exists on disk and is non-empty. An entry with no files is not present.
func (m *Manager) IsLuaDownloaded(luaVersion string) bool {
	entry, ok := m.doc.LuaDownloads[luaVersion]
	if !ok || len(entry.Files) == 0 {
		return false
	}

	dir := m.LuaDir(luaVersion)
	for _, file := range entry.Files {
		if !fsops.VerifyFile(m.fs, filepath.Join(dir, file.Filename)) {
			return false
		}
	}
	return true
}

// IsLuaRocksDownloaded reports whether every recorded file for a LuaRocks
// version and platform exists on disk and is non-empty.
func (m *Manager) IsLuaRocksDownloaded(luarocksVersion, platform string) bool {
	entry, ok := m.doc.LuaRocksDownloads[luarocksKey(luarocksVersion, platform)]
	if !ok || len(entry.Files) == 0 {
		return false
	}

	dir := m.LuaRocksDir(luarocksVersion, platform)
	for _, file := range entry.Files {
		if !fsops.VerifyFile(m.fs, filepath.Join(dir, file.Filename)) {
			return false
		}
	}
	return true
}

// IsDownloaded reports whether both sides of a version combination are present.
func (m *Manager) IsDownloaded(luaVersion, luarocksVersion, platform string) bool {
	return m.IsLuaDownloaded(luaVersion) && m.IsLuaRocksDownloaded(luarocksVersion, platform)
}

// Acquire fetches whatever parts of a version combination are missing.
// Already-present sides are skipped, and each side's registry entry is
// persisted as soon as that side completes, so a failed call can be retried
// and resumes where it left off. The combination itself is registered only
// after both sides succeed. Fetch failures are reported as (false, message),
// never as an error.
func (m *Manager) Acquire(ctx context.Context, luaVersion, luarocksVersion string,
	urls, filenames map[string]string, platform string) (bool, string) {

	versionKey := VersionKey(luaVersion, luarocksVersion)
	rocksKey := luarocksKey(luarocksVersion, platform)

	luaNeeded := !m.IsLuaDownloaded(luaVersion)
	rocksNeeded := !m.IsLuaRocksDownloaded(luarocksVersion, platform)

	if !luaNeeded && !rocksNeeded {
		// Acquiring an existing combination is idempotent
		if _, ok := m.doc.Combinations[versionKey]; !ok {
			m.doc.Combinations[versionKey] = &core.Combination{
				LuaVersion:      luaVersion,
				LuaRocksVersion: luarocksVersion,
				Platform:        platform,
				Created:         time.Now().UTC(),
			}
			if err := m.save(); err != nil {
				return false, fmt.Sprintf("Failed to register %s: %v", versionKey, err)
			}
		}
		return true, fmt.Sprintf("Version %s already downloaded", versionKey)
	}

	if luaNeeded {
		if err := m.fetchLua(ctx, luaVersion, urls, filenames); err != nil {
			return false, fmt.Sprintf("Failed to download %s: %v", versionKey, err)
		}
	} else {
		m.log.Info().Str("lua_version", luaVersion).Msg("lua already downloaded, skipping")
	}

	if rocksNeeded {
		if err := m.fetchLuaRocks(ctx, luarocksVersion, platform, urls, filenames); err != nil {
			return false, fmt.Sprintf("Failed to download %s: %v", versionKey, err)
		}
	} else {
		m.log.Info().Str("luarocks", rocksKey).Msg("luarocks already downloaded, skipping")
	}

	m.doc.Combinations[versionKey] = &core.Combination{
		LuaVersion:      luaVersion,
		LuaRocksVersion: luarocksVersion,
		Platform:        platform,
		Created:         time.Now().UTC(),
	}
	if err := m.save(); err != nil {
		return false, fmt.Sprintf("Failed to register %s: %v", versionKey, err)
	}

	return true, fmt.Sprintf("Successfully downloaded %s", versionKey)
}

// fetchLua downloads the Lua-side archives and persists the entry.
func (m *Manager) fetchLua(ctx context.Context, luaVersion string, urls, filenames map[string]string) error {
	dir := m.LuaDir(luaVersion)
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create lua directory: %w", err)
	}

	entry := &core.LuaDownload{
		LuaVersion:   luaVersion,
		DownloadDate: time.Now().UTC(),
		Files:        make(map[string]core.DownloadFile),
	}

	m.log.Info().Str("lua_version", luaVersion).Msg("downloading lua components")
	for _, fileType := range luaFileTypes {
		url, haveURL := urls[fileType]
		filename, haveName := filenames[fileType]
		if !haveURL || !haveName {
			continue
		}

		dest := filepath.Join(dir, filename)
		if err := m.fetch(ctx, url, dest); err != nil {
			return err
		}

		entry.Files[fileType] = core.DownloadFile{
			Filename:     filename,
			URL:          url,
			Size:         fsops.FileSize(m.fs, dest),
			DownloadedAt: time.Now().UTC(),
		}
	}

	m.doc.LuaDownloads[luaVersion] = entry
	return m.save()
}

// fetchLuaRocks downloads the LuaRocks archive and persists the entry.
func (m *Manager) fetchLuaRocks(ctx context.Context, luarocksVersion, platform string, urls, filenames map[string]string) error {
	dir := m.LuaRocksDir(luarocksVersion, platform)
	if err := m.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create luarocks directory: %w", err)
	}

	entry := &core.LuaRocksDownload{
		LuaRocksVersion: luarocksVersion,
		Platform:        platform,
		DownloadDate:    time.Now().UTC(),
		Files:           make(map[string]core.DownloadFile),
	}

	m.log.Info().Str("luarocks", luarocksKey(luarocksVersion, platform)).Msg("downloading luarocks")
	if url, ok := urls["luarocks"]; ok {
		if filename, ok := filenames["luarocks"]; ok {
			dest := filepath.Join(dir, filename)
			if err := m.fetch(ctx, url, dest); err != nil {
				return err
			}

			entry.Files["luarocks"] = core.DownloadFile{
				Filename:     filename,
				URL:          url,
				Size:         fsops.FileSize(m.fs, dest),
				DownloadedAt: time.Now().UTC(),
			}
		}
	}

	m.doc.LuaRocksDownloads[luarocksKey(luarocksVersion, platform)] = entry
	return m.save()
}

// Extract unpacks every recorded archive of a downloaded combination into
// targetDir (default: the parent of the cache directory). The move callback
// relocates top-level extracted entries into the caller's layout.
func (m *Manager) Extract(luaVersion, luarocksVersion, targetDir string,
	move helpers.MoveFunc, platform string) error {

	versionKey := VersionKey(luaVersion, luarocksVersion)
	if !m.IsDownloaded(luaVersion, luarocksVersion, platform) {
		return fmt.Errorf("%s: %w", versionKey, ErrNotDownloaded)
	}

	if targetDir == "" {
		targetDir = filepath.Dir(m.baseDir)
	}

	if entry, ok := m.doc.LuaDownloads[luaVersion]; ok {
		dir := m.LuaDir(luaVersion)
		for fileType, file := range entry.Files {
			m.log.Info().Str("type", fileType).Str("file", file.Filename).Msg("extracting lua archive")
			if err := helpers.ExtractArchive(filepath.Join(dir, file.Filename), targetDir, move); err != nil {
				return fmt.Errorf("extract %s: %w", file.Filename, err)
			}
		}
	}

	if entry, ok := m.doc.LuaRocksDownloads[luarocksKey(luarocksVersion, platform)]; ok {
		dir := m.LuaRocksDir(luarocksVersion, platform)
		for fileType, file := range entry.Files {
			m.log.Info().Str("type", fileType).Str("file", file.Filename).Msg("extracting luarocks archive")
			if err := helpers.ExtractArchive(filepath.Join(dir, file.Filename), targetDir, move); err != nil {
				return fmt.Errorf("extract %s: %w", file.Filename, err)
			}
		}
	}

	return nil
}

// List returns every downloaded combination with sizes aggregated across
// both sides, newest first.
func (m *Manager) List() []ComboInfo {
	combos := make([]ComboInfo, 0, len(m.doc.Combinations))

	for key, combo := range m.doc.Combinations {
		info := ComboInfo{
			Key:             key,
			LuaVersion:      combo.LuaVersion,
			LuaRocksVersion: combo.LuaRocksVersion,
			Platform:        combo.Platform,
			Created:         combo.Created,
		}

		if entry, ok := m.doc.LuaDownloads[combo.LuaVersion]; ok {
			for _, file := range entry.Files {
				info.TotalSize += file.Size
				info.FileCount++
			}
		}
		if entry, ok := m.doc.LuaRocksDownloads[luarocksKey(combo.LuaRocksVersion, combo.Platform)]; ok {
			for _, file := range entry.Files {
				info.TotalSize += file.Size
				info.FileCount++
			}
		}

		combos = append(combos, info)
	}

	sort.Slice(combos, func(i, j int) bool {
		return combos[i].Created.After(combos[j].Created)
	})

	return combos
}

// Cleanup removes a combination, then reclaims each side's directory and
// registry entry when no remaining combination still references it. The
// reference check is a linear scan run after the combination is removed.
func (m *Manager) Cleanup(luaVersion, luarocksVersion, platform string) error {
	versionKey := VersionKey(luaVersion, luarocksVersion)

	delete(m.doc.Combinations, versionKey)

	luaStillUsed := false
	for _, combo := range m.doc.Combinations {
		if combo.LuaVersion == luaVersion {
			luaStillUsed = true
			break
		}
	}

	if !luaStillUsed {
		if _, ok := m.doc.LuaDownloads[luaVersion]; ok {
			if err := m.fs.RemoveAll(m.LuaDir(luaVersion)); err != nil {
				return fmt.Errorf("remove lua directory: %w", err)
			}
			delete(m.doc.LuaDownloads, luaVersion)
			m.log.Info().Str("lua_version", luaVersion).Msg("lua download removed")
		}
	}

	rocksStillUsed := false
	for _, combo := range m.doc.Combinations {
		if combo.LuaRocksVersion == luarocksVersion && combo.Platform == platform {
			rocksStillUsed = true
			break
		}
	}

	if !rocksStillUsed {
		key := luarocksKey(luarocksVersion, platform)
		if _, ok := m.doc.LuaRocksDownloads[key]; ok {
			if err := m.fs.RemoveAll(m.LuaRocksDir(luarocksVersion, platform)); err != nil {
				return fmt.Errorf("remove luarocks directory: %w", err)
			}
			delete(m.doc.LuaRocksDownloads, key)
			m.log.Info().Str("luarocks", key).Msg("luarocks download removed")
		}
	}

	if err := m.save(); err != nil {
		return fmt.Errorf("persist download registry: %w", err)
	}

	m.log.Info().Str("key", versionKey).Msg("combination cleaned up")
	return nil
}

// CleanupKeepLatest keeps the newest keep combinations and cleans up the rest.
func (m *Manager) CleanupKeepLatest(keep int) (int, error) {
	combos := m.List()
	if len(combos) <= keep {
		return 0, nil
	}

	removed := 0
	for _, combo := range combos[keep:] {
		if err := m.Cleanup(combo.LuaVersion, combo.LuaRocksVersion, combo.Platform); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

// RegistryInfo aggregates counts and total byte size across both sides,
// independent of combinations, so orphaned entries are still counted.
func (m *Manager) RegistryInfo() Info {
	info := Info{
		CombinationCount: len(m.doc.Combinations),
		LuaVersions:      len(m.doc.LuaDownloads),
		LuaRocksVersions: len(m.doc.LuaRocksDownloads),
		RegistryFile:     m.registryPath(),
		BaseDir:          m.baseDir,
	}

	for _, entry := range m.doc.LuaDownloads {
		for _, file := range entry.Files {
			info.TotalSize += file.Size
		}
	}
	for _, entry := range m.doc.LuaRocksDownloads {
		for _, file := range entry.Files {
			info.TotalSize += file.Size
		}
	}

	return info
}
