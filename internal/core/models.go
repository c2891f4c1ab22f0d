package core

import "time"

// BuildType selects how the Lua runtime is linked
type BuildType string

const (
	BuildTypeStatic BuildType = "static"
	BuildTypeDLL    BuildType = "dll"
)

// BuildConfig selects the compiler configuration
type BuildConfig string

const (
	BuildConfigRelease BuildConfig = "release"
	BuildConfigDebug   BuildConfig = "debug"
)

// Architecture is the target architecture of an installation
type Architecture string

const (
	ArchX64 Architecture = "x64"
	ArchX86 Architecture = "x86"
)

// Status represents the lifecycle state of an installation
type Status string

const (
	StatusBuilding Status = "building"
	StatusActive   Status = "active"
	StatusBroken   Status = "broken"
	StatusInactive Status = "inactive"
)

// InstallationRecord represents a tracked Lua installation in the registry
type InstallationRecord struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Alias            string       `json:"alias,omitempty"`
	LuaVersion       string       `json:"lua_version"`
	LuaRocksVersion  string       `json:"luarocks_version"`
	BuildType        BuildType    `json:"build_type"`
	BuildConfig      BuildConfig  `json:"build_config"`
	Architecture     Architecture `json:"architecture,omitempty"`
	Created          time.Time    `json:"created"`
	LastUsed         *time.Time   `json:"last_used"`
	Status           Status       `json:"status"`
	InstallationPath string       `json:"installation_path"`
	EnvironmentPath  string       `json:"environment_path"`
	Packages         PackagesInfo `json:"packages"`
	Tags             []string     `json:"tags"`
}

// PackagesInfo tracks rocks installed into an environment. It is maintained
// by the package manager integration, not by the registry itself.
type PackagesInfo struct {
	Count       int        `json:"count"`
	LastUpdated *time.Time `json:"last_updated"`
}

// DownloadFile records a single fetched archive
type DownloadFile struct {
	Filename     string    `json:"filename"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// LuaDownload tracks the source archives for one Lua version
type LuaDownload struct {
	LuaVersion   string                  `json:"lua_version"`
	DownloadDate time.Time               `json:"download_date"`
	Files        map[string]DownloadFile `json:"files"`
}

// LuaRocksDownload tracks the archive for one LuaRocks version and platform
type LuaRocksDownload struct {
	LuaRocksVersion string                  `json:"luarocks_version"`
	Platform        string                  `json:"platform"`
	DownloadDate    time.Time               `json:"download_date"`
	Files           map[string]DownloadFile `json:"files"`
}

// Combination is the logical pairing of a Lua version with a LuaRocks
// version and platform. It references shared download entries; deleting a
// combination does not by itself delete the underlying archives.
type Combination struct {
	LuaVersion      string    `json:"lua_version"`
	LuaRocksVersion string    `json:"luarocks_version"`
	Platform        string    `json:"platform"`
	Created         time.Time `json:"created"`
}

// Exit codes
const (
	ExitSuccess = 0
	ExitFailure = 1
)
