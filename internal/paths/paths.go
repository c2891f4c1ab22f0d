package paths

import (
	"path/filepath"

	"github.com/jpdarela/luaenv/internal/config"
)

// Resolver centralizes the on-disk layout of the luaenv tree. Everything
// hangs off a single root (default %USERPROFILE%\.luaenv), with the
// registry file and cache directory individually overridable via config.
type Resolver struct {
	root string
	cfg  *config.Config
}

// NewResolver creates a Resolver from the configured root directory.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		root: cfg.Paths.RootDir,
		cfg:  cfg,
	}
}

// NewResolverWithRoot creates a Resolver with an explicit root (used in tests).
func NewResolverWithRoot(root string) *Resolver {
	return &Resolver{root: root}
}

// Root returns the luaenv root directory.
func (r *Resolver) Root() string {
	return r.root
}

// RegistryFile returns the path of the installation registry document.
func (r *Resolver) RegistryFile() string {
	if r.cfg != nil && r.cfg.Paths.RegistryFile != "" {
		return r.cfg.Paths.RegistryFile
	}
	return filepath.Join(r.root, "registry.json")
}

// InstallationsRoot returns the directory holding all installation trees.
func (r *Resolver) InstallationsRoot() string {
	return filepath.Join(r.root, "installations")
}

// EnvironmentsRoot returns the directory holding all environment trees.
func (r *Resolver) EnvironmentsRoot() string {
	return filepath.Join(r.root, "environments")
}

// CacheDir returns the download cache directory.
func (r *Resolver) CacheDir() string {
	if r.cfg != nil && r.cfg.Paths.CacheDir != "" {
		return r.cfg.Paths.CacheDir
	}
	return filepath.Join(r.root, "cache")
}

// BinDir returns the directory for globally installed scripts.
func (r *Resolver) BinDir() string {
	return filepath.Join(r.root, "bin")
}

// InstallationDir returns the installation tree for an installation id.
func (r *Resolver) InstallationDir(id string) string {
	return filepath.Join(r.InstallationsRoot(), id)
}

// EnvironmentDir returns the environment tree for an installation id.
func (r *Resolver) EnvironmentDir(id string) string {
	return filepath.Join(r.EnvironmentsRoot(), id)
}
