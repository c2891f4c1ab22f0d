package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/jpdarela/luaenv/internal/config"
	"github.com/jpdarela/luaenv/internal/downloads"
	"github.com/jpdarela/luaenv/internal/paths"
	"github.com/jpdarela/luaenv/internal/registry"
	"github.com/jpdarela/luaenv/internal/ui"
)

// NewRootCmd creates the root command
func NewRootCmd(cfg *config.Config, log *zerolog.Logger, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "luaenv",
		Short:        "Lua version manager",
		Long:         `Manage multiple Lua installations on Windows: download sources, track builds under unique identifiers, and switch between them.`,
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewListCmd(cfg, log))
	cmd.AddCommand(NewStatusCmd(cfg, log))
	cmd.AddCommand(NewRemoveCmd(cfg, log))
	cmd.AddCommand(NewAliasCmd(cfg, log))
	cmd.AddCommand(NewDefaultCmd(cfg, log))
	cmd.AddCommand(NewValidateCmd(cfg, log))
	cmd.AddCommand(NewCleanupCmd(cfg, log))
	cmd.AddCommand(NewDownloadCmd(cfg, log))
	cmd.AddCommand(NewCompletionCmd())
	cmd.AddCommand(NewVersionCmd(version))

	return cmd
}

// openRegistry opens the installation registry on the OS filesystem with
// interactive confirmation prompts.
func openRegistry(cfg *config.Config, log *zerolog.Logger) (*registry.Registry, error) {
	resolver := paths.NewResolver(cfg)
	return registry.Open(afero.NewOsFs(), resolver, log, ui.ConsolePrompter{})
}

// openDownloads opens the download cache manager on the OS filesystem.
func openDownloads(cfg *config.Config, log *zerolog.Logger) *downloads.Manager {
	return downloads.New(afero.NewOsFs(), cfg.Paths.CacheDir, log, downloads.Options{
		Progress: cfg.Downloads.Progress,
	})
}
