package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jpdarela/luaenv/internal/config"
	"github.com/jpdarela/luaenv/internal/helpers"
	"github.com/jpdarela/luaenv/internal/ui"
)

// NewStatusCmd creates the status command
func NewStatusCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show registry status",
		Long:  `Show the registry location, tracked installations, aliases, and download cache summary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cfg, log)
			if err != nil {
				ui.PrintError("failed to open registry: %v", err)
				return fmt.Errorf("open registry: %w", err)
			}

			summary := reg.Status()

			ui.PrintHeader("Registry")
			ui.PrintKeyValue("Registry path", summary.RegistryFile)
			ui.PrintKeyValue("Installations", fmt.Sprintf("%d", summary.Installations))

			if summary.Default != nil {
				ui.PrintKeyValue("Default", fmt.Sprintf("%s (%s)", summary.Default.Name, summary.Default.ID))
			} else {
				ui.PrintKeyValue("Default", "none")
			}

			if len(summary.Aliases) > 0 {
				fmt.Println()
				ui.Bold.Println("Aliases:")
				for alias, id := range summary.Aliases {
					fmt.Printf("  %s %s %s\n", alias, ui.Arrow, id)
				}
			}

			for _, rec := range reg.List() {
				fmt.Println()
				ui.Bold.Printf("[%s] %s\n", ui.ColorizeStatus(string(rec.Status)), rec.Name)
				fmt.Printf("  ID: %s\n", rec.ID)
				fmt.Printf("  Lua: %s, LuaRocks: %s\n", rec.LuaVersion, rec.LuaRocksVersion)
				fmt.Printf("  Build: %s %s (%s)\n", rec.BuildType, rec.BuildConfig, rec.Architecture)
				if rec.LastUsed != nil {
					fmt.Printf("  Last used: %s\n", rec.LastUsed.Format("2006-01-02 15:04"))
				}
			}

			dl := openDownloads(cfg, log)
			info := dl.RegistryInfo()

			ui.PrintHeader("Download cache")
			ui.PrintKeyValue("Cache dir", info.BaseDir)
			ui.PrintKeyValue("Combinations", fmt.Sprintf("%d", info.CombinationCount))
			ui.PrintKeyValue("Lua versions", fmt.Sprintf("%d", info.LuaVersions))
			ui.PrintKeyValue("LuaRocks versions", fmt.Sprintf("%d", info.LuaRocksVersions))
			ui.PrintKeyValue("Total size", helpers.FormatBytes(info.TotalSize))

			return nil
		},
	}

	return cmd
}
