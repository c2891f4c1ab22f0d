package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jpdarela/luaenv/internal/config"
	"github.com/jpdarela/luaenv/internal/downloads"
	"github.com/jpdarela/luaenv/internal/helpers"
	"github.com/jpdarela/luaenv/internal/security"
	"github.com/jpdarela/luaenv/internal/ui"
)

// NewDownloadCmd creates the download command
func NewDownloadCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var (
		listDownloads bool
		cleanup       bool
		cleanupAll    bool
		registryInfo  bool
		platform      string
		timeoutSecs   int
	)

	cmd := &cobra.Command{
		Use:   "download [lua-version luarocks-version]",
		Short: "Manage the source download cache",
		Long: `Download source archives for a Lua/LuaRocks version combination, or
inspect and clean the download cache. Archives already present are not
fetched again.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dl := openDownloads(cfg, log)

			if platform == "" {
				platform = cfg.Downloads.Platform
			}

			switch {
			case listDownloads:
				return runDownloadList(cmd, dl)
			case registryInfo:
				return runRegistryInfo(dl)
			case cleanupAll:
				return runCleanupAll(dl, cfg.Downloads.KeepLatest)
			case cleanup:
				if len(args) != 2 {
					return fmt.Errorf("cleanup requires <lua-version> <luarocks-version>")
				}
				return runCleanupOne(dl, args[0], args[1], platform)
			}

			if len(args) != 2 {
				return fmt.Errorf("expected <lua-version> <luarocks-version>")
			}
			return runAcquire(cfg, dl, args[0], args[1], platform, timeoutSecs)
		},
	}

	cmd.Flags().BoolVar(&listDownloads, "list", false, "list downloaded version combinations")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "remove a downloaded version combination")
	cmd.Flags().BoolVar(&cleanupAll, "all", false, "with --cleanup semantics: keep only the newest combinations")
	cmd.Flags().BoolVar(&registryInfo, "registry-info", false, "show download registry statistics")
	cmd.Flags().StringVar(&platform, "platform", "", "luarocks platform (default from config)")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "download timeout in seconds (default from config)")

	return cmd
}

func runAcquire(cfg *config.Config, dl *downloads.Manager, luaVersion, luarocksVersion, platform string, timeoutSecs int) error {
	for _, v := range []string{luaVersion, luarocksVersion} {
		if err := security.ValidateVersion(v); err != nil {
			ui.PrintError("%v", err)
			return err
		}
	}

	if timeoutSecs == 0 {
		timeoutSecs = cfg.Downloads.TimeoutSecs
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	urls := downloads.SourceURLs(luaVersion, luarocksVersion, platform)
	filenames := downloads.SourceFilenames(luaVersion, luarocksVersion, platform)

	ui.PrintInfo("Acquiring Lua %s + LuaRocks %s (%s)", luaVersion, luarocksVersion, platform)

	ok, message := dl.Acquire(ctx, luaVersion, luarocksVersion, urls, filenames, platform)
	if !ok {
		ui.PrintError("%s", message)
		return fmt.Errorf("download failed: %s", message)
	}

	ui.PrintSuccess("%s", message)
	return nil
}

func runDownloadList(cmd *cobra.Command, dl *downloads.Manager) error {
	combos := dl.List()
	if len(combos) == 0 {
		ui.PrintInfo("No downloads in cache")
		return nil
	}

	ui.PrintHeader("Downloaded versions")

	table := tablewriter.NewTable(cmd.OutOrStdout(),
		tablewriter.WithHeader([]string{"Key", "Platform", "Files", "Size", "Created"}),
		tablewriter.WithAlignment(tw.MakeAlign(5, tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
	)

	for _, combo := range combos {
		table.Append(
			combo.Key,
			combo.Platform,
			fmt.Sprintf("%d", combo.FileCount),
			helpers.FormatBytes(combo.TotalSize),
			combo.Created.Format("2006-01-02"),
		)
	}

	table.Render()
	return nil
}

func runRegistryInfo(dl *downloads.Manager) error {
	info := dl.RegistryInfo()

	ui.PrintHeader("Download registry")
	ui.PrintKeyValue("Registry file", info.RegistryFile)
	ui.PrintKeyValue("Cache dir", info.BaseDir)
	ui.PrintKeyValue("Combinations", fmt.Sprintf("%d", info.CombinationCount))
	ui.PrintKeyValue("Lua versions", fmt.Sprintf("%d", info.LuaVersions))
	ui.PrintKeyValue("LuaRocks versions", fmt.Sprintf("%d", info.LuaRocksVersions))
	ui.PrintKeyValue("Total size", helpers.FormatBytes(info.TotalSize))

	return nil
}

func runCleanupOne(dl *downloads.Manager, luaVersion, luarocksVersion, platform string) error {
	if err := dl.Cleanup(luaVersion, luarocksVersion, platform); err != nil {
		ui.PrintError("cleanup failed: %v", err)
		return fmt.Errorf("cleanup download: %w", err)
	}

	ui.PrintSuccess("Cleaned up %s", downloads.VersionKey(luaVersion, luarocksVersion))
	return nil
}

func runCleanupAll(dl *downloads.Manager, keepLatest int) error {
	removed, err := dl.CleanupKeepLatest(keepLatest)
	if err != nil {
		ui.PrintError("cleanup failed: %v", err)
		return fmt.Errorf("cleanup downloads: %w", err)
	}

	if removed == 0 {
		ui.PrintInfo("No cleanup needed")
	} else {
		ui.PrintSuccess("Removed %d old version combinations (kept newest %d)", removed, keepLatest)
	}
	return nil
}
