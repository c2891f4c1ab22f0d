package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jpdarela/luaenv/internal/config"
	"github.com/jpdarela/luaenv/internal/core"
	"github.com/jpdarela/luaenv/internal/ui"
)

// NewListCmd creates the list command
func NewListCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked installations",
		Long:  `List all tracked Lua installations, newest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cfg, log)
			if err != nil {
				ui.PrintError("failed to open registry: %v", err)
				return fmt.Errorf("open registry: %w", err)
			}

			installations := reg.List()

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(installations)
			}

			if len(installations) == 0 {
				ui.PrintInfo("No installations found")
				return nil
			}

			defaultID := ""
			if def := reg.GetDefault(); def != nil {
				defaultID = def.ID
			}

			ui.PrintHeader("Installations")
			fmt.Printf("Total: %d\n\n", len(installations))

			printInstallationTable(cmd, installations, defaultID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	return cmd
}

func printInstallationTable(cmd *cobra.Command, installations []*core.InstallationRecord, defaultID string) {
	table := tablewriter.NewTable(cmd.OutOrStdout(),
		tablewriter.WithHeader([]string{"Name", "Status", "Lua", "LuaRocks", "Build", "Arch", "Alias", "ID", "Created"}),
		tablewriter.WithAlignment(tw.MakeAlign(9, tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
	)

	for _, rec := range installations {
		name := rec.Name
		if rec.ID == defaultID {
			name = name + " *"
		}

		alias := rec.Alias
		if alias == "" {
			alias = "-"
		}

		table.Append(
			name,
			ui.ColorizeStatus(string(rec.Status)),
			rec.LuaVersion,
			rec.LuaRocksVersion,
			fmt.Sprintf("%s/%s", rec.BuildType, rec.BuildConfig),
			string(rec.Architecture),
			alias,
			rec.ID[:8],
			rec.Created.Format("2006-01-02"),
		)
	}

	table.Render()
	fmt.Println()
	ui.Muted.Println("* default installation")
}
