package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jpdarela/luaenv/internal/config"
	"github.com/jpdarela/luaenv/internal/ui"
)

// NewValidateCmd creates the validate command
func NewValidateCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check installations against the filesystem",
		Long:  `Classify every installation as valid, broken (missing entry-point executables), or missing (directory trees absent).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cfg, log)
			if err != nil {
				ui.PrintError("failed to open registry: %v", err)
				return fmt.Errorf("open registry: %w", err)
			}

			result := reg.Validate()

			ui.PrintHeader("Validation")
			ui.PrintKeyValue("Valid", fmt.Sprintf("%d", len(result.Valid)))
			ui.PrintKeyValue("Broken", fmt.Sprintf("%d", len(result.Broken)))
			ui.PrintKeyValue("Missing", fmt.Sprintf("%d", len(result.Missing)))

			printProblem := func(header string, ids []string) {
				if len(ids) == 0 {
					return
				}
				fmt.Println()
				ui.Warning.Println(header)
				for _, id := range ids {
					if rec, err := reg.Get(id); err == nil {
						fmt.Printf("  - %s (%s)\n", rec.Name, id)
					}
				}
			}

			printProblem("Broken installations:", result.Broken)
			printProblem("Missing installations:", result.Missing)

			if len(result.Broken) > 0 || len(result.Missing) > 0 {
				fmt.Println()
				ui.PrintInfo("Run 'luaenv cleanup' to remove them")
			}

			return nil
		},
	}

	return cmd
}
