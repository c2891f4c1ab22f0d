package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jpdarela/luaenv/internal/config"
	"github.com/jpdarela/luaenv/internal/ui"
)

// NewCleanupCmd creates the cleanup command
func NewCleanupCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove broken installations and zombie directories",
		Long: `Remove every broken or missing installation from the registry, then
delete installation and environment directories that have no registry record.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cfg, log)
			if err != nil {
				ui.PrintError("failed to open registry: %v", err)
				return fmt.Errorf("open registry: %w", err)
			}

			brokenCount, err := reg.CleanupBroken(!yes)
			if err != nil {
				ui.PrintError("cleanup failed: %v", err)
				return fmt.Errorf("cleanup broken: %w", err)
			}

			zombieCount, err := reg.CleanupZombies(!yes)
			if err != nil {
				ui.PrintError("cleanup failed: %v", err)
				return fmt.Errorf("cleanup zombies: %w", err)
			}

			total := brokenCount + zombieCount
			if total > 0 {
				ui.PrintSuccess("Cleanup complete: %d broken entries + %d zombie directories", brokenCount, zombieCount)
			} else {
				ui.PrintSuccess("No cleanup needed")
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	return cmd
}
