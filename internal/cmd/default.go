package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jpdarela/luaenv/internal/config"
	"github.com/jpdarela/luaenv/internal/ui"
)

// NewDefaultCmd creates the default command
func NewDefaultCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "default [id-or-alias]",
		Short: "Show or set the default installation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cfg, log)
			if err != nil {
				ui.PrintError("failed to open registry: %v", err)
				return fmt.Errorf("open registry: %w", err)
			}

			if len(args) == 0 {
				if def := reg.GetDefault(); def != nil {
					ui.PrintKeyValue("Default installation", fmt.Sprintf("%s (%s)", def.Name, def.ID))
				} else {
					ui.PrintInfo("No default installation set")
				}
				return nil
			}

			if err := reg.SetDefault(args[0]); err != nil {
				ui.PrintError("%v", err)
				return err
			}

			def := reg.GetDefault()
			ui.PrintSuccess("Default installation: %s (%s)", def.Name, def.ID)
			return nil
		},
	}

	return cmd
}
