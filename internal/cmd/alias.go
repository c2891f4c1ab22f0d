package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jpdarela/luaenv/internal/config"
	"github.com/jpdarela/luaenv/internal/security"
	"github.com/jpdarela/luaenv/internal/ui"
)

// NewAliasCmd creates the alias command group
func NewAliasCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage installation aliases",
	}

	setCmd := &cobra.Command{
		Use:   "set <id-or-alias> <alias>",
		Short: "Set an alias for an installation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			alias := args[1]
			if err := security.ValidateAlias(alias); err != nil {
				ui.PrintError("%v", err)
				return err
			}

			reg, err := openRegistry(cfg, log)
			if err != nil {
				ui.PrintError("failed to open registry: %v", err)
				return fmt.Errorf("open registry: %w", err)
			}

			id, err := reg.ResolveID(args[0])
			if err != nil {
				ui.PrintError("%v", err)
				return err
			}

			if err := reg.SetAlias(id, alias); err != nil {
				ui.PrintError("%v", err)
				return err
			}

			ui.PrintSuccess("Alias set: %s %s %s", alias, ui.Arrow, id)
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <alias>",
		Short: "Remove an alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cfg, log)
			if err != nil {
				ui.PrintError("failed to open registry: %v", err)
				return fmt.Errorf("open registry: %w", err)
			}

			if err := reg.RemoveAlias(args[0]); err != nil {
				ui.PrintError("%v", err)
				return err
			}

			ui.PrintSuccess("Alias removed: %s", args[0])
			return nil
		},
	}

	cmd.AddCommand(setCmd)
	cmd.AddCommand(removeCmd)

	return cmd
}
