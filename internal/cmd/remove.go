package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jpdarela/luaenv/internal/config"
	"github.com/jpdarela/luaenv/internal/core"
	"github.com/jpdarela/luaenv/internal/registry"
	"github.com/jpdarela/luaenv/internal/ui"
)

// NewRemoveCmd creates the remove command
func NewRemoveCmd(cfg *config.Config, log *zerolog.Logger) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "remove [id-or-alias]",
		Short: "Remove an installation",
		Long:  `Remove an installation by UUID, UUID prefix, or alias. Run without arguments for an interactive selector.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := openRegistry(cfg, log)
			if err != nil {
				ui.PrintError("failed to open registry: %v", err)
				return fmt.Errorf("open registry: %w", err)
			}

			ref := ""
			if len(args) == 1 {
				ref = args[0]
			} else {
				ref, err = selectInstallation(reg)
				if err != nil {
					ui.PrintWarning("selection cancelled, nothing removed")
					return nil
				}
			}

			removed, err := reg.Remove(ref, !yes)
			if err != nil {
				ui.PrintError("removal failed: %v", err)
				return fmt.Errorf("remove installation: %w", err)
			}

			if !removed {
				ui.PrintWarning("Installation %q was not removed", ref)
				return fmt.Errorf("installation %q not removed", ref)
			}

			ui.PrintSuccess("Installation removed")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")

	return cmd
}

// selectInstallation presents a fuzzy-searchable list and returns the
// chosen installation id.
func selectInstallation(reg *registry.Registry) (string, error) {
	installations := reg.List()
	if len(installations) == 0 {
		return "", fmt.Errorf("no installations tracked")
	}

	options := make([]string, len(installations))
	byLabel := make(map[string]*core.InstallationRecord, len(installations))
	for i, rec := range installations {
		label := fmt.Sprintf("%s [%s] %s", rec.Name, rec.Status, rec.ID[:8])
		options[i] = label
		byLabel[label] = rec
	}

	_, label, err := ui.SelectPrompt("Select installation to remove", options)
	if err != nil {
		return "", err
	}

	return byLabel[label].ID, nil
}
