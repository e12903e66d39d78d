package cli

import (
	"context"
	"fmt"

	"colony-server/internal/app"

	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the current occupancy snapshot",
	Long: `Loads a fresh snapshot from the claim store.

With --galaxy and --system, prints every position of that system.
Without them, prints the grid size and how many cells are occupied.`,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().Int("galaxy", 0, "galaxy to list")
	snapshotCmd.Flags().Int("system", 0, "system to list")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	galaxy, _ := cmd.Flags().GetInt("galaxy")
	system, _ := cmd.Flags().GetInt("system")

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if galaxy == 0 && system == 0 {
			overview, err := a.Service.Overview(ctx)
			if err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), overview)
		}

		view, err := a.Service.System(ctx, galaxy, system)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), view)
	})
}
