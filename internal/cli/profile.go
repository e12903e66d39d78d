package cli

import (
	"context"

	"colony-server/internal/app"
	"colony-server/internal/colony"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Register an owner without claiming a coordinate",
	RunE:  runProfile,
}

func init() {
	profileCmd.Flags().String("owner", "", "owner id (required)")
	profileCmd.Flags().String("label", "", "occupant label (required)")
	_ = profileCmd.MarkFlagRequired("owner")
	_ = profileCmd.MarkFlagRequired("label")
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, _ []string) error {
	owner, _ := cmd.Flags().GetString("owner")
	label, _ := cmd.Flags().GetString("label")

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if err := a.Service.EnsureProfile(ctx, colony.Owner(owner), label); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]string{"owner": owner, "label": label})
	})
}
