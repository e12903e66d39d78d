package cli

import (
	"context"
	"errors"
	"fmt"

	"colony-server/internal/app"
	"colony-server/internal/claim"
	"colony-server/internal/colony"
	"colony-server/internal/coordinate"
	"colony-server/internal/occupancy"

	"github.com/spf13/cobra"
)

var claimCmd = &cobra.Command{
	Use:   "claim <galaxy:system:position>",
	Short: "Commit a home coordinate for an owner",
	Long: `Loads a snapshot and attempts the claim. Store failures are retried with
backoff, reloading the snapshot before every attempt; conflicts are reported
immediately.`,
	Args: cobra.ExactArgs(1),
	RunE: runClaim,
}

func init() {
	claimCmd.Flags().String("owner", "", "owner id (required)")
	claimCmd.Flags().String("label", "", "occupant label (required)")
	claimCmd.Flags().Uint("max-tries", 0, "attempts before giving up (default CLAIM_RETRY_MAX_TRIES)")
	_ = claimCmd.MarkFlagRequired("owner")
	_ = claimCmd.MarkFlagRequired("label")
	rootCmd.AddCommand(claimCmd)
}

func runClaim(cmd *cobra.Command, args []string) error {
	coord, err := coordinate.Parse(args[0])
	if err != nil {
		return err
	}
	owner, _ := cmd.Flags().GetString("owner")
	label, _ := cmd.Flags().GetString("label")
	maxTries, _ := cmd.Flags().GetUint("max-tries")

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if maxTries == 0 {
			maxTries = a.Config.Claims.RetryMaxTries
		}

		session := occupancy.NewSession(a.Loader)
		committed, err := claim.RetryPersistence(ctx, maxTries, func(ctx context.Context) (*colony.Claim, error) {
			index, err := session.Refresh(ctx)
			if err != nil {
				return nil, &claim.PersistenceError{Op: "snapshot", Coordinate: coord, Err: err}
			}
			committed, err := a.Coordinator.TryClaim(ctx, index, colony.Owner(owner), coord, label)
			if err != nil {
				session.Invalidate()
				return nil, err
			}
			session.Apply(*committed)
			return committed, nil
		})
		if err != nil {
			var conflict *claim.ConflictError
			if errors.As(err, &conflict) {
				if next, ok := suggestAfterConflict(ctx, session, conflict, coord); ok {
					return fmt.Errorf("claim refused (%s), %s is free: %w", conflict.Kind, next, err)
				}
				return fmt.Errorf("claim refused (%s): %w", conflict.Kind, err)
			}
			return fmt.Errorf("claim: %w", err)
		}

		return printJSON(cmd.OutOrStdout(), committed)
	})
}

// suggestAfterConflict reloads the session and picks the nearest free cell.
// Owners that are already settled get no suggestion.
func suggestAfterConflict(ctx context.Context, session *occupancy.Session, conflict *claim.ConflictError, near coordinate.Coordinate) (coordinate.Coordinate, bool) {
	if conflict.Kind == claim.OwnerSettled {
		return coordinate.Coordinate{}, false
	}
	fresh, err := session.Refresh(ctx)
	if err != nil {
		return coordinate.Coordinate{}, false
	}
	return fresh.Suggest(near)
}
