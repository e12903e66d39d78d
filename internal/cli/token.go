package cli

import (
	"fmt"

	"colony-server/internal/auth"
	"colony-server/internal/colony"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a player token signed with JWT_SECRET",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().String("owner", "", "owner id (required)")
	tokenCmd.Flags().String("label", "", "occupant label")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default JWT_EXPIRATION)")
	_ = tokenCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	owner, _ := cmd.Flags().GetString("owner")
	label, _ := cmd.Flags().GetString("label")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl == 0 {
		ttl = cfg.Auth.TokenExpiration
	}

	token, err := auth.GenerateJWT(cfg.Auth.JWTSecret, colony.Owner(owner), label, ttl)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
