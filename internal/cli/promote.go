package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/arena/internal/bootstrap"
)

// NewPromoteCommand creates the promote command.
func NewPromoteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "promote <email>",
		Short:        "Grant the admin role to a registered account",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := rootOpts.Open(cmd.Context(), rootOpts.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			profile, err := bootstrap.Promote(cmd.Context(), conn.Profiles, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now an admin\n", profile.Email, profile.ID)
			return nil
		},
	}
}
