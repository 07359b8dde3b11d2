package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/arena/internal"
)

// NewMigrateCommand creates the migrate command and its subcommands.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "up",
		Short:        "Apply all pending migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := rootOpts.Open(cmd.Context(), rootOpts.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := internal.RunMigrations(conn.DB); err != nil {
				return err
			}
			version, err := internal.MigrationVersion(conn.DB)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database at version %d\n", version)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:          "status",
		Short:        "Show applied and pending migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := rootOpts.Open(cmd.Context(), rootOpts.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			return internal.MigrationStatus(conn.DB)
		},
	})

	return cmd
}
