// Package cli implements arenactl, the operator command line.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/dukerupert/arena/internal"
	"github.com/dukerupert/arena/internal/bootstrap"
	"github.com/dukerupert/arena/internal/postgres"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DatabaseURL string

	// Open connects to the database. Tests replace it.
	Open func(ctx context.Context, url string) (*Conn, error)
}

// Conn is an open database for one command run.
type Conn struct {
	DB       *sql.DB
	Profiles bootstrap.Promoter
	Close    func()
}

// NewRootCommand creates the root command for arenactl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Open: openPostgres})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arenactl",
		Short: "Arena store operator tools",
		Long:  "Database migrations and account administration for the Arena store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.DatabaseURL != "" {
				return nil
			}
			cfg, err := internal.NewConfig()
			if err != nil {
				return err
			}
			opts.DatabaseURL = cfg.DatabaseUrl
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DatabaseURL, "database-url", "", "database url (default: DATABASE_URL)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewPromoteCommand(opts))

	return cmd
}

func openPostgres(ctx context.Context, url string) (*Conn, error) {
	pool, err := postgres.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	db := stdlib.OpenDBFromPool(pool)
	return &Conn{
		DB:       db,
		Profiles: postgres.NewProfiles(pool),
		Close: func() {
			_ = db.Close()
			pool.Close()
		},
	}, nil
}
