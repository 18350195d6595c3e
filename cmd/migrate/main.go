// cmd/migrate/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/unclebandit/helpflow-backend/internal/config"
	"github.com/unclebandit/helpflow-backend/internal/db"
	"github.com/unclebandit/helpflow-backend/internal/logging"
	"github.com/unclebandit/helpflow-backend/internal/model"
	"github.com/unclebandit/helpflow-backend/internal/repository"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the HelpFlow database schema",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(logging.Config{Format: "console", Level: "info", Component: "migrate"})
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd.Context(), func(m *db.Migrator, _ *sqlx.DB) error {
					if err := m.Up(); err != nil {
						return err
					}
					return printVersion(cmd, m)
				})
			},
		},
		newDownCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withMigrator(cmd.Context(), func(m *db.Migrator, _ *sqlx.DB) error {
					return printVersion(cmd, m)
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the embedded migration files",
			RunE: func(cmd *cobra.Command, args []string) error {
				names, err := db.MigrationNames()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			},
		},
		newSeedCmd(),
	)
	return root
}

func newDownCmd() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator, _ *sqlx.DB) error {
				if err := m.Down(steps); err != nil {
					return err
				}
				return printVersion(cmd, m)
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var clerkUserID, email string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert a demo profile for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd.Context(), func(m *db.Migrator, conn *sqlx.DB) error {
				if err := m.Up(); err != nil {
					return err
				}
				repo := &repository.ProfileRepository{DB: conn}
				p := model.NewProfile(clerkUserID, email)
				if err := repo.Create(cmd.Context(), p); err != nil {
					if errors.Is(err, repository.ErrDuplicate) {
						log.Info().Str("clerk_user_id", clerkUserID).Msg("demo profile already present")
						return nil
					}
					return err
				}
				log.Info().Str("profile_id", p.ID).Str("clerk_user_id", clerkUserID).Msg("seeded demo profile")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&clerkUserID, "clerk-user-id", "user_demo", "Clerk user id of the demo profile")
	cmd.Flags().StringVar(&email, "email", "demo@helpflow.local", "email of the demo profile")
	return cmd
}

func withMigrator(ctx context.Context, fn func(m *db.Migrator, conn *sqlx.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	conn, err := db.Open(ctx, cfg.DB.URL, db.Options{MaxOpenConns: 2})
	if err != nil {
		return err
	}
	defer conn.Close()

	m, err := db.NewMigrator(conn.DB)
	if err != nil {
		return err
	}
	return fn(m, conn)
}

func printVersion(cmd *cobra.Command, m *db.Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
