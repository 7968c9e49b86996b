package main

import (
	"fmt"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	run := func(action func(m *postgres.Migrator, cmd *cobra.Command) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			lgr := newLogger(cfg, "migrate")
			defer logger.Sync(lgr)

			m, err := postgres.NewMigrator(cfg.Database.URL(), lgr)
			if err != nil {
				return err
			}
			defer m.Close()

			return action(m, cmd)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: run(func(m *postgres.Migrator, cmd *cobra.Command) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			RunE: run(func(m *postgres.Migrator, cmd *cobra.Command) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: run(func(m *postgres.Migrator, cmd *cobra.Command) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			}),
		},
	)
	return cmd
}
