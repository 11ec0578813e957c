package main

import (
	"fmt"

	"stocks-simulator/config"
	"stocks-simulator/database"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	run := func(direction string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := database.Migrate(cfg.Database.URL(), direction); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrations %s applied successfully.\n", direction)
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all available database migrations",
			RunE:  run("up"),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the last database migration",
			RunE:  run("down"),
		},
	)
	return cmd
}
