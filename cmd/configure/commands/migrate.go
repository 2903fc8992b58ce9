package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benvon/opensocial-oauth/internal/database"
)

// NewMigrateCmd applies the schema upgrade steps.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema upgrades",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, e *env) error {
				applied, err := database.Migrate(ctx, e.db)
				for _, v := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "Applied %d\n", v)
				}
				if err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
				}
				return nil
			})
		},
	}
	cmd.AddCommand(newMigrateStatusCmd())
	return cmd
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the schema version and pending upgrades",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, e *env) error {
				current, err := database.CurrentVersion(ctx, e.db)
				if err != nil {
					return fmt.Errorf("read schema version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d\n", current)
				pending := 0
				for _, m := range database.Migrations {
					if m.Version > current {
						fmt.Fprintf(cmd.OutOrStdout(), "  pending %d %s\n", m.Version, m.Name)
						pending++
					}
				}
				if pending == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending upgrades.")
				}
				return nil
			})
		},
	}
}
