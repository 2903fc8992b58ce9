package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benvon/opensocial-oauth/internal/database"
	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/validation"
)

// NewCorsCmd creates the cors configuration command with list and set subcommands.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "List or update CORS allowed origins and options (stored in database).",
	}
	cmd.AddCommand(newCorsListCmd())
	cmd.AddCommand(newCorsSetCmd())
	return cmd
}

func newCorsListCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List current CORS configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, e *env) error {
				c, err := e.settings.GetCors(ctx)
				if err != nil {
					return fmt.Errorf("get cors config: %w", err)
				}
				if c == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "No CORS configuration in database; the server allows %s. Use 'cors set' to add one.\n", e.cfg.FrontendURL)
					return nil
				}
				return printValue(cmd.OutOrStdout(), format, c, func(w io.Writer) {
					fmt.Fprintln(w, "CORS configuration:")
					fmt.Fprintf(w, "  Allowed origins: %s\n", strings.Join(database.AllowedOriginsSlice(c.AllowedOrigins), ", "))
					fmt.Fprintf(w, "  Allow credentials: %v\n", c.AllowCredentials)
					fmt.Fprintf(w, "  Max-Age: %d\n", c.MaxAge)
				})
			})
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func newCorsSetCmd() *cobra.Command {
	var origins string
	var allowCreds bool
	var maxAge int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set CORS configuration",
		Long:  "Update CORS allowed origins (comma-separated). Stored in database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &models.CorsConfig{
				AllowedOrigins:   strings.TrimSpace(origins),
				AllowCredentials: allowCreds,
				MaxAge:           maxAge,
			}
			if c.AllowedOrigins == "" {
				return fmt.Errorf("--origins is required (comma-separated list)")
			}
			if err := validation.Struct(c); err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, e *env) error {
				if err := e.settings.SetCors(ctx, c); err != nil {
					return fmt.Errorf("set cors config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "CORS configuration updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", false, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age (seconds)")
	return cmd
}
