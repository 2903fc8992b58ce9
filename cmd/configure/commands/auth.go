package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/benvon/opensocial-oauth/internal/authplugin"
	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/validation"
)

// NewAuthCmd manages the LMS auth plugin settings.
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the OpenSocial auth plugin",
		Long:  "Show or update the LMS auth plugin settings (stored in database).",
	}
	cmd.AddCommand(newAuthShowCmd())
	cmd.AddCommand(newAuthSetCmd())
	return cmd
}

func newAuthShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show auth plugin settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, e *env) error {
				c, err := e.settings.GetAuthPlugin(ctx)
				if err != nil {
					return fmt.Errorf("get auth plugin settings: %w", err)
				}
				return printValue(cmd.OutOrStdout(), format, c, func(w io.Writer) {
					printAuthPlugin(w, c)
				})
			})
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func printAuthPlugin(w io.Writer, c *models.AuthPluginConfig) {
	fmt.Fprintf(w, "%s (%s %s):\n", authplugin.Name, authplugin.Component, authplugin.Release)
	if c.OpenSocialURL == "" {
		fmt.Fprintln(w, "  OpenSocial URL: (not set)")
	} else {
		fmt.Fprintf(w, "  OpenSocial URL: %s\n", c.OpenSocialURL)
		fmt.Fprintf(w, "  Logout redirect: %s\n", authplugin.LogoutURL(c.OpenSocialURL))
	}
	fmt.Fprintf(w, "  Auto-redirect: %s\n", yesNo(c.AutoRedirect))
	fmt.Fprintf(w, "  Issuer ID: %d\n", c.IssuerID)
}

func newAuthSetCmd() *cobra.Command {
	var openSocialURL string
	var autoRedirect bool
	var issuerID int64
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update auth plugin settings",
		Long:  "Update auth plugin settings. Only the flags given are changed; the issuer must exist.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, e *env) error {
				c, err := e.settings.GetAuthPlugin(ctx)
				if err != nil {
					return fmt.Errorf("get auth plugin settings: %w", err)
				}
				applyAuthFlags(c, cmd, openSocialURL, autoRedirect, issuerID)
				c.Normalize()
				if err := validation.Struct(c); err != nil {
					return err
				}

				if c.IssuerID != 0 {
					iss, err := e.issuers.GetByID(ctx, c.IssuerID)
					if err != nil {
						return fmt.Errorf("get issuer: %w", err)
					}
					if iss == nil {
						return fmt.Errorf("issuer %d does not exist", c.IssuerID)
					}
					if !iss.Enabled {
						fmt.Fprintf(cmd.ErrOrStderr(), "Warning: issuer %d is disabled; auto-redirect stays inactive until it is enabled\n", c.IssuerID)
					}
				}

				if err := e.settings.SetAuthPlugin(ctx, c); err != nil {
					return fmt.Errorf("save auth plugin settings: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Auth plugin settings updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&openSocialURL, "opensocial-url", "", "Base URL of the OpenSocial site (empty disables the logout redirect)")
	cmd.Flags().BoolVar(&autoRedirect, "autoredirect", false, "Redirect the login page to the issuer")
	cmd.Flags().Int64Var(&issuerID, "issuer-id", 0, "ID of the OAuth2 issuer used for login")
	return cmd
}

func applyAuthFlags(c *models.AuthPluginConfig, cmd *cobra.Command, openSocialURL string, autoRedirect bool, issuerID int64) {
	if cmd.Flags().Changed("opensocial-url") {
		c.OpenSocialURL = openSocialURL
	}
	if cmd.Flags().Changed("autoredirect") {
		c.AutoRedirect = autoRedirect
	}
	if cmd.Flags().Changed("issuer-id") {
		c.IssuerID = issuerID
	}
}
