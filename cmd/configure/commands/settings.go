package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/validation"
)

// NewSettingsCmd manages the social CMS side settings of the LMS integration.
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage OAuth provider settings",
		Long:  "Show or update the LMS integration settings of the OAuth provider (stored in database).",
	}
	cmd.AddCommand(newSettingsShowCmd())
	cmd.AddCommand(newSettingsSetCmd())
	return cmd
}

func newSettingsShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show provider settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, e *env) error {
				s, err := e.settings.GetProviderSettings(ctx)
				if err != nil {
					return fmt.Errorf("get provider settings: %w", err)
				}
				view := providerSettingsView{
					MoodleURL:              s.MoodleURL,
					EnableAutoProvisioning: s.AutoProvisioning(),
					AuthorizationEndpoint:  e.cfg.BaseURL + "/oauth/authorize",
					TokenEndpoint:          e.cfg.BaseURL + "/oauth/token",
					UserinfoEndpoint:       e.cfg.BaseURL + e.cfg.UserinfoPath,
				}
				return printValue(cmd.OutOrStdout(), format, view, view.print)
			})
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

// providerSettingsView adds the endpoint URLs an LMS administrator copies into the issuer.
type providerSettingsView struct {
	MoodleURL              string `json:"moodle_url"`
	EnableAutoProvisioning bool   `json:"enable_auto_provisioning"`
	AuthorizationEndpoint  string `json:"authorization_endpoint"`
	TokenEndpoint          string `json:"token_endpoint"`
	UserinfoEndpoint       string `json:"userinfo_endpoint"`
}

func (v providerSettingsView) print(w io.Writer) {
	moodleURL := v.MoodleURL
	if moodleURL == "" {
		moodleURL = "(not set)"
	}
	fmt.Fprintln(w, "Provider settings:")
	fmt.Fprintf(w, "  Moodle URL: %s\n", moodleURL)
	fmt.Fprintf(w, "  Auto-provisioning: %s\n", yesNo(v.EnableAutoProvisioning))
	fmt.Fprintln(w, "Endpoints for the LMS issuer:")
	fmt.Fprintf(w, "  Authorization: %s\n", v.AuthorizationEndpoint)
	fmt.Fprintf(w, "  Token: %s\n", v.TokenEndpoint)
	fmt.Fprintf(w, "  User info: %s\n", v.UserinfoEndpoint)
}

func newSettingsSetCmd() *cobra.Command {
	var moodleURL string
	var autoProvisioning bool
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update provider settings",
		Long:  "Update provider settings. Only the flags given are changed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, e *env) error {
				s, err := e.settings.GetProviderSettings(ctx)
				if err != nil {
					return fmt.Errorf("get provider settings: %w", err)
				}
				applyProviderFlags(s, cmd, moodleURL, autoProvisioning)
				if err := validation.Struct(s); err != nil {
					return err
				}
				if err := e.settings.SetProviderSettings(ctx, s); err != nil {
					return fmt.Errorf("save provider settings: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Provider settings updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&moodleURL, "moodle-url", "", "Base URL of the Moodle site")
	cmd.Flags().BoolVar(&autoProvisioning, "auto-provisioning", true, "Create Moodle accounts on first login")
	return cmd
}

func applyProviderFlags(s *models.ProviderSettings, cmd *cobra.Command, moodleURL string, autoProvisioning bool) {
	if cmd.Flags().Changed("moodle-url") {
		s.MoodleURL = moodleURL
	}
	if cmd.Flags().Changed("auto-provisioning") {
		s.EnableAutoProvisioning = &autoProvisioning
	}
}
