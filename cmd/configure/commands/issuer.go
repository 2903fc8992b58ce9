package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/benvon/opensocial-oauth/internal/database"
	"github.com/benvon/opensocial-oauth/internal/models"
	"github.com/benvon/opensocial-oauth/internal/services/issuer"
	"github.com/benvon/opensocial-oauth/internal/validation"
)

const maskedSecret = "********"

// issuerFlags are the issuer fields settable from the command line.
type issuerFlags struct {
	name         string
	baseURL      string
	clientID     string
	clientSecret string
	redirectURI  string
	scopes       string
	enabled      bool
}

func (f *issuerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Issuer name (unique)")
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "Issuer base URL (discovery is fetched from <base-url>/.well-known/openid-configuration)")
	cmd.Flags().StringVar(&f.clientID, "client-id", "", "OAuth2 client ID")
	cmd.Flags().StringVar(&f.clientSecret, "client-secret", "", "OAuth2 client secret (omit for public clients)")
	cmd.Flags().StringVar(&f.redirectURI, "redirect-uri", "", "OAuth2 redirect URI registered with the issuer")
	cmd.Flags().StringVar(&f.scopes, "scopes", models.DefaultIssuerScopes, "Space-separated scopes")
	cmd.Flags().BoolVar(&f.enabled, "enabled", true, "Whether the issuer can be used for login")
}

// apply copies the flags the user set onto iss. When all is true every flag is copied.
func (f *issuerFlags) apply(iss *models.Issuer, cmd *cobra.Command, all bool) {
	changed := func(name string) bool { return all || cmd.Flags().Changed(name) }
	if changed("name") {
		iss.Name = validation.SanitizeText(f.name)
	}
	if changed("base-url") {
		iss.BaseURL = f.baseURL
	}
	if changed("client-id") {
		iss.ClientID = f.clientID
	}
	if cmd.Flags().Changed("client-secret") {
		if f.clientSecret == "" {
			iss.ClientSecret = nil
		} else {
			secret := f.clientSecret
			iss.ClientSecret = &secret
		}
	}
	if changed("redirect-uri") {
		iss.RedirectURI = f.redirectURI
	}
	if changed("scopes") {
		iss.Scopes = f.scopes
	}
	if changed("enabled") {
		iss.Enabled = f.enabled
	}
}

// NewIssuerCmd manages the OAuth2 issuers the LMS can delegate login to.
func NewIssuerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issuer",
		Short: "Manage OAuth2 issuers",
		Long:  "Create, update, list, enable, disable, delete and test OAuth2 issuers (stored in database).",
	}
	cmd.AddCommand(newIssuerCreateCmd())
	cmd.AddCommand(newIssuerUpdateCmd())
	cmd.AddCommand(newIssuerListCmd())
	cmd.AddCommand(newIssuerEnableCmd(true))
	cmd.AddCommand(newIssuerEnableCmd(false))
	cmd.AddCommand(newIssuerDeleteCmd())
	cmd.AddCommand(newIssuerTestCmd())
	return cmd
}

func newIssuerCreateCmd() *cobra.Command {
	var f issuerFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an issuer",
		RunE: func(cmd *cobra.Command, args []string) error {
			iss := &models.Issuer{}
			f.apply(iss, cmd, true)
			if err := validation.Struct(iss); err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, e *env) error {
				existing, err := e.issuers.GetByName(ctx, iss.Name)
				if err != nil {
					return fmt.Errorf("check existing issuer: %w", err)
				}
				if existing != nil {
					return fmt.Errorf("issuer %q already exists (id %d); use 'issuer update %d'", iss.Name, existing.ID, existing.ID)
				}
				if err := e.issuers.Create(ctx, iss); err != nil {
					return fmt.Errorf("create issuer: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Issuer %q created with id %d.\n", iss.Name, iss.ID)
				return nil
			})
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("base-url")
	_ = cmd.MarkFlagRequired("client-id")
	_ = cmd.MarkFlagRequired("redirect-uri")
	return cmd
}

func newIssuerUpdateCmd() *cobra.Command {
	var f issuerFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an issuer",
		Long:  "Update an issuer. Only the flags given are changed; --client-secret \"\" clears the secret.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, e *env) error {
				iss, err := loadIssuer(ctx, e, id)
				if err != nil {
					return err
				}
				f.apply(iss, cmd, false)
				if err := validation.Struct(iss); err != nil {
					return err
				}
				if err := e.issuers.Update(ctx, iss); err != nil {
					return fmt.Errorf("update issuer: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Issuer %d updated.\n", id)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newIssuerListCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issuers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, e *env) error {
				issuers, err := e.issuers.GetAll(ctx)
				if err != nil {
					return fmt.Errorf("list issuers: %w", err)
				}
				view := maskIssuers(issuers)
				return printValue(cmd.OutOrStdout(), format, view, func(w io.Writer) {
					printIssuerTable(w, view)
				})
			})
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

// maskIssuers returns copies of the issuers with client secrets masked.
func maskIssuers(issuers []*models.Issuer) []models.Issuer {
	out := make([]models.Issuer, 0, len(issuers))
	for _, iss := range issuers {
		c := *iss
		if c.ClientSecret != nil {
			masked := maskedSecret
			c.ClientSecret = &masked
		}
		out = append(out, c)
	}
	return out
}

func printIssuerTable(w io.Writer, issuers []models.Issuer) {
	if len(issuers) == 0 {
		fmt.Fprintln(w, "No issuers configured. Use 'issuer create' to add one.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBASE URL\tCLIENT ID\tSCOPES\tENABLED")
	for _, iss := range issuers {
		scopes := iss.Scopes
		if scopes == "" {
			scopes = models.DefaultIssuerScopes
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", iss.ID, iss.Name, iss.BaseURL, iss.ClientID, scopes, yesNo(iss.Enabled))
	}
	_ = tw.Flush()
}

func newIssuerEnableCmd(enabled bool) *cobra.Command {
	use, short, done := "enable <id>", "Enable an issuer", "enabled"
	if !enabled {
		use, short, done = "disable <id>", "Disable an issuer", "disabled"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, e *env) error {
				if err := e.issuers.SetEnabled(ctx, id, enabled); err != nil {
					return issuerError(id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Issuer %d %s.\n", id, done)
				return nil
			})
		},
	}
}

func newIssuerDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an issuer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, e *env) error {
				plugin, err := e.settings.GetAuthPlugin(ctx)
				if err != nil {
					return fmt.Errorf("get auth plugin settings: %w", err)
				}
				if plugin.IssuerID == id {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: issuer %d is the auth plugin issuer; auto-redirect stays inactive until 'auth set --issuer-id' points elsewhere\n", id)
				}
				if err := e.issuers.Delete(ctx, id); err != nil {
					return issuerError(id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Issuer %d deleted.\n", id)
				return nil
			})
		},
	}
}

func newIssuerTestCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "test <id>",
		Short: "Test issuer discovery and JWKS",
		Long:  "Fetch the issuer's discovery document and, when advertised, its JWKS.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, e *env) error {
				iss, err := loadIssuer(ctx, e, id)
				if err != nil {
					return err
				}
				provider := issuer.NewProvider(e.issuers, e.cfg.DiscoveryTimeout)
				result, err := provider.Check(ctx, iss)
				if err != nil {
					return fmt.Errorf("issuer %d (%s) failed: %w", id, iss.Name, err)
				}
				return printValue(cmd.OutOrStdout(), format, result, func(w io.Writer) {
					printCheckResult(w, iss, result)
				})
			})
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func printCheckResult(w io.Writer, iss *models.Issuer, r *issuer.CheckResult) {
	fmt.Fprintf(w, "Issuer %d (%s) OK\n", iss.ID, iss.Name)
	fmt.Fprintf(w, "  Discovery document: %s\n", yesNo(r.Endpoints.Discovered))
	fmt.Fprintf(w, "  Authorization: %s\n", r.Endpoints.AuthorizationEndpoint)
	fmt.Fprintf(w, "  Token: %s\n", r.Endpoints.TokenEndpoint)
	if r.Endpoints.UserinfoEndpoint != "" {
		fmt.Fprintf(w, "  User info: %s\n", r.Endpoints.UserinfoEndpoint)
	}
	if r.Endpoints.JWKSURI != "" {
		fmt.Fprintf(w, "  JWKS: %s (%d keys)\n", r.Endpoints.JWKSURI, r.KeyCount)
	}
}

func loadIssuer(ctx context.Context, e *env, id int64) (*models.Issuer, error) {
	iss, err := e.issuers.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get issuer: %w", err)
	}
	if iss == nil {
		return nil, fmt.Errorf("issuer %d not found", id)
	}
	return iss, nil
}

func issuerError(id int64, err error) error {
	if errors.Is(err, database.ErrIssuerNotFound) {
		return fmt.Errorf("issuer %d not found", id)
	}
	return fmt.Errorf("issuer %d: %w", id, err)
}
