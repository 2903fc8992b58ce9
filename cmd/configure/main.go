package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benvon/opensocial-oauth/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "opensocial-oauth-configure",
		Short:         "Configuration tool for the OpenSocial OAuth bridge",
		Long:          "CLI tool for configuring provider settings, the LMS auth plugin, OAuth2 issuers, CORS, rate limits and schema upgrades",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewSettingsCmd())
	rootCmd.AddCommand(commands.NewAuthCmd())
	rootCmd.AddCommand(commands.NewIssuerCmd())
	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewMigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
