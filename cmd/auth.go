package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/otherjamesbrown/triage-cli/config"
	"github.com/otherjamesbrown/triage-cli/credentials"
)

// NewAuthCommand creates the 'auth' command: the one-time Gmail OAuth flow.
func NewAuthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access",
		Long: `Run the one-time OAuth authorization for Gmail.

Requires credentials.json (an OAuth client downloaded from the Google
Cloud console) in the config directory. The resulting token is saved next
to it and refreshed automatically afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}

			oauthCfg, err := credentials.GmailOAuthConfig(dir, gmailScopes...)
			if err != nil {
				return err
			}

			authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Fprintf(cmd.OutOrStdout(),
				"Open this link in your browser, authorize, and paste the code here:\n%s\n\nCode: ", authURL)

			scanner := bufio.NewScanner(cmd.InOrStdin())
			if !scanner.Scan() {
				return fmt.Errorf("no authorization code provided")
			}
			code := strings.TrimSpace(scanner.Text())
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			token, err := oauthCfg.Exchange(cmd.Context(), code)
			if err != nil {
				return fmt.Errorf("exchanging authorization code: %w", err)
			}

			if err := credentials.SaveGmailToken(dir, token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Gmail authorized; token saved.")
			return nil
		},
	}
}
