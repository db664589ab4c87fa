// ABOUTME: auth subcommands for sign-in, sign-out, and token status
// ABOUTME: Device code login stores the token under the XDG data directory
package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/iTRMAutomation/mlc-village-recon-tool/auth"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Microsoft sign-in",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a device code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if _, err := a.provider.Interactive(cmd.Context(), a.cfg.Scopes); err != nil {
			if errors.Is(err, auth.ErrInteractiveUnavailable) {
				return fmt.Errorf("interactive sign-in is not used with %s or a client secret", AccessTokenEnv)
			}
			return err
		}
		newRenderer(cmd.OutOrStdout()).status(true, "signed in; token stored at "+a.store.Path)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.svc.SignOut(); err != nil {
			return err
		}
		newRenderer(cmd.OutOrStdout()).status(true, "signed out")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials will be used",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		out := newRenderer(cmd.OutOrStdout())
		switch a.provider.(type) {
		case auth.StaticProvider:
			out.field("Credentials", "pre-issued token from "+AccessTokenEnv)
			return nil
		case *auth.ClientCredentialsProvider:
			out.field("Credentials", "client credentials for "+a.cfg.ClientID)
			return nil
		}

		out.field("Credentials", "device code sign-in")
		out.field("Token file", a.store.Path)
		token, err := a.store.Load()
		if errors.Is(err, auth.ErrNoCachedToken) {
			out.status(false, "not signed in")
			return nil
		}
		if err != nil {
			return err
		}
		out.field("Expires", token.Expiry.Local().Format(time.RFC1123))
		out.field("Refreshable", token.RefreshToken != "")
		out.status(token.Valid() || token.RefreshToken != "", "signed in")
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
}
