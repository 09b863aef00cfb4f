package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type authStatusOutput struct {
	Account       string `json:"account"`
	Authenticated bool   `json:"authenticated"`
	TokenFile     string `json:"token_file"`
}

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage OAuth tokens",
		Long: `Manage the OAuth tokens of your Google accounts.

Download an OAuth client (type "Desktop app") from the Google Cloud Console
and save it as the credentials file, then run 'gmailcli auth login'. Tokens
are stored per account, select one with --account.`,
	}
	cmd.AddCommand(newAuthLoginCmd(a), newAuthStatusCmd(a), newAuthLogoutCmd(a))
	return cmd
}

func newAuthLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize gmailcli to access an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.instrument(cmd, "auth-login", func(ctx context.Context) error {
				auth, err := a.authenticator()
				if err != nil {
					return err
				}
				_, err = auth.Login(ctx, a.cfg.Account, func(authURL string) error {
					_, err := fmt.Fprintf(cmd.ErrOrStderr(),
						"Open the following URL in your browser to authorize account %s:\n\n%s\n\n", a.cfg.Account, authURL)
					return err
				})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"status":  "authenticated",
					"account": a.cfg.Account,
				})
			})
		},
	}
}

func newAuthStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a token is stored for the account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := a.tokenStore()
			path, err := store.Path(a.cfg.Account)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), authStatusOutput{
				Account:       a.cfg.Account,
				Authenticated: store.Has(a.cfg.Account),
				TokenFile:     path,
			})
		},
	}
}

func newAuthLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored token of the account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.tokenStore().Delete(a.cfg.Account); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"status":  "logged_out",
				"account": a.cfg.Account,
			})
		},
	}
}
