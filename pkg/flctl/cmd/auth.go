package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faultline/faultline-cli/pkg/flctl/auth"
	"github.com/faultline/faultline-cli/pkg/flctl/config"
	"github.com/faultline/faultline-cli/pkg/flctl/region"
)

func NewAuthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Faultline",
	}
	cmd.AddCommand(
		newAuthLoginCommand(),
		newAuthStatusCommand(),
		newAuthLogoutCommand(),
	)
	return cmd
}

func newAuthLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login via the device authorization flow",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			if rt.nonInteractive {
				return errors.New("login requires a browser and cannot run non-interactively")
			}
			secret, err := rt.cfg.Auth.ResolveClientSecret()
			if err != nil {
				return err
			}
			sess, err := auth.DeviceLogin(cmd.Context(), auth.LoginConfig{
				AuthorizeURL: rt.cfg.Auth.AuthorizeURL,
				TokenURL:     rt.cfg.Auth.TokenURL,
				ClientID:     rt.cfg.Auth.ClientID,
				ClientSecret: secret,
				Scopes:       rt.cfg.Auth.Scopes,
				ProxyPort:    rt.cfg.ProxyPort(),
				Logger:       rt.logger,
				Writer:       rt.Writer(),
			})
			if err != nil {
				return err
			}
			if err := rt.sessionStore().Save(*sess); err != nil {
				return err
			}
			if sess.ExpiresAt.IsZero() {
				_, _ = fmt.Fprintln(rt.Writer(), "Authenticated.")
				return nil
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Authenticated. Token expires at %s\n", sess.ExpiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
}

func newAuthStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			mgr, err := rt.tokenManager()
			if err != nil {
				return err
			}
			sess, ok, err := mgr.Store.Load()
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(rt.Writer(), "Not authenticated")
				return nil
			}
			if _, err := mgr.GetValidToken(context.Background()); err != nil {
				return err
			}
			// Re-read: the token may have been refreshed just now.
			sess, _, _ = mgr.Store.Load()
			if sess.ExpiresAt.IsZero() {
				_, _ = fmt.Fprintln(rt.Writer(), "Authenticated (token does not expire)")
				return nil
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Authenticated. Token expires at %s\n", sess.ExpiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}
}

func newAuthLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session and region bindings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.sessionStore().Clear(); err != nil {
				return err
			}
			dir := region.New(region.Options{Path: config.DefaultRegionsPath()})
			if err := dir.Clear(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Logged out")
			return nil
		},
	}
}
