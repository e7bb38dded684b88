package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/faultline/faultline-cli/pkg/flctl/output"
)

func NewTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect and refresh the stored access token",
	}
	cmd.AddCommand(
		newTokenShowCommand(),
		newTokenRefreshCommand(),
	)
	return cmd
}

type tokenInfo struct {
	Token     string    `json:"token" yaml:"token"`
	ExpiresAt time.Time `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
	IssuedAt  time.Time `json:"issuedAt,omitempty" yaml:"issuedAt,omitempty"`
}

func newTokenShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			mgr, err := rt.tokenManager()
			if err != nil {
				return err
			}
			token, err := mgr.GetValidToken(context.Background())
			if err != nil {
				return err
			}
			sess, _, _ := mgr.Store.Load()
			info := tokenInfo{Token: token, ExpiresAt: sess.ExpiresAt, IssuedAt: sess.IssuedAt}
			switch rt.OutputFormat() {
			case "json":
				return output.WriteObject(rt.Writer(), output.FormatJSON, info)
			case "yaml":
				return output.WriteObject(rt.Writer(), output.FormatYAML, info)
			default:
				_, _ = fmt.Fprintln(rt.Writer(), token)
				return nil
			}
		},
	}
}

func newTokenRefreshCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh the stored access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			mgr, err := rt.tokenManager()
			if err != nil {
				return err
			}
			res, err := mgr.Refresh(context.Background(), force)
			if err != nil {
				return err
			}
			if !res.Refreshed {
				_, _ = fmt.Fprintln(rt.Writer(), "Token still valid, no refresh needed")
				return nil
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Token refreshed. Expires at %s\n", res.ExpiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Refresh even when the token is not close to expiry")
	return cmd
}
