package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/faultline/faultline-cli/pkg/flctl/config"
	"github.com/faultline/faultline-cli/pkg/flctl/output"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage flctl configuration",
	}

	cmd.AddCommand(
		newConfigInitCommand(),
		newConfigViewCommand(),
		newConfigSetValueCommand(),
	)

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		server       string
		org          string
		authorizeURL string
		tokenURL     string
		clientID     string
		secretEnv    string
		proxyPort    int
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a flctl config file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			path := rt.configPathValue()
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("config already exists: %s", path)
				}
			}
			cfg := config.DefaultConfig()
			cfg.Server = server
			cfg.Org = org
			cfg.Auth = config.Auth{
				AuthorizeURL:    authorizeURL,
				TokenURL:        tokenURL,
				ClientID:        clientID,
				ClientSecretEnv: secretEnv,
				ProxyPort:       proxyPort,
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, &cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Initialized config at %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Backend server URL")
	cmd.Flags().StringVar(&org, "org", "", "Default organization slug")
	cmd.Flags().StringVar(&authorizeURL, "authorize-url", "", "Upstream OAuth authorize URL")
	cmd.Flags().StringVar(&tokenURL, "token-url", "", "Upstream OAuth token URL")
	cmd.Flags().StringVar(&clientID, "client-id", "", "OAuth client ID")
	cmd.Flags().StringVar(&secretEnv, "client-secret-env", "", "Env var holding the OAuth client secret")
	cmd.Flags().IntVar(&proxyPort, "proxy-port", 0, "Local login proxy port")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")

	_ = cmd.MarkFlagRequired("server")
	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show the current configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			view := *rt.cfg
			if view.Auth.ClientSecret != "" {
				view.Auth.ClientSecret = "REDACTED"
			}
			return output.WriteObject(rt.Writer(), output.FormatYAML, view)
		},
	}
}

func newConfigSetValueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.EnsureConfigLoaded(); err != nil {
				return err
			}
			key := args[0]
			value := args[1]
			switch key {
			case "server":
				rt.cfg.Server = value
			case "org":
				rt.cfg.Org = value
			case "auth.authorize-url":
				rt.cfg.Auth.AuthorizeURL = value
			case "auth.token-url":
				rt.cfg.Auth.TokenURL = value
			case "auth.client-id":
				rt.cfg.Auth.ClientID = value
			case "auth.client-secret-env":
				rt.cfg.Auth.ClientSecretEnv = value
			case "auth.client-secret-file":
				rt.cfg.Auth.ClientSecretFile = value
			case "auth.proxy-port":
				port, err := strconv.Atoi(value)
				if err != nil {
					return fmt.Errorf("invalid proxy port: %s", value)
				}
				rt.cfg.Auth.ProxyPort = port
			case "settings.output-format":
				rt.cfg.Settings.OutputFormat = value
			case "settings.timeout":
				rt.cfg.Settings.Timeout = value
			case "settings.token-storage":
				rt.cfg.Settings.TokenStorage = value
			default:
				return fmt.Errorf("unsupported key: %s", key)
			}
			if err := rt.cfg.Validate(); err != nil {
				return err
			}
			return config.Save(rt.configPathValue(), rt.cfg)
		},
	}
}
