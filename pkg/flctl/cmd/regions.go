package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/faultline/faultline-cli/pkg/flctl/output"
)

func NewRegionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "Inspect backend regions and organization bindings",
	}
	cmd.AddCommand(
		newRegionsListCommand(),
		newRegionsBindingsCommand(),
		newRegionsSetOrgCommand(),
	)
	return cmd
}

func newRegionsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reachable backend regions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			mgr, err := rt.tokenManager()
			if err != nil {
				return err
			}
			dir, err := rt.buildDirectory(mgr)
			if err != nil {
				return err
			}
			regions, err := dir.Regions(context.Background())
			if err != nil {
				return err
			}
			switch rt.OutputFormat() {
			case "json":
				return output.WriteObject(rt.Writer(), output.FormatJSON, regions)
			case "yaml":
				return output.WriteObject(rt.Writer(), output.FormatYAML, regions)
			default:
				output.WriteRegionTable(rt.Writer(), regions)
				return nil
			}
		},
	}
}

func newRegionsBindingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bindings",
		Short: "Show cached organization to region bindings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			mgr, err := rt.tokenManager()
			if err != nil {
				return err
			}
			dir, err := rt.buildDirectory(mgr)
			if err != nil {
				return err
			}
			bindings, err := dir.Bindings()
			if err != nil {
				return err
			}
			switch rt.OutputFormat() {
			case "json":
				return output.WriteObject(rt.Writer(), output.FormatJSON, bindings)
			case "yaml":
				return output.WriteObject(rt.Writer(), output.FormatYAML, bindings)
			default:
				output.WriteBindingTable(rt.Writer(), bindings)
				return nil
			}
		},
	}
}

func newRegionsSetOrgCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-org ORG URL",
		Short: "Pin an organization to a region URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			mgr, err := rt.tokenManager()
			if err != nil {
				return err
			}
			dir, err := rt.buildDirectory(mgr)
			if err != nil {
				return err
			}
			if err := dir.SetOrgRegion(args[0], args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "%s -> %s\n", args[0], args[1])
			return nil
		},
	}
}
