package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/faultline/faultline-cli/pkg/flctl/client"
	"github.com/faultline/faultline-cli/pkg/flctl/output"
)

func NewOrgsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "Work with organizations across all regions",
	}
	cmd.AddCommand(
		newOrgsListCommand(),
		newOrgsGetCommand(),
	)
	return cmd
}

func newOrgsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List organizations from every reachable region",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			mgr, err := rt.tokenManager()
			if err != nil {
				return err
			}
			router, err := rt.buildRouter(mgr)
			if err != nil {
				return err
			}
			orgs, err := router.ListAllOrganizations(context.Background())
			if err != nil {
				return err
			}
			switch rt.OutputFormat() {
			case "json":
				return output.WriteObject(rt.Writer(), output.FormatJSON, orgs)
			case "yaml":
				return output.WriteObject(rt.Writer(), output.FormatYAML, orgs)
			default:
				output.WriteOrganizationTable(rt.Writer(), orgs)
				return nil
			}
		},
	}
}

func newOrgsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get SLUG",
		Short: "Show one organization, routed to its region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			mgr, err := rt.tokenManager()
			if err != nil {
				return err
			}
			router, err := rt.buildRouter(mgr)
			if err != nil {
				return err
			}
			var org client.Organization
			slug := args[0]
			if err := router.RouteRequest(context.Background(), slug, "GET", "organizations/"+slug+"/", nil, &org); err != nil {
				return err
			}
			switch rt.OutputFormat() {
			case "json":
				return output.WriteObject(rt.Writer(), output.FormatJSON, org)
			case "yaml":
				return output.WriteObject(rt.Writer(), output.FormatYAML, org)
			default:
				output.WriteOrganizationTable(rt.Writer(), []client.Organization{org})
				return nil
			}
		},
	}
}
