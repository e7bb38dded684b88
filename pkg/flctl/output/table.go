package output

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/faultline/faultline-cli/pkg/flctl/client"
	"github.com/faultline/faultline-cli/pkg/flctl/region"
)

func WriteRegionTable(w io.Writer, regions []client.Region) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tURL")
	for _, r := range regions {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", r.Name, r.URL)
	}
	_ = tw.Flush()
}

func WriteOrganizationTable(w io.Writer, orgs []client.Organization) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SLUG\tNAME")
	for _, o := range orgs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", o.Slug, o.Name)
	}
	_ = tw.Flush()
}

func WriteBindingTable(w io.Writer, bindings []region.Binding) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ORG\tREGION\tUPDATED")
	for _, b := range bindings {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", b.OrgSlug, b.RegionURL, formatTime(b.UpdatedAt))
	}
	_ = tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
