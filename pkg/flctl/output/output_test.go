package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faultline/faultline-cli/pkg/flctl/client"
	"github.com/faultline/faultline-cli/pkg/flctl/region"
)

func TestWriteObject(t *testing.T) {
	obj := map[string]string{"slug": "acme"}

	var buf bytes.Buffer
	require.NoError(t, WriteObject(&buf, FormatJSON, obj))
	assert.Contains(t, buf.String(), `"slug": "acme"`)

	buf.Reset()
	require.NoError(t, WriteObject(&buf, FormatYAML, obj))
	assert.Contains(t, buf.String(), "slug: acme")

	assert.Error(t, WriteObject(&buf, FormatTable, obj))
	assert.Error(t, WriteObject(&buf, Format("bogus"), obj))
}

func TestWriteRegionTable(t *testing.T) {
	var buf bytes.Buffer
	WriteRegionTable(&buf, []client.Region{{Name: "east", URL: "https://east.example.com"}})
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "east")
	assert.Contains(t, out, "https://east.example.com")
}

func TestWriteOrganizationTable(t *testing.T) {
	var buf bytes.Buffer
	WriteOrganizationTable(&buf, []client.Organization{{Slug: "acme", Name: "Acme Corp"}})
	out := buf.String()
	assert.Contains(t, out, "SLUG")
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "Acme Corp")
}

func TestWriteBindingTable(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	WriteBindingTable(&buf, []region.Binding{
		{OrgSlug: "acme", RegionURL: "https://east.example.com", UpdatedAt: updated},
		{OrgSlug: "globex", RegionURL: "https://west.example.com"},
	})
	out := buf.String()
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "2026-03-01T12:00:00Z")
	assert.Contains(t, out, "-", "zero timestamp renders as a dash")
}
