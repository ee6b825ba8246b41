package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	participantdomain "github.com/smallbiznis/dealroster/internal/participant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureYAML = `
organizations:
  - id: 1
    name: Acme Buyer
  - id: 2
    name: Beta Principal
    capabilities: [principal]
  - id: 100
    name: Seller Co
    members:
      - user_id: 500
        role: MEMBER
opportunities:
  - id: 10
    name: Hospital Fit-Out
    owner_org_id: 100
    created_by: 500
  - id: 11
    name: Clinic Refurb
    owner_org_id: 100
    created_by: 500
`

func useSQLite(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "roster.db"))
	t.Setenv("DATABASE_MAX_OPEN_CONN", "1")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("ROSTER_CONFIG_PATH", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRosterctlRoundTrip(t *testing.T) {
	useSQLite(t)

	out, err := run(t, "seed", writeFile(t, "fixture.yaml", fixtureYAML))
	require.NoError(t, err, out)
	assert.Equal(t, "seeded 3 organizations and 2 opportunities\n", out)

	out, err = run(t, "migrate")
	require.NoError(t, err, out)
	assert.Contains(t, out, "schema up to date (sqlite)")

	invalid := writeFile(t, "invalid.yaml", `
participants:
  - organizationId: 2
    role: principal
    commissionRate: abc
  - organizationId: 404
    role: distributor
`)
	out, err = run(t, "validate", invalid, "--caller-id", "500")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, out, "row 1: commissionRate is not a number")
	assert.Contains(t, out, "row 2: organization 404 does not exist")
	assert.Contains(t, out, "at least one customer participant is required")

	items := writeFile(t, "items.yaml", `
items:
  - opportunityId: 10
    participants:
      - {organizationId: 1, role: customer, isPrimary: true}
      - {organizationId: 2, role: principal, isPrimary: true, commissionRate: "0.1"}
  - opportunityId: 11
    participants:
      - {organizationId: 2, role: principal}
`)
	out, err = run(t, "bulk-sync", items, "--caller-id", "500", "--format", "json")
	assert.ErrorIs(t, err, ErrRejected)

	var resp struct {
		Status string                       `json:"status"`
		Data   participantdomain.BulkResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	assert.Equal(t, "rejected", resp.Status)
	assert.Equal(t, 1, resp.Data.Succeeded)
	require.Len(t, resp.Data.Items, 2)
	assert.Equal(t, &participantdomain.SyncResult{Upserted: 2, Deleted: 0, Total: 2}, resp.Data.Items[0].Result)
	assert.Equal(t, "validation_failed", resp.Data.Items[1].Error.Type)

	out, err = run(t, "bulk-sync", items, "--caller-id", "777")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, out, "#0 10: forbidden")
	assert.Contains(t, out, "0 succeeded, 2 failed")
}

func TestRosterctlRequiresCaller(t *testing.T) {
	useSQLite(t)

	_, err := run(t, "validate", writeFile(t, "roster.yaml", "participants: []\n"))
	assert.ErrorContains(t, err, "--caller-id is required")
}

func TestRosterctlRejectsUnknownFormat(t *testing.T) {
	_, err := run(t, "migrate", "--format", "xml")
	assert.ErrorContains(t, err, `invalid format "xml"`)
}
