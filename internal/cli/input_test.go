package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadRosterFileKeepsCommissionShape(t *testing.T) {
	path := writeFile(t, "roster.yaml", `
participants:
  - organizationId: 1
    role: customer
    isPrimary: true
  - organizationId: "2"
    role: principal
    commissionRate: 0.1
  - organizationId: 3
    role: partner
    commissionRate: "0.25"
    territory: EMEA
  - organizationId: 4
    role: partner
    commissionRate: abc
  - organizationId: 5
    role: partner
    commissionRate: [1]
`)

	file, err := readRosterFile(path)
	require.NoError(t, err)

	got := inputs(file.Participants)
	require.Len(t, got, 5)
	assert.Equal(t, snowflake.ID(2), got[1].OrganizationID)
	assert.True(t, got[0].IsPrimary)
	assert.Nil(t, got[0].CommissionRate)
	assert.Equal(t, "0.1", string(got[1].CommissionRate))
	assert.Equal(t, `"0.25"`, string(got[2].CommissionRate))
	assert.Equal(t, "EMEA", *got[2].Territory)
	assert.Equal(t, `"abc"`, string(got[3].CommissionRate))
	assert.Equal(t, `[1]`, string(got[4].CommissionRate))
}

func TestReadRosterFileAcceptsJSON(t *testing.T) {
	path := writeFile(t, "roster.json", `{"items": [
		{"opportunityId": "10", "participants": [{"organizationId": "1", "role": "customer", "commissionRate": null}]}
	]}`)

	file, err := readRosterFile(path)
	require.NoError(t, err)

	reqs := file.syncRequests()
	require.Len(t, reqs, 1)
	assert.Equal(t, snowflake.ID(10), reqs[0].OpportunityID)
	assert.Equal(t, snowflake.ID(1), reqs[0].Participants[0].OrganizationID)
	assert.Nil(t, reqs[0].Participants[0].CommissionRate)
}

func TestReadRosterFileRejectsBadIDs(t *testing.T) {
	path := writeFile(t, "roster.yaml", "participants:\n  - organizationId: acme\n    role: customer\n")

	_, err := readRosterFile(path)
	assert.ErrorContains(t, err, `"acme" is not a valid id`)
}
