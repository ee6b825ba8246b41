package domain

import (
	"encoding/json"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInputID(t *testing.T) {
	cases := []struct {
		raw string
		id  snowflake.ID
		bad string
	}{
		{`"42"`, 42, ""},
		{`42`, 42, ""},
		{`" 42 "`, 42, ""},
		{`null`, 0, ""},
		{`""`, 0, ""},
		{``, 0, ""},
		{`"acme"`, 0, "acme"},
		{`1.5`, 0, "1.5"},
		{`-3`, 0, "-3"},
		{`true`, 0, "true"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			id, bad := ParseInputID(json.RawMessage(tc.raw))
			assert.Equal(t, tc.id, id)
			assert.Equal(t, tc.bad, bad)
		})
	}
}

func TestInputDecodesLooseOrganizationID(t *testing.T) {
	var inputs []Input
	err := json.Unmarshal([]byte(`[
		{"organizationId": null, "role": "customer"},
		{"organizationId": 7, "role": "principal", "isPrimary": true, "commissionRate": "0.1"},
		{"organizationId": "x1", "role": "partner"}
	]`), &inputs)
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	assert.Equal(t, snowflake.ID(0), inputs[0].OrganizationID)
	assert.Empty(t, inputs[0].InvalidOrganizationID)
	assert.Equal(t, "customer", inputs[0].Role)

	assert.Equal(t, snowflake.ID(7), inputs[1].OrganizationID)
	assert.True(t, inputs[1].IsPrimary)
	assert.JSONEq(t, `"0.1"`, string(inputs[1].CommissionRate))

	assert.Equal(t, "x1", inputs[2].InvalidOrganizationID)
}

func TestSyncRequestKeepsUnreadableOpportunityID(t *testing.T) {
	var req SyncRequest
	require.NoError(t, json.Unmarshal([]byte(`{"opportunityId": "deal-9", "participants": []}`), &req))
	assert.Equal(t, snowflake.ID(0), req.OpportunityID)
	assert.Equal(t, `opportunityId "deal-9" is not a valid id`, req.Problem)

	req = SyncRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"opportunityId": 12}`), &req))
	assert.Equal(t, snowflake.ID(12), req.OpportunityID)
	assert.Empty(t, req.Problem)
}
