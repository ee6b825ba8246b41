package validator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/participant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookup struct {
	live map[snowflake.ID]struct{}
	err  error
	ids  []snowflake.ID
}

func (s *stubLookup) LiveOrganizations(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]struct{}, error) {
	s.ids = ids
	return s.live, s.err
}

func liveOrgs(ids ...snowflake.ID) *stubLookup {
	live := make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		live[id] = struct{}{}
	}
	return &stubLookup{live: live}
}

func rate(v string) json.RawMessage { return json.RawMessage(v) }

func TestValidateAcceptsWellFormedBatch(t *testing.T) {
	territory := "  APAC "
	res, err := Validate(context.Background(), liveOrgs(1, 2, 3), []domain.Input{
		{OrganizationID: 1, Role: "Customer", IsPrimary: true},
		{OrganizationID: 2, Role: "principal", IsPrimary: true, CommissionRate: rate(`0.15`), Territory: &territory},
		{OrganizationID: 3, Role: "PARTNER", CommissionRate: rate(`"0.2"`)},
	})
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, 3, res.Summary.Total)
	assert.Equal(t, 1, res.Summary.CustomerCount)
	assert.Equal(t, map[string]int{"customer": 1, "principal": 1, "partner": 1}, res.Summary.RoleCounts)
	assert.Equal(t, map[string]int{"customer": 1, "principal": 1}, res.Summary.PrimaryCounts)

	require.Len(t, res.Rows, 3)
	assert.Equal(t, "customer", res.Rows[0].Role)
	require.NotNil(t, res.Rows[1].CommissionRate)
	assert.InDelta(t, 0.15, *res.Rows[1].CommissionRate, 1e-9)
	require.NotNil(t, res.Rows[1].Territory)
	assert.Equal(t, "APAC", *res.Rows[1].Territory)
	require.NotNil(t, res.Rows[2].CommissionRate)
	assert.InDelta(t, 0.2, *res.Rows[2].CommissionRate, 1e-9)
}

func TestValidateReportsEveryError(t *testing.T) {
	lookup := liveOrgs(1, 2, 3)
	res, err := Validate(context.Background(), lookup, []domain.Input{
		{Role: "customer"},
		{OrganizationID: 2},
		{OrganizationID: 3, Role: "reseller"},
		{OrganizationID: 9, Role: "distributor"},
		{OrganizationID: 1, Role: "principal", CommissionRate: rate(`1.5`)},
		{OrganizationID: 2, Role: "principal", CommissionRate: rate(`"abc"`)},
	})
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.Nil(t, res.Rows)
	assert.Equal(t, []string{
		"row 1: organizationId is required",
		"row 2: role is required",
		`row 3: role "reseller" is not one of customer, principal, distributor, partner`,
		"row 4: organization 9 does not exist",
		"row 5: commissionRate 1.5 must be between 0 and 1",
		"row 6: commissionRate is not a number",
		"at least one customer participant is required",
	}, res.Errors)
	assert.ElementsMatch(t, []snowflake.ID{2, 3, 9, 1}, lookup.ids)
}

func TestValidateReportsUnreadableOrganizationID(t *testing.T) {
	res, err := Validate(context.Background(), nil, []domain.Input{
		{OrganizationID: 1, Role: "customer"},
		{InvalidOrganizationID: "acme", Role: "principal"},
		{Role: "partner"},
	})
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.Equal(t, []string{
		`row 2: organizationId "acme" is not a valid id`,
		"row 3: organizationId is required",
	}, res.Errors)
}

func TestValidateRejectsSecondPrimaryPerRole(t *testing.T) {
	res, err := Validate(context.Background(), nil, []domain.Input{
		{OrganizationID: 1, Role: "customer"},
		{OrganizationID: 2, Role: "principal", IsPrimary: true},
		{OrganizationID: 3, Role: "principal", IsPrimary: true},
	})
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.Equal(t, []string{"only one primary principal allowed"}, res.Errors)
	assert.Equal(t, 2, res.Summary.PrimaryCounts["principal"])
}

func TestValidateRejectsDuplicateKey(t *testing.T) {
	res, err := Validate(context.Background(), nil, []domain.Input{
		{OrganizationID: 1, Role: "customer"},
		{OrganizationID: 1, Role: "Customer"},
		{OrganizationID: 1, Role: "principal"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"row 2: organization 1 already listed as customer in row 1"}, res.Errors)
}

func TestValidateCommissionBounds(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"inside", `0.15`, true},
		{"zero", `0`, true},
		{"one", `1`, true},
		{"null", `null`, true},
		{"empty string", `""`, true},
		{"above", `1.5`, false},
		{"negative", `-0.1`, false},
		{"nan", `"NaN"`, false},
		{"object", `{}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Validate(context.Background(), nil, []domain.Input{
				{OrganizationID: 1, Role: "customer", CommissionRate: rate(tc.raw)},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.valid, res.Valid, res.Errors)
		})
	}
}

func TestValidateEmptyBatch(t *testing.T) {
	res, err := Validate(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"at least one customer participant is required"}, res.Errors)
}

func TestValidatePropagatesLookupFailure(t *testing.T) {
	_, err := Validate(context.Background(), &stubLookup{err: errors.New("db down")}, []domain.Input{
		{OrganizationID: 1, Role: "customer"},
	})
	assert.Error(t, err)
}
