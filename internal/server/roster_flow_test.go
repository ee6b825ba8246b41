package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/dealroster/internal/authorization"
	capabilityrepository "github.com/smallbiznis/dealroster/internal/capability/repository"
	capabilityservice "github.com/smallbiznis/dealroster/internal/capability/service"
	"github.com/smallbiznis/dealroster/internal/config"
	"github.com/smallbiznis/dealroster/internal/observability"
	"github.com/smallbiznis/dealroster/internal/observability/metrics"
	opportunityrepository "github.com/smallbiznis/dealroster/internal/opportunity/repository"
	organizationrepository "github.com/smallbiznis/dealroster/internal/organization/repository"
	"github.com/smallbiznis/dealroster/internal/participant/domain"
	participantrepository "github.com/smallbiznis/dealroster/internal/participant/repository"
	participantservice "github.com/smallbiznis/dealroster/internal/participant/service"
	"github.com/smallbiznis/dealroster/internal/seed"
	"github.com/smallbiznis/dealroster/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRosterServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := testutil.NewDB(t)
	testutil.Seed(t, conn, seed.Fixture{
		Organizations: []seed.Organization{
			{ID: 1, Name: "Acme Buyer"},
			{ID: 2, Name: "Beta Principal", Capabilities: []string{"principal"}},
			{ID: 3, Name: "Gamma Principal", Capabilities: []string{"principal"}},
			{ID: 100, Name: "Seller Co", Members: []seed.Member{{UserID: 500, Role: "MEMBER"}}},
		},
	})

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	orgs := organizationrepository.NewRepository()
	registry := capabilityservice.New(capabilityservice.Params{Log: zap.NewNop(), Repo: capabilityrepository.Provide()})
	rosterMetrics := metrics.NewRoster(prometheus.NewRegistry(), metrics.Config{})

	roster := participantservice.New(participantservice.Params{
		DB:            conn,
		Log:           zap.NewNop(),
		GenID:         testutil.Node(t),
		Repo:          participantrepository.Provide(participantrepository.Params{Registry: registry}),
		Opportunities: opportunityrepository.Provide(),
		Organizations: orgs,
		Gate:          authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer, Orgs: orgs}),
		Roster:        config.NewStaticRosterConfigHolder(config.DefaultRosterConfig()),
		Metrics:       rosterMetrics,
	})

	return NewServer(ServerParams{
		Gin:    NewEngine(observability.Config{LogLevel: "info"}, rosterMetrics),
		Roster: roster,
		Log:    zap.NewNop(),
	})
}

func TestRosterOverHTTP(t *testing.T) {
	srv := newRosterServer(t)

	resp := do(t, srv, http.MethodPost, "/api/v1/opportunities", `{
		"opportunity": {"id": "10", "name": "Hospital Fit-Out", "ownerOrgId": "100"},
		"participants": [
			{"organizationId": "1", "role": "customer", "isPrimary": true},
			{"organizationId": "2", "role": "principal", "isPrimary": true, "commissionRate": 0.1}
		]
	}`, memberHeaders)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = do(t, srv, http.MethodPut, "/api/v1/opportunities/10/participants", `{"participants": [
		{"organizationId": "1", "role": "customer", "isPrimary": true},
		{"organizationId": "2", "role": "principal", "isPrimary": true},
		{"organizationId": "3", "role": "principal", "isPrimary": true}
	]}`, memberHeaders)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, decodeError(t, resp).Errors, "only one primary principal allowed")

	resp = do(t, srv, http.MethodPut, "/api/v1/opportunities/10/participants", `{"participants": [
		{"organizationId": "1", "role": "principal"}
	]}`, memberHeaders)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = do(t, srv, http.MethodGet, "/api/v1/opportunities/10", "", map[string]string{HeaderCallerID: "777"})
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = do(t, srv, http.MethodGet, "/api/v1/opportunities/10", "", memberHeaders)
	require.Equal(t, http.StatusOK, resp.Code)

	var view struct {
		Data domain.OpportunityView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	assert.Equal(t, "hospital-fit-out", view.Data.Slug)
	assert.Equal(t, "Seller Co", view.Data.Owner.Name)
	require.Len(t, view.Data.Participants, 2)
	assert.Equal(t, "customer", view.Data.Participants[0].Role)
	assert.Equal(t, "Acme Buyer", view.Data.Participants[0].OrganizationName)

	resp = do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestBulkSyncOverHTTP(t *testing.T) {
	srv := newRosterServer(t)

	for _, id := range []string{"10", "11"} {
		resp := do(t, srv, http.MethodPost, "/api/v1/opportunities",
			`{"opportunity":{"id":"`+id+`","name":"Deal `+id+`","ownerOrgId":"100"},"participants":[{"organizationId":"1","role":"customer","isPrimary":true}]}`,
			memberHeaders)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	resp := do(t, srv, http.MethodPost, "/api/v1/participants/bulk-sync", `{"items": [
		{"opportunityId": "10", "participants": [{"organizationId": "1", "role": "customer", "isPrimary": true}, {"organizationId": "2", "role": "principal"}]},
		{"opportunityId": "11", "participants": [{"organizationId": "1", "role": "customer", "commissionRate": 2}]}
	]}`, memberHeaders)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Data domain.BulkResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Succeeded)
	assert.Equal(t, 1, body.Data.Failed)
	require.Len(t, body.Data.Items, 2)
	assert.True(t, body.Data.Items[0].Success)
	assert.Equal(t, "validation_failed", body.Data.Items[1].Error.Type)
	assert.Equal(t, []string{"row 1: commissionRate 2 must be between 0 and 1"}, body.Data.Items[1].Error.Errors)
}

func TestValidateOverHTTPReportsEveryRow(t *testing.T) {
	srv := newRosterServer(t)

	resp := do(t, srv, http.MethodPost, "/api/v1/participants/validate", `{"participants": [
		{"organizationId": null, "role": "customer"},
		{"organizationId": "1", "role": "bogus"},
		{"organizationId": 2, "role": "principal", "commissionRate": "abc"},
		{"organizationId": "acme", "role": "partner"}
	]}`, memberHeaders)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Data domain.ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.False(t, body.Data.Valid)
	assert.Equal(t, []string{
		"row 1: organizationId is required",
		`row 2: role "bogus" is not one of customer, principal, distributor, partner`,
		"row 3: commissionRate is not a number",
		`row 4: organizationId "acme" is not a valid id`,
		"at least one customer participant is required",
	}, body.Data.Errors)
}

func TestBulkSyncOverHTTPIsolatesUnreadableItems(t *testing.T) {
	srv := newRosterServer(t)

	resp := do(t, srv, http.MethodPost, "/api/v1/opportunities",
		`{"opportunity":{"id":"10","name":"Deal 10","ownerOrgId":"100"},"participants":[{"organizationId":"1","role":"customer","isPrimary":true}]}`,
		memberHeaders)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = do(t, srv, http.MethodPost, "/api/v1/participants/bulk-sync", `{"items": [
		{"opportunityId": "10", "participants": [{"organizationId": 1, "role": "customer", "isPrimary": true}, {"organizationId": "2", "role": "principal"}]},
		{"opportunityId": "deal-9", "participants": []},
		{"opportunityId": "10", "participants": "everyone"},
		{"opportunityId": "10", "participants": [{"organizationId": null, "role": "customer"}]}
	]}`, memberHeaders)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Data domain.BulkResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Succeeded)
	assert.Equal(t, 3, body.Data.Failed)
	require.Len(t, body.Data.Items, 4)

	assert.True(t, body.Data.Items[0].Success)
	require.NotNil(t, body.Data.Items[0].Result)
	assert.Equal(t, 2, body.Data.Items[0].Result.Total)

	assert.Equal(t, "validation_failed", body.Data.Items[1].Error.Type)
	assert.Equal(t, []string{`opportunityId "deal-9" is not a valid id`}, body.Data.Items[1].Error.Errors)

	assert.Equal(t, "validation_failed", body.Data.Items[2].Error.Type)
	assert.Equal(t, []string{"item 2 is not a valid sync request"}, body.Data.Items[2].Error.Errors)
	assert.Equal(t, "10", body.Data.Items[2].OpportunityID.String())

	assert.Equal(t, "validation_failed", body.Data.Items[3].Error.Type)
	assert.Contains(t, body.Data.Items[3].Error.Errors, "row 1: organizationId is required")
}
