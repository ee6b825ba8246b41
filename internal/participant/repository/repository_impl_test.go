package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	capabilityrepository "github.com/smallbiznis/dealroster/internal/capability/repository"
	capabilityservice "github.com/smallbiznis/dealroster/internal/capability/service"
	"github.com/smallbiznis/dealroster/internal/participant/domain"
	"github.com/smallbiznis/dealroster/internal/seed"
	"github.com/smallbiznis/dealroster/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const opportunityID snowflake.ID = 900

func newTestRepo(t *testing.T) (domain.Repository, *gorm.DB) {
	t.Helper()

	conn := testutil.NewDB(t)
	testutil.Seed(t, conn, seed.Fixture{
		Organizations: []seed.Organization{
			{ID: 1, Name: "Acme Buyer"},
			{ID: 2, Name: "Beta Principal", Capabilities: []string{"principal"}},
			{ID: 3, Name: "Gamma Principal", Capabilities: []string{"principal"}},
			{ID: 4, Name: "Delta Trading"},
			{ID: 100, Name: "Seller Co"},
		},
		Opportunities: []seed.Opportunity{{ID: opportunityID, Name: "Deal", OwnerOrgID: 100, CreatedBy: 500}},
	})

	registry := capabilityservice.New(capabilityservice.Params{
		Log:  zap.NewNop(),
		Repo: capabilityrepository.Provide(),
	})
	return Provide(Params{Registry: registry}), conn
}

func participant(id, orgID snowflake.ID, role string, primary bool) *domain.Participant {
	now := time.Now().UTC()
	return &domain.Participant{
		ID:             id,
		OpportunityID:  opportunityID,
		OrganizationID: orgID,
		Role:           role,
		IsPrimary:      primary,
		CreatedAt:      now,
		UpdatedAt:      now,
		CreatedBy:      500,
		UpdatedBy:      500,
	}
}

func requireInvariant(t *testing.T, err error, invariant string) {
	t.Helper()

	var cerr *domain.ConstraintError
	require.True(t, errors.As(err, &cerr), "want ConstraintError, got %v", err)
	assert.Equal(t, invariant, cerr.Invariant)
	assert.ErrorIs(t, err, domain.ErrConstraintViolated)
}

func TestInsertEnforcesUniqueness(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, conn, participant(1, 1, domain.RoleCustomer, true)))
	err := repo.Insert(ctx, conn, participant(2, 1, domain.RoleCustomer, false))
	requireInvariant(t, err, domain.InvariantUniqueness)
}

func TestInsertEnforcesPrimaryPerRole(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, conn, participant(1, 2, domain.RolePrincipal, true)))
	err := repo.Insert(ctx, conn, participant(2, 3, domain.RolePrincipal, true))
	requireInvariant(t, err, domain.InvariantPrimaryPerRole)

	require.NoError(t, repo.Insert(ctx, conn, participant(3, 3, domain.RolePrincipal, false)))
}

func TestInsertEnforcesCommissionBounds(t *testing.T) {
	repo, conn := newTestRepo(t)
	rate := 1.5
	p := participant(1, 1, domain.RoleCustomer, false)
	p.CommissionRate = &rate

	err := repo.Insert(context.Background(), conn, p)
	requireInvariant(t, err, domain.InvariantCommissionBounds)
}

func TestInsertEnforcesRoleCapability(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()

	err := repo.Insert(ctx, conn, participant(1, 4, domain.RoleDistributor, false))
	requireInvariant(t, err, domain.InvariantRoleCapability)

	require.NoError(t, repo.Insert(ctx, conn, participant(2, 4, domain.RolePartner, false)))
	require.NoError(t, repo.Insert(ctx, conn, participant(3, 4, domain.RoleCustomer, false)))
}

func TestLastCustomerCannotBeRemoved(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()

	first := participant(1, 1, domain.RoleCustomer, true)
	require.NoError(t, repo.Insert(ctx, conn, first))

	err := conn.Transaction(func(tx *gorm.DB) error {
		return repo.Delete(ctx, tx, *first)
	})
	requireInvariant(t, err, domain.InvariantCustomerNonOrphan)

	moved := *first
	moved.Role = domain.RolePartner
	err = repo.Update(ctx, conn, &moved)
	requireInvariant(t, err, domain.InvariantCustomerNonOrphan)

	second := participant(2, 4, domain.RoleCustomer, false)
	require.NoError(t, repo.Insert(ctx, conn, second))
	require.NoError(t, repo.Delete(ctx, conn, *first))

	err = repo.Delete(ctx, conn, *second)
	requireInvariant(t, err, domain.InvariantCustomerNonOrphan)

	count, err := repo.CountCustomers(ctx, conn, opportunityID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpdateAndFind(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, conn, participant(1, 2, domain.RolePrincipal, false)))

	found, err := repo.FindByKey(ctx, conn, opportunityID, domain.Key{OrganizationID: 2, Role: domain.RolePrincipal})
	require.NoError(t, err)
	require.NotNil(t, found)

	rate := 0.15
	territory := "EMEA"
	found.IsPrimary = true
	found.CommissionRate = &rate
	found.Territory = &territory
	found.UpdatedBy = 501
	require.NoError(t, repo.Update(ctx, conn, found))

	rows, err := repo.ListByOpportunity(ctx, conn, opportunityID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsPrimary)
	require.NotNil(t, rows[0].CommissionRate)
	assert.InDelta(t, 0.15, *rows[0].CommissionRate, 1e-9)
	assert.Equal(t, snowflake.ID(501), rows[0].UpdatedBy)
	assert.Equal(t, snowflake.ID(500), rows[0].CreatedBy)

	views, err := repo.ListViews(ctx, conn, opportunityID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Beta Principal", views[0].OrganizationName)

	missing, err := repo.FindByKey(ctx, conn, opportunityID, domain.Key{OrganizationID: 3, Role: domain.RolePrincipal})
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.ErrorIs(t, repo.Update(ctx, conn, participant(99, 2, domain.RolePrincipal, false)), domain.ErrNotFound)
}

func TestDeletingOpportunityCascades(t *testing.T) {
	repo, conn := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, conn, participant(1, 1, domain.RoleCustomer, true)))
	require.NoError(t, conn.Exec(`DELETE FROM opportunities WHERE id = ?`, opportunityID).Error)

	rows, err := repo.ListByOpportunity(ctx, conn, opportunityID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClassifyMapsDriverMessagesToInvariants(t *testing.T) {
	p := domain.Participant{OrganizationID: 3, Role: domain.RolePrincipal}

	cases := []struct {
		name      string
		err       error
		invariant string
	}{
		{"mysql primary key", errors.New("Error 1062 (23000): Duplicate entry '10-principal' for key 'opportunity_participants.ux_participants_primary_per_role'"), domain.InvariantPrimaryPerRole},
		{"mysql pair key", errors.New("Error 1062 (23000): Duplicate entry '10-3-principal' for key 'opportunity_participants.ux_participants_opp_org_role'"), domain.InvariantUniqueness},
		{"mysql commission check", errors.New("Error 3819 (HY000): Check constraint 'ck_participants_commission_rate' is violated."), domain.InvariantCommissionBounds},
		{"sqlite primary index", errors.New("constraint failed: UNIQUE constraint failed: opportunity_participants.opportunity_id, opportunity_participants.role (2067)"), domain.InvariantPrimaryPerRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			requireInvariant(t, classify(tc.err, p), tc.invariant)
		})
	}
}
