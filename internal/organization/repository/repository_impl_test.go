package repository

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/dealroster/internal/seed"
	"github.com/smallbiznis/dealroster/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLiveByIDsSkipsDeletedOrganizations(t *testing.T) {
	conn := testutil.NewDB(t)
	testutil.Seed(t, conn, seed.Fixture{Organizations: []seed.Organization{
		{ID: 1, Name: "Acme"},
		{ID: 2, Name: "Globex", Deleted: true},
	}})

	repo := NewRepository()
	orgs, err := repo.FindLiveByIDs(context.Background(), conn, []snowflake.ID{1, 2, 3})
	require.NoError(t, err)

	assert.Len(t, orgs, 1)
	assert.Equal(t, "Acme", orgs[1].Name)

	empty, err := repo.FindLiveByIDs(context.Background(), conn, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemberRole(t *testing.T) {
	conn := testutil.NewDB(t)
	testutil.Seed(t, conn, seed.Fixture{Organizations: []seed.Organization{
		{ID: 1, Name: "Acme", Members: []seed.Member{{UserID: 70, Role: "viewer"}}},
	}})

	repo := NewRepository()
	role, err := repo.MemberRole(context.Background(), conn, 1, 70)
	require.NoError(t, err)
	assert.Equal(t, "VIEWER", role)

	role, err = repo.MemberRole(context.Background(), conn, 1, 71)
	require.NoError(t, err)
	assert.Empty(t, role)

	org, err := repo.FindByID(context.Background(), conn, 1)
	require.NoError(t, err)
	require.NotNil(t, org)
	assert.True(t, org.Live())
}
