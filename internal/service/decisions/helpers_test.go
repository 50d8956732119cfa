package decisions_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/orbitalworks/verdict/internal/model"
)

// testOrg is a freshly seeded tenant with one requester and one stakeholder
// holding the given decision permission. Each test gets its own org so
// parallel tests never see each other's decisions.
type testOrg struct {
	id          uuid.UUID
	requester   uuid.UUID
	stakeholder uuid.UUID
}

func seedOrg(t *testing.T, permission string) testOrg {
	t.Helper()
	ctx := context.Background()

	org := testOrg{id: uuid.New(), requester: uuid.New(), stakeholder: uuid.New()}
	require.NoError(t, testDB.CreateOrganization(ctx, &model.Organization{
		ID:        org.id,
		Name:      "Test Org " + org.id.String()[:8],
		Slug:      "test-" + org.id.String()[:8],
		CreatedAt: time.Now(),
	}))
	require.NoError(t, testDB.CreateUser(ctx, &model.User{
		ID:        org.requester,
		OrgID:     org.id,
		Name:      "Requester",
		Email:     "requester@" + org.id.String()[:8] + ".test",
		CreatedAt: time.Now(),
	}))
	require.NoError(t, testDB.CreateUser(ctx, &model.User{
		ID:          org.stakeholder,
		OrgID:       org.id,
		Name:        "Stakeholder",
		Email:       "stakeholder@" + org.id.String()[:8] + ".test",
		Permissions: []string{permission},
		CreatedAt:   time.Now(),
	}))
	return org
}
