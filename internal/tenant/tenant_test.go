package tenant

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/gatepass/gatepass/internal/models"
)

func TestResolve(t *testing.T) {
	orgID := uuid.Must(uuid.NewV7())

	t.Run("nil principal", func(t *testing.T) {
		_, err := Resolve(nil)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("platform operator has no org", func(t *testing.T) {
		tc, err := Resolve(&models.Principal{
			PrincipalID: uuid.Must(uuid.NewV7()),
			Role:        models.RolePlatformOperator,
		})
		require.NoError(t, err)
		require.True(t, tc.PlatformOperator)
		require.Nil(t, tc.OrgID)
	})

	t.Run("tenant roles pinned to their org", func(t *testing.T) {
		for _, role := range []models.Role{
			models.RoleOrgAdmin, models.RoleTeacher, models.RoleSecurity, models.RoleParent,
		} {
			tc, err := Resolve(&models.Principal{
				PrincipalID: uuid.Must(uuid.NewV7()),
				Role:        role,
				OrgID:       &orgID,
			})
			require.NoError(t, err)
			require.False(t, tc.PlatformOperator)
			require.NotNil(t, tc.OrgID)
			require.Equal(t, orgID, *tc.OrgID)
		}
	})
}

func TestAuthorize(t *testing.T) {
	orgA := uuid.Must(uuid.NewV7())
	orgB := uuid.Must(uuid.NewV7())

	t.Run("same org allowed", func(t *testing.T) {
		tc := Context{OrgID: &orgA}
		require.NoError(t, tc.Authorize(orgA))
	})

	t.Run("cross tenant is a hard failure", func(t *testing.T) {
		tc := Context{OrgID: &orgA}
		require.ErrorIs(t, tc.Authorize(orgB), ErrCrossTenantAccess)
	})

	t.Run("no org denied", func(t *testing.T) {
		tc := Context{}
		require.ErrorIs(t, tc.Authorize(orgA), ErrCrossTenantAccess)
	})

	t.Run("platform operator bypasses", func(t *testing.T) {
		tc := Context{PlatformOperator: true}
		require.NoError(t, tc.Authorize(orgA))
		require.NoError(t, tc.Authorize(orgB))
	})
}
