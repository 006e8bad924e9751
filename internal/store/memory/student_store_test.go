package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
)

func TestStudentStoreCredentialResolution(t *testing.T) {
	ctx := context.Background()
	principals := NewPrincipalStore()
	students := NewStudentStore(principals)

	orgID := uuid.Must(uuid.NewV7())
	guardianCard := "card-guardian"

	guardian := &models.Principal{
		PrincipalID:  uuid.Must(uuid.NewV7()),
		OrgID:        &orgID,
		Role:         models.RoleParent,
		Name:         "Guardian",
		CredentialID: &guardianCard,
	}
	require.NoError(t, principals.Create(ctx, guardian))

	inheriting := &models.Student{
		StudentID:  uuid.Must(uuid.NewV7()),
		OrgID:      orgID,
		GuardianID: guardian.PrincipalID,
		Name:       "Inheriting Child",
	}
	require.NoError(t, students.Create(ctx, inheriting))

	ownCard := "card-own"
	individual := &models.Student{
		StudentID:    uuid.Must(uuid.NewV7()),
		OrgID:        orgID,
		GuardianID:   guardian.PrincipalID,
		Name:         "Carded Child",
		CredentialID: &ownCard,
	}
	require.NoError(t, students.Create(ctx, individual))

	t.Run("guardian credential resolves all children", func(t *testing.T) {
		got, err := students.ListByCredential(ctx, guardianCard)
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("individual credential resolves one student", func(t *testing.T) {
		got, err := students.ListByCredential(ctx, ownCard)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, individual.StudentID, got[0].StudentID)
	})

	t.Run("unknown credential", func(t *testing.T) {
		_, err := students.ListByCredential(ctx, "card-unknown")
		require.ErrorIs(t, err, store.ErrCredentialNotFound)
	})

	t.Run("list by guardian", func(t *testing.T) {
		got, err := students.ListByGuardian(ctx, guardian.PrincipalID)
		require.NoError(t, err)
		require.Len(t, got, 2)
	})

	t.Run("count by org", func(t *testing.T) {
		count, err := students.CountByOrg(ctx, orgID)
		require.NoError(t, err)
		require.Equal(t, 2, count)

		count, err = students.CountByOrg(ctx, uuid.Must(uuid.NewV7()))
		require.NoError(t, err)
		require.Equal(t, 0, count)
	})
}
