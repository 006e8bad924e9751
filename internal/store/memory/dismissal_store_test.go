package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
)

func newDismissal(studentID, guardianID, orgID uuid.UUID, scannedAt time.Time) *models.Dismissal {
	return &models.Dismissal{
		DismissalID: uuid.Must(uuid.NewV7()),
		StudentID:   studentID,
		GuardianID:  guardianID,
		OrgID:       orgID,
		Status:      models.DismissalReady,
		ScannedAt:   scannedAt,
		CalledAt:    &scannedAt,
	}
}

func TestDismissalStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewDismissalStore()

	studentID := uuid.Must(uuid.NewV7())
	guardianID := uuid.Must(uuid.NewV7())
	orgID := uuid.Must(uuid.NewV7())

	d := newDismissal(studentID, guardianID, orgID, time.Now())

	t.Run("create and get", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, d))

		got, err := s.Get(ctx, d.DismissalID)
		require.NoError(t, err)
		require.Equal(t, d.DismissalID, got.DismissalID)
		require.Equal(t, models.DismissalReady, got.Status)
	})

	t.Run("duplicate id rejected", func(t *testing.T) {
		require.ErrorIs(t, s.Create(ctx, d), store.ErrDismissalAlreadyExists)
	})

	t.Run("get returns a clone", func(t *testing.T) {
		got, err := s.Get(ctx, d.DismissalID)
		require.NoError(t, err)
		got.Status = models.DismissalCancelled

		again, err := s.Get(ctx, d.DismissalID)
		require.NoError(t, err)
		require.Equal(t, models.DismissalReady, again.Status)
	})

	t.Run("update transition", func(t *testing.T) {
		now := time.Now()
		d.Status = models.DismissalCompleted
		d.CompletedAt = &now
		require.NoError(t, s.Update(ctx, d))

		got, err := s.Get(ctx, d.DismissalID)
		require.NoError(t, err)
		require.Equal(t, models.DismissalCompleted, got.Status)
	})

	t.Run("terminal record is immutable", func(t *testing.T) {
		now := time.Now()
		d.Status = models.DismissalConfirmed
		d.ConfirmedAt = &now
		require.NoError(t, s.Update(ctx, d))

		d.Status = models.DismissalCompleted
		require.ErrorIs(t, s.Update(ctx, d), store.ErrDismissalImmutable)
	})

	t.Run("update missing record", func(t *testing.T) {
		missing := newDismissal(studentID, guardianID, orgID, time.Now())
		require.ErrorIs(t, s.Update(ctx, missing), store.ErrDismissalNotFound)
	})
}

func TestDismissalStoreActiveQueries(t *testing.T) {
	ctx := context.Background()
	s := NewDismissalStore()

	studentID := uuid.Must(uuid.NewV7())
	guardianID := uuid.Must(uuid.NewV7())
	orgID := uuid.Must(uuid.NewV7())
	otherOrg := uuid.Must(uuid.NewV7())

	base := time.Now()

	older := newDismissal(studentID, guardianID, orgID, base.Add(-time.Hour))
	newer := newDismissal(studentID, guardianID, orgID, base)
	foreign := newDismissal(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), otherOrg, base)

	require.NoError(t, s.Create(ctx, older))
	require.NoError(t, s.Create(ctx, newer))
	require.NoError(t, s.Create(ctx, foreign))

	t.Run("active by student returns newest", func(t *testing.T) {
		got, err := s.ActiveByStudent(ctx, studentID)
		require.NoError(t, err)
		require.Equal(t, newer.DismissalID, got.DismissalID)
	})

	t.Run("active by student skips terminal", func(t *testing.T) {
		now := time.Now()
		newer.Status = models.DismissalCancelled
		newer.CancelledAt = &now
		require.NoError(t, s.Update(ctx, newer))

		got, err := s.ActiveByStudent(ctx, studentID)
		require.NoError(t, err)
		require.Equal(t, older.DismissalID, got.DismissalID)
	})

	t.Run("list by org newest first, scoped", func(t *testing.T) {
		ds, err := s.ListActiveByOrg(ctx, orgID)
		require.NoError(t, err)
		require.Len(t, ds, 1)
		require.Equal(t, older.DismissalID, ds[0].DismissalID)

		other, err := s.ListActiveByOrg(ctx, otherOrg)
		require.NoError(t, err)
		require.Len(t, other, 1)
		require.Equal(t, foreign.DismissalID, other[0].DismissalID)
	})

	t.Run("list by guardian", func(t *testing.T) {
		ds, err := s.ListActiveByGuardian(ctx, guardianID)
		require.NoError(t, err)
		require.Len(t, ds, 1)
		require.Equal(t, older.DismissalID, ds[0].DismissalID)
	})

	t.Run("no active dismissals", func(t *testing.T) {
		now := time.Now()
		older.Status = models.DismissalConfirmed
		older.ConfirmedAt = &now
		require.NoError(t, s.Update(ctx, older))

		_, err := s.ActiveByStudent(ctx, studentID)
		require.ErrorIs(t, err, store.ErrDismissalNotFound)
	})
}
