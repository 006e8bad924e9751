package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
)

func newClass(orgID uuid.UUID, teacherIDs ...uuid.UUID) *models.Class {
	return &models.Class{
		ClassID:    uuid.Must(uuid.NewV7()),
		OrgID:      orgID,
		Grade:      "3",
		Section:    "A",
		TeacherIDs: teacherIDs,
	}
}

func TestClassStore(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.Must(uuid.NewV7())

	t.Run("create and get", func(t *testing.T) {
		s := NewClassStore()
		teacherID := uuid.Must(uuid.NewV7())
		class := newClass(orgID, teacherID)

		require.NoError(t, s.Create(ctx, class))

		got, err := s.Get(ctx, class.ClassID)
		require.NoError(t, err)
		require.Equal(t, class.ClassID, got.ClassID)
		require.Equal(t, []uuid.UUID{teacherID}, got.TeacherIDs)
	})

	t.Run("duplicate create fails", func(t *testing.T) {
		s := NewClassStore()
		class := newClass(orgID)

		require.NoError(t, s.Create(ctx, class))
		require.ErrorIs(t, s.Create(ctx, class), store.ErrClassAlreadyExists)
	})

	t.Run("teacher slice is isolated from callers", func(t *testing.T) {
		s := NewClassStore()
		teacherID := uuid.Must(uuid.NewV7())
		class := newClass(orgID, teacherID)
		require.NoError(t, s.Create(ctx, class))

		got, err := s.Get(ctx, class.ClassID)
		require.NoError(t, err)
		got.TeacherIDs[0] = uuid.Must(uuid.NewV7())

		again, err := s.Get(ctx, class.ClassID)
		require.NoError(t, err)
		require.Equal(t, teacherID, again.TeacherIDs[0])
	})

	t.Run("update replaces teacher assignments", func(t *testing.T) {
		s := NewClassStore()
		class := newClass(orgID, uuid.Must(uuid.NewV7()))
		require.NoError(t, s.Create(ctx, class))

		replacement := uuid.Must(uuid.NewV7())
		class.TeacherIDs = []uuid.UUID{replacement}
		require.NoError(t, s.Update(ctx, class))

		got, err := s.Get(ctx, class.ClassID)
		require.NoError(t, err)
		require.Equal(t, []uuid.UUID{replacement}, got.TeacherIDs)
	})

	t.Run("missing class", func(t *testing.T) {
		s := NewClassStore()

		_, err := s.Get(ctx, uuid.Must(uuid.NewV7()))
		require.ErrorIs(t, err, store.ErrClassNotFound)
		require.ErrorIs(t, s.Update(ctx, newClass(orgID)), store.ErrClassNotFound)
	})

	t.Run("list is org scoped", func(t *testing.T) {
		s := NewClassStore()
		otherOrg := uuid.Must(uuid.NewV7())

		require.NoError(t, s.Create(ctx, newClass(orgID)))
		require.NoError(t, s.Create(ctx, newClass(orgID)))
		require.NoError(t, s.Create(ctx, newClass(otherOrg)))

		classes, err := s.ListByOrg(ctx, orgID)
		require.NoError(t, err)
		require.Len(t, classes, 2)
	})
}

func TestGateStore(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.Must(uuid.NewV7())

	newGate := func(org uuid.UUID) *models.Gate {
		return &models.Gate{
			GateID: uuid.Must(uuid.NewV7()),
			OrgID:  org,
			Name:   "Main Gate",
			Active: true,
		}
	}

	t.Run("create and get", func(t *testing.T) {
		s := NewGateStore()
		gate := newGate(orgID)

		require.NoError(t, s.Create(ctx, gate))

		got, err := s.Get(ctx, gate.GateID)
		require.NoError(t, err)
		require.Equal(t, gate.GateID, got.GateID)
		require.True(t, got.Active)
	})

	t.Run("duplicate create fails", func(t *testing.T) {
		s := NewGateStore()
		gate := newGate(orgID)

		require.NoError(t, s.Create(ctx, gate))
		require.ErrorIs(t, s.Create(ctx, gate), store.ErrGateAlreadyExists)
	})

	t.Run("update deactivates a gate", func(t *testing.T) {
		s := NewGateStore()
		gate := newGate(orgID)
		require.NoError(t, s.Create(ctx, gate))

		gate.Active = false
		require.NoError(t, s.Update(ctx, gate))

		got, err := s.Get(ctx, gate.GateID)
		require.NoError(t, err)
		require.False(t, got.Active)
	})

	t.Run("missing gate", func(t *testing.T) {
		s := NewGateStore()

		_, err := s.Get(ctx, uuid.Must(uuid.NewV7()))
		require.ErrorIs(t, err, store.ErrGateNotFound)
	})

	t.Run("count is org scoped", func(t *testing.T) {
		s := NewGateStore()
		otherOrg := uuid.Must(uuid.NewV7())

		require.NoError(t, s.Create(ctx, newGate(orgID)))
		require.NoError(t, s.Create(ctx, newGate(orgID)))
		require.NoError(t, s.Create(ctx, newGate(otherOrg)))

		count, err := s.CountByOrg(ctx, orgID)
		require.NoError(t, err)
		require.Equal(t, 2, count)

		gates, err := s.ListByOrg(ctx, otherOrg)
		require.NoError(t, err)
		require.Len(t, gates, 1)
	})
}
