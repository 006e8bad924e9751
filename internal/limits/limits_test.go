package limits

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/gatepass/gatepass/internal/models"
)

func TestCheck(t *testing.T) {
	t.Run("unlimited always allows", func(t *testing.T) {
		for _, count := range []int{0, 1, 1_000_000} {
			d := Check(models.UnlimitedCeiling(), ResourceStudents, count)
			require.True(t, d.Allowed)
			require.Equal(t, "unlimited", d.Limit)
			require.Empty(t, d.Message)
		}
	})

	t.Run("below ceiling allows", func(t *testing.T) {
		d := Check(models.CeilingOf(2), ResourceGates, 1)
		require.True(t, d.Allowed)
		require.NoError(t, d.Err())
	})

	t.Run("at ceiling vetoes", func(t *testing.T) {
		d := Check(models.CeilingOf(2), ResourceGates, 2)
		require.False(t, d.Allowed)
		require.Equal(t, "2", d.Limit)
		require.Contains(t, d.Message, "at most 2 gates")
	})

	t.Run("above ceiling vetoes", func(t *testing.T) {
		d := Check(models.CeilingOf(2), ResourceStaff, 5)
		require.False(t, d.Allowed)
	})

	t.Run("zero ceiling allows nothing", func(t *testing.T) {
		d := Check(models.CeilingOf(0), ResourceStudents, 0)
		require.False(t, d.Allowed)
	})

	t.Run("veto error wraps sentinel", func(t *testing.T) {
		d := Check(models.CeilingOf(1), ResourceStudents, 1)
		err := d.Err()
		require.ErrorIs(t, err, ErrLimitExceeded)
		require.Contains(t, err.Error(), "students")
	})
}

func TestForClass(t *testing.T) {
	org := &models.Organization{
		MaxStudents: models.CeilingOf(100),
		MaxStaff:    models.CeilingOf(10),
		MaxGates:    models.UnlimitedCeiling(),
	}

	require.Equal(t, 100, ForClass(org, ResourceStudents).Limit())
	require.Equal(t, 10, ForClass(org, ResourceStaff).Limit())
	require.True(t, ForClass(org, ResourceGates).Unlimited())

	// Unknown classes fall back to the zero ceiling.
	require.False(t, ForClass(org, ResourceClass("buses")).Unlimited())
	require.Equal(t, 0, ForClass(org, ResourceClass("buses")).Limit())
}
