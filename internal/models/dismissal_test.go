package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	t.Run("forward steps", func(t *testing.T) {
		steps := []struct {
			from   DismissalStatus
			to     DismissalStatus
			expect bool
		}{
			{DismissalRequested, DismissalReady, true},
			{DismissalReady, DismissalCompleted, true},
			{DismissalCompleted, DismissalConfirmed, true},
			{DismissalRequested, DismissalCompleted, false},
			{DismissalRequested, DismissalConfirmed, false},
			{DismissalReady, DismissalConfirmed, false},
		}

		for _, s := range steps {
			d := &Dismissal{Status: s.from}
			require.Equal(t, s.expect, d.CanTransition(s.to), "%s to %s", s.from, s.to)
		}
	})

	t.Run("no backward steps", func(t *testing.T) {
		d := &Dismissal{Status: DismissalCompleted}
		require.False(t, d.CanTransition(DismissalReady))
		require.False(t, d.CanTransition(DismissalRequested))
	})

	t.Run("self transition rejected", func(t *testing.T) {
		d := &Dismissal{Status: DismissalReady}
		require.False(t, d.CanTransition(DismissalReady))
	})

	t.Run("cancel from requested and ready only", func(t *testing.T) {
		require.True(t, (&Dismissal{Status: DismissalRequested}).CanTransition(DismissalCancelled))
		require.True(t, (&Dismissal{Status: DismissalReady}).CanTransition(DismissalCancelled))
		require.False(t, (&Dismissal{Status: DismissalCompleted}).CanTransition(DismissalCancelled))
	})

	t.Run("terminal states are frozen", func(t *testing.T) {
		for _, status := range []DismissalStatus{DismissalConfirmed, DismissalCancelled} {
			d := &Dismissal{Status: status}
			require.True(t, d.Terminal())
			for _, target := range []DismissalStatus{
				DismissalRequested, DismissalReady, DismissalCompleted,
				DismissalConfirmed, DismissalCancelled,
			} {
				require.False(t, d.CanTransition(target), "%s to %s", status, target)
			}
		}
	})
}

func TestTerminal(t *testing.T) {
	require.False(t, (&Dismissal{Status: DismissalRequested}).Terminal())
	require.False(t, (&Dismissal{Status: DismissalReady}).Terminal())
	require.False(t, (&Dismissal{Status: DismissalCompleted}).Terminal())
	require.True(t, (&Dismissal{Status: DismissalConfirmed}).Terminal())
	require.True(t, (&Dismissal{Status: DismissalCancelled}).Terminal())
}
