package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/models"
)

// DismissalStore defines the interface for dismissal storage operations.
// Dismissal records are append-and-advance only: they are never deleted, and
// once confirmed or cancelled they are immutable.
type DismissalStore interface {
	// Create inserts a new dismissal record.
	// Returns ErrDismissalAlreadyExists if the ID is already taken.
	Create(ctx context.Context, d *models.Dismissal) error

	// Get retrieves a dismissal by ID.
	// Returns ErrDismissalNotFound if the dismissal doesn't exist.
	Get(ctx context.Context, dismissalID uuid.UUID) (*models.Dismissal, error)

	// Update persists a lifecycle transition.
	// Returns ErrDismissalImmutable when the stored record is terminal.
	Update(ctx context.Context, d *models.Dismissal) error

	// ActiveByStudent returns the most recently created non-terminal
	// dismissal for the student, or ErrDismissalNotFound. When duplicates
	// exist concurrently (no scan de-duplication window), first match wins.
	ActiveByStudent(ctx context.Context, studentID uuid.UUID) (*models.Dismissal, error)

	// ListActiveByOrg returns all non-terminal dismissals of the
	// organization, newest first. Used by the pull reconciliation query.
	ListActiveByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Dismissal, error)

	// ListActiveByGuardian returns the guardian's own non-terminal
	// dismissals, newest first.
	ListActiveByGuardian(ctx context.Context, guardianID uuid.UUID) ([]*models.Dismissal, error)
}
