package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/models"
)

// PrincipalStore defines the interface for principal storage operations.
type PrincipalStore interface {
	// Create creates a new principal.
	// Returns ErrPrincipalAlreadyExists on duplicate ID or credential.
	Create(ctx context.Context, principal *models.Principal) error

	// Get retrieves a principal by ID.
	// Returns ErrPrincipalNotFound if the principal doesn't exist.
	Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error)

	// GetByCredential retrieves a non-suspended guardian principal by pickup
	// credential. Returns ErrCredentialNotFound when no guardian carries it.
	GetByCredential(ctx context.Context, credentialID string) (*models.Principal, error)

	// Update updates an existing principal.
	// Returns ErrPrincipalNotFound if the principal doesn't exist.
	Update(ctx context.Context, principal *models.Principal) error

	// Suspend marks a principal suspended, blocking all action.
	Suspend(ctx context.Context, principalID uuid.UUID) error

	// ListByOrg returns all principals of the organization, optionally
	// filtered by role.
	ListByOrg(ctx context.Context, orgID uuid.UUID, role *models.Role) ([]*models.Principal, error)

	// CountStaffByOrg returns the number of non-suspended staff principals
	// (org-admin, teacher, security) in the organization. Used by the usage
	// limiter, which re-reads the count immediately before the guarded write.
	CountStaffByOrg(ctx context.Context, orgID uuid.UUID) (int, error)
}
