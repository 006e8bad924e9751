package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/models"
)

// OrganizationStore defines the interface for organization storage operations.
// Organizations are the tenants of the system; every other entity hangs off
// exactly one of them.
type OrganizationStore interface {
	// Create creates a new organization.
	// Returns ErrOrganizationAlreadyExists if the ID is already taken.
	Create(ctx context.Context, org *models.Organization) error

	// Get retrieves an organization by ID.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)

	// Update updates an existing organization.
	// Returns ErrOrganizationNotFound if the organization doesn't exist.
	Update(ctx context.Context, org *models.Organization) error

	// List returns all organizations, newest first.
	List(ctx context.Context) ([]*models.Organization, error)
}
