package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
)

// OrganizationStore implements store.OrganizationStore using PostgreSQL.
type OrganizationStore struct {
	pool *pgxpool.Pool
}

// NewOrganizationStore creates a new PostgreSQL-backed organization store.
// It shares the connection pool with the other stores.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{
		pool: pool,
	}
}

// Create creates a new organization in the database.
func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (
			org_id, name, active, subscription_status, trial_ends_at,
			subscription_ends_at, max_students, max_staff, max_gates,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := s.pool.Exec(ctx, query,
		org.OrgID,
		org.Name,
		org.Active,
		org.SubscriptionStatus,
		org.TrialEndsAt,
		org.SubscriptionEndsAt,
		org.MaxStudents.String(),
		org.MaxStaff.String(),
		org.MaxGates.String(),
		org.CreatedAt,
		org.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrOrganizationAlreadyExists
		}
		return fmt.Errorf("failed to create organization: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("org_id", org.OrgID.String()).
		Str("name", org.Name).
		Msg("Created organization")

	return nil
}

// Get retrieves an organization by ID.
func (s *OrganizationStore) Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	query := `
		SELECT org_id, name, active, subscription_status, trial_ends_at,
		       subscription_ends_at, max_students, max_staff, max_gates,
		       created_at, updated_at
		FROM organizations
		WHERE org_id = $1
	`

	org, err := scanOrganization(s.pool.QueryRow(ctx, query, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", mapPostgresError(err))
	}

	return org, nil
}

// Update updates an existing organization.
func (s *OrganizationStore) Update(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now()

	query := `
		UPDATE organizations SET
			name = $2,
			active = $3,
			subscription_status = $4,
			trial_ends_at = $5,
			subscription_ends_at = $6,
			max_students = $7,
			max_staff = $8,
			max_gates = $9,
			updated_at = $10
		WHERE org_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		org.OrgID,
		org.Name,
		org.Active,
		org.SubscriptionStatus,
		org.TrialEndsAt,
		org.SubscriptionEndsAt,
		org.MaxStudents.String(),
		org.MaxStaff.String(),
		org.MaxGates.String(),
		org.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update organization: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrOrganizationNotFound
	}

	return nil
}

// List returns all organizations, newest first.
func (s *OrganizationStore) List(ctx context.Context) ([]*models.Organization, error) {
	query := `
		SELECT org_id, name, active, subscription_status, trial_ends_at,
		       subscription_ends_at, max_students, max_staff, max_gates,
		       created_at, updated_at
		FROM organizations
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organizations: %w", err)
	}

	return orgs, nil
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	var maxStudents, maxStaff, maxGates string

	err := row.Scan(
		&org.OrgID,
		&org.Name,
		&org.Active,
		&org.SubscriptionStatus,
		&org.TrialEndsAt,
		&org.SubscriptionEndsAt,
		&maxStudents,
		&maxStaff,
		&maxGates,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if org.MaxStudents, err = models.ParseCeiling(maxStudents); err != nil {
		return nil, err
	}
	if org.MaxStaff, err = models.ParseCeiling(maxStaff); err != nil {
		return nil, err
	}
	if org.MaxGates, err = models.ParseCeiling(maxGates); err != nil {
		return nil, err
	}

	return &org, nil
}
