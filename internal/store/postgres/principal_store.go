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

// PrincipalStore implements store.PrincipalStore using PostgreSQL.
type PrincipalStore struct {
	pool *pgxpool.Pool
}

// NewPrincipalStore creates a new PostgreSQL-backed principal store.
func NewPrincipalStore(pool *pgxpool.Pool) *PrincipalStore {
	return &PrincipalStore{
		pool: pool,
	}
}

const principalColumns = `
	principal_id, org_id, role, name, email, credential_id,
	created_at, updated_at, suspended_at, last_seen_at
`

// Create creates a new principal in the database.
func (s *PrincipalStore) Create(ctx context.Context, principal *models.Principal) error {
	query := `
		INSERT INTO principals (
			principal_id, org_id, role, name, email, credential_id,
			created_at, updated_at, suspended_at, last_seen_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		principal.PrincipalID,
		principal.OrgID,
		principal.Role,
		principal.Name,
		principal.Email,
		principal.CredentialID,
		principal.CreatedAt,
		principal.UpdatedAt,
		principal.SuspendedAt,
		principal.LastSeenAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrPrincipalAlreadyExists
		}
		return fmt.Errorf("failed to create principal: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("principal_id", principal.PrincipalID.String()).
		Str("role", string(principal.Role)).
		Msg("Created principal")

	return nil
}

// Get retrieves a principal by ID.
func (s *PrincipalStore) Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE principal_id = $1`

	principal, err := scanPrincipal(s.pool.QueryRow(ctx, query, principalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to get principal: %w", mapPostgresError(err))
	}

	return principal, nil
}

// GetByCredential retrieves a non-suspended guardian principal by credential.
func (s *PrincipalStore) GetByCredential(ctx context.Context, credentialID string) (*models.Principal, error) {
	query := `
		SELECT ` + principalColumns + `
		FROM principals
		WHERE credential_id = $1 AND suspended_at IS NULL
	`

	principal, err := scanPrincipal(s.pool.QueryRow(ctx, query, credentialID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get principal by credential: %w", mapPostgresError(err))
	}

	return principal, nil
}

// Update updates an existing principal.
func (s *PrincipalStore) Update(ctx context.Context, principal *models.Principal) error {
	principal.UpdatedAt = time.Now()

	query := `
		UPDATE principals SET
			role = $2,
			name = $3,
			email = $4,
			credential_id = $5,
			updated_at = $6,
			suspended_at = $7,
			last_seen_at = $8
		WHERE principal_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		principal.PrincipalID,
		principal.Role,
		principal.Name,
		principal.Email,
		principal.CredentialID,
		principal.UpdatedAt,
		principal.SuspendedAt,
		principal.LastSeenAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update principal: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrPrincipalNotFound
	}

	return nil
}

// Suspend marks a principal suspended.
func (s *PrincipalStore) Suspend(ctx context.Context, principalID uuid.UUID) error {
	query := `
		UPDATE principals
		SET suspended_at = now(), updated_at = now()
		WHERE principal_id = $1
	`

	result, err := s.pool.Exec(ctx, query, principalID)
	if err != nil {
		return fmt.Errorf("failed to suspend principal: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrPrincipalNotFound
	}

	return nil
}

// ListByOrg returns all principals of the organization, optionally filtered
// by role.
func (s *PrincipalStore) ListByOrg(ctx context.Context, orgID uuid.UUID, role *models.Role) ([]*models.Principal, error) {
	query := `
		SELECT ` + principalColumns + `
		FROM principals
		WHERE org_id = $1 AND ($2::text IS NULL OR role = $2)
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, orgID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var principals []*models.Principal
	for rows.Next() {
		principal, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan principal: %w", err)
		}
		principals = append(principals, principal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating principals: %w", err)
	}

	return principals, nil
}

// CountStaffByOrg returns the number of non-suspended staff principals in the
// organization.
func (s *PrincipalStore) CountStaffByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM principals
		WHERE org_id = $1
		  AND suspended_at IS NULL
		  AND role IN ('org-admin', 'teacher', 'security')
	`

	var count int
	if err := s.pool.QueryRow(ctx, query, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count staff: %w", mapPostgresError(err))
	}

	return count, nil
}

func scanPrincipal(row pgx.Row) (*models.Principal, error) {
	var principal models.Principal
	err := row.Scan(
		&principal.PrincipalID,
		&principal.OrgID,
		&principal.Role,
		&principal.Name,
		&principal.Email,
		&principal.CredentialID,
		&principal.CreatedAt,
		&principal.UpdatedAt,
		&principal.SuspendedAt,
		&principal.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	return &principal, nil
}
