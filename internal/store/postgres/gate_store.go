package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
)

// GateStore implements store.GateStore using PostgreSQL.
type GateStore struct {
	pool *pgxpool.Pool
}

// NewGateStore creates a new PostgreSQL-backed gate store.
func NewGateStore(pool *pgxpool.Pool) *GateStore {
	return &GateStore{
		pool: pool,
	}
}

// Create creates a new gate in the database.
func (s *GateStore) Create(ctx context.Context, gate *models.Gate) error {
	query := `
		INSERT INTO gates (
			gate_id, org_id, name, active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.pool.Exec(ctx, query,
		gate.GateID,
		gate.OrgID,
		gate.Name,
		gate.Active,
		gate.CreatedAt,
		gate.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrGateAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return store.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to create gate: %w", mapPostgresError(err))
	}

	return nil
}

// Get retrieves a gate by ID.
func (s *GateStore) Get(ctx context.Context, gateID uuid.UUID) (*models.Gate, error) {
	query := `
		SELECT gate_id, org_id, name, active, created_at, updated_at
		FROM gates WHERE gate_id = $1
	`

	var gate models.Gate
	err := s.pool.QueryRow(ctx, query, gateID).Scan(
		&gate.GateID,
		&gate.OrgID,
		&gate.Name,
		&gate.Active,
		&gate.CreatedAt,
		&gate.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrGateNotFound
		}
		return nil, fmt.Errorf("failed to get gate: %w", mapPostgresError(err))
	}

	return &gate, nil
}

// Update updates an existing gate.
func (s *GateStore) Update(ctx context.Context, gate *models.Gate) error {
	gate.UpdatedAt = time.Now()

	query := `
		UPDATE gates SET
			name = $2,
			active = $3,
			updated_at = $4
		WHERE gate_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		gate.GateID,
		gate.Name,
		gate.Active,
		gate.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update gate: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrGateNotFound
	}

	return nil
}

// ListByOrg returns all gates of the organization.
func (s *GateStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Gate, error) {
	query := `
		SELECT gate_id, org_id, name, active, created_at, updated_at
		FROM gates
		WHERE org_id = $1
		ORDER BY name
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gates: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var gates []*models.Gate
	for rows.Next() {
		var gate models.Gate
		err := rows.Scan(
			&gate.GateID,
			&gate.OrgID,
			&gate.Name,
			&gate.Active,
			&gate.CreatedAt,
			&gate.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gate: %w", err)
		}
		gates = append(gates, &gate)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gates: %w", err)
	}

	return gates, nil
}

// CountByOrg returns the number of gates in the organization.
func (s *GateStore) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM gates WHERE org_id = $1`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count gates: %w", mapPostgresError(err))
	}

	return count, nil
}
