package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
)

// DismissalStore implements store.DismissalStore using PostgreSQL.
// Records are append-and-advance only; Update refuses to touch a row
// that has already reached a terminal status.
type DismissalStore struct {
	pool *pgxpool.Pool
}

// NewDismissalStore creates a new PostgreSQL-backed dismissal store.
func NewDismissalStore(pool *pgxpool.Pool) *DismissalStore {
	return &DismissalStore{
		pool: pool,
	}
}

const dismissalColumns = `
	dismissal_id, student_id, guardian_id, org_id, gate_id, scanned_by_id,
	status, scanned_at, called_at, completed_at, confirmed_at, cancelled_at
`

// Create inserts a new dismissal record.
func (s *DismissalStore) Create(ctx context.Context, d *models.Dismissal) error {
	query := `
		INSERT INTO dismissals (
			dismissal_id, student_id, guardian_id, org_id, gate_id, scanned_by_id,
			status, scanned_at, called_at, completed_at, confirmed_at, cancelled_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := s.pool.Exec(ctx, query,
		d.DismissalID,
		d.StudentID,
		d.GuardianID,
		d.OrgID,
		d.GateID,
		d.ScannedByID,
		d.Status,
		d.ScannedAt,
		d.CalledAt,
		d.CompletedAt,
		d.ConfirmedAt,
		d.CancelledAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDismissalAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return store.ErrStudentNotFound
		}
		return fmt.Errorf("failed to create dismissal: %w", mapPostgresError(err))
	}

	return nil
}

// Get retrieves a dismissal by ID.
func (s *DismissalStore) Get(ctx context.Context, dismissalID uuid.UUID) (*models.Dismissal, error) {
	query := `SELECT ` + dismissalColumns + ` FROM dismissals WHERE dismissal_id = $1`

	d, err := scanDismissal(s.pool.QueryRow(ctx, query, dismissalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrDismissalNotFound
		}
		return nil, fmt.Errorf("failed to get dismissal: %w", mapPostgresError(err))
	}

	return d, nil
}

// Update persists a lifecycle transition. The WHERE clause excludes
// terminal rows, so a concurrent confirm or cancel wins and the late
// writer sees ErrDismissalImmutable.
func (s *DismissalStore) Update(ctx context.Context, d *models.Dismissal) error {
	query := `
		UPDATE dismissals SET
			status = $2,
			called_at = $3,
			completed_at = $4,
			confirmed_at = $5,
			cancelled_at = $6
		WHERE dismissal_id = $1
		  AND status NOT IN ('confirmed', 'cancelled')
	`

	result, err := s.pool.Exec(ctx, query,
		d.DismissalID,
		d.Status,
		d.CalledAt,
		d.CompletedAt,
		d.ConfirmedAt,
		d.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update dismissal: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		var status models.DismissalStatus
		err := s.pool.QueryRow(ctx,
			`SELECT status FROM dismissals WHERE dismissal_id = $1`, d.DismissalID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrDismissalNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check dismissal: %w", mapPostgresError(err))
		}
		return store.ErrDismissalImmutable
	}

	return nil
}

// ActiveByStudent returns the most recent non-terminal dismissal for the
// student.
func (s *DismissalStore) ActiveByStudent(ctx context.Context, studentID uuid.UUID) (*models.Dismissal, error) {
	query := `
		SELECT ` + dismissalColumns + `
		FROM dismissals
		WHERE student_id = $1
		  AND status NOT IN ('confirmed', 'cancelled')
		ORDER BY scanned_at DESC
		LIMIT 1
	`

	d, err := scanDismissal(s.pool.QueryRow(ctx, query, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrDismissalNotFound
		}
		return nil, fmt.Errorf("failed to get active dismissal: %w", mapPostgresError(err))
	}

	return d, nil
}

// ListActiveByOrg returns all non-terminal dismissals of the organization,
// newest first.
func (s *DismissalStore) ListActiveByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Dismissal, error) {
	query := `
		SELECT ` + dismissalColumns + `
		FROM dismissals
		WHERE org_id = $1
		  AND status NOT IN ('confirmed', 'cancelled')
		ORDER BY scanned_at DESC
	`

	return s.queryDismissals(ctx, query, orgID)
}

// ListActiveByGuardian returns the guardian's own non-terminal dismissals,
// newest first.
func (s *DismissalStore) ListActiveByGuardian(ctx context.Context, guardianID uuid.UUID) ([]*models.Dismissal, error) {
	query := `
		SELECT ` + dismissalColumns + `
		FROM dismissals
		WHERE guardian_id = $1
		  AND status NOT IN ('confirmed', 'cancelled')
		ORDER BY scanned_at DESC
	`

	return s.queryDismissals(ctx, query, guardianID)
}

func (s *DismissalStore) queryDismissals(ctx context.Context, query string, args ...any) ([]*models.Dismissal, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dismissals: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var dismissals []*models.Dismissal
	for rows.Next() {
		d, err := scanDismissal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dismissal: %w", err)
		}
		dismissals = append(dismissals, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dismissals: %w", err)
	}

	return dismissals, nil
}

func scanDismissal(row pgx.Row) (*models.Dismissal, error) {
	var d models.Dismissal
	err := row.Scan(
		&d.DismissalID,
		&d.StudentID,
		&d.GuardianID,
		&d.OrgID,
		&d.GateID,
		&d.ScannedByID,
		&d.Status,
		&d.ScannedAt,
		&d.CalledAt,
		&d.CompletedAt,
		&d.ConfirmedAt,
		&d.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
