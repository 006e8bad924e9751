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

// ClassStore implements store.ClassStore using PostgreSQL. Teacher
// assignment lives in the class_teachers join table and is replaced
// wholesale on Update.
type ClassStore struct {
	pool *pgxpool.Pool
}

// NewClassStore creates a new PostgreSQL-backed class store.
func NewClassStore(pool *pgxpool.Pool) *ClassStore {
	return &ClassStore{
		pool: pool,
	}
}

// Create creates a new class and its teacher assignments.
func (s *ClassStore) Create(ctx context.Context, class *models.Class) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapPostgresError(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		INSERT INTO classes (
			class_id, org_id, grade, section, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err = tx.Exec(ctx, query,
		class.ClassID,
		class.OrgID,
		class.Grade,
		class.Section,
		class.CreatedAt,
		class.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrClassAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return store.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to create class: %w", mapPostgresError(err))
	}

	if err := replaceTeachers(ctx, tx, class.ClassID, class.TeacherIDs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Get retrieves a class by ID, including its teacher assignments.
func (s *ClassStore) Get(ctx context.Context, classID uuid.UUID) (*models.Class, error) {
	query := `
		SELECT class_id, org_id, grade, section, created_at, updated_at
		FROM classes WHERE class_id = $1
	`

	var class models.Class
	err := s.pool.QueryRow(ctx, query, classID).Scan(
		&class.ClassID,
		&class.OrgID,
		&class.Grade,
		&class.Section,
		&class.CreatedAt,
		&class.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class: %w", mapPostgresError(err))
	}

	class.TeacherIDs, err = s.teacherIDs(ctx, classID)
	if err != nil {
		return nil, err
	}

	return &class, nil
}

// Update updates a class and replaces its teacher assignments.
func (s *ClassStore) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapPostgresError(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		UPDATE classes SET
			grade = $2,
			section = $3,
			updated_at = $4
		WHERE class_id = $1
	`

	result, err := tx.Exec(ctx, query,
		class.ClassID,
		class.Grade,
		class.Section,
		class.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update class: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrClassNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM class_teachers WHERE class_id = $1`, class.ClassID); err != nil {
		return fmt.Errorf("failed to clear teacher assignments: %w", mapPostgresError(err))
	}

	if err := replaceTeachers(ctx, tx, class.ClassID, class.TeacherIDs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListByOrg returns all classes of the organization.
func (s *ClassStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Class, error) {
	query := `
		SELECT class_id, org_id, grade, section, created_at, updated_at
		FROM classes
		WHERE org_id = $1
		ORDER BY grade, section
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var classes []*models.Class
	for rows.Next() {
		var class models.Class
		err := rows.Scan(
			&class.ClassID,
			&class.OrgID,
			&class.Grade,
			&class.Section,
			&class.CreatedAt,
			&class.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, &class)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating classes: %w", err)
	}

	for _, class := range classes {
		class.TeacherIDs, err = s.teacherIDs(ctx, class.ClassID)
		if err != nil {
			return nil, err
		}
	}

	return classes, nil
}

func (s *ClassStore) teacherIDs(ctx context.Context, classID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT principal_id FROM class_teachers WHERE class_id = $1 ORDER BY principal_id`, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to query teacher assignments: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan teacher assignment: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func replaceTeachers(ctx context.Context, tx pgx.Tx, classID uuid.UUID, teacherIDs []uuid.UUID) error {
	for _, teacherID := range teacherIDs {
		_, err := tx.Exec(ctx,
			`INSERT INTO class_teachers (class_id, principal_id) VALUES ($1, $2)`,
			classID, teacherID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrPrincipalNotFound
			}
			return fmt.Errorf("failed to assign teacher: %w", mapPostgresError(err))
		}
	}
	return nil
}
