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

// StudentStore implements store.StudentStore using PostgreSQL.
type StudentStore struct {
	pool *pgxpool.Pool
}

// NewStudentStore creates a new PostgreSQL-backed student store.
func NewStudentStore(pool *pgxpool.Pool) *StudentStore {
	return &StudentStore{
		pool: pool,
	}
}

const studentColumns = `
	student_id, org_id, guardian_id, class_id, name, credential_id,
	created_at, updated_at
`

// Create creates a new student in the database.
func (s *StudentStore) Create(ctx context.Context, student *models.Student) error {
	query := `
		INSERT INTO students (
			student_id, org_id, guardian_id, class_id, name, credential_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := s.pool.Exec(ctx, query,
		student.StudentID,
		student.OrgID,
		student.GuardianID,
		student.ClassID,
		student.Name,
		student.CredentialID,
		student.CreatedAt,
		student.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrStudentAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return store.ErrOrganizationNotFound
		}
		return fmt.Errorf("failed to create student: %w", mapPostgresError(err))
	}

	return nil
}

// Get retrieves a student by ID.
func (s *StudentStore) Get(ctx context.Context, studentID uuid.UUID) (*models.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE student_id = $1`

	student, err := scanStudent(s.pool.QueryRow(ctx, query, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", mapPostgresError(err))
	}

	return student, nil
}

// Update updates an existing student.
func (s *StudentStore) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now()

	query := `
		UPDATE students SET
			guardian_id = $2,
			class_id = $3,
			name = $4,
			credential_id = $5,
			updated_at = $6
		WHERE student_id = $1
	`

	result, err := s.pool.Exec(ctx, query,
		student.StudentID,
		student.GuardianID,
		student.ClassID,
		student.Name,
		student.CredentialID,
		student.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update student: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrStudentNotFound
	}

	return nil
}

// ListByGuardian returns all students owned by the guardian principal.
func (s *StudentStore) ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]*models.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE guardian_id = $1
		ORDER BY created_at
	`

	return s.queryStudents(ctx, query, guardianID)
}

// ListByCredential resolves a scanned credential to students: individually
// assigned credentials plus students inheriting the guardian's credential.
func (s *StudentStore) ListByCredential(ctx context.Context, credentialID string) ([]*models.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE credential_id = $1
		   OR guardian_id = (
			SELECT principal_id FROM principals
			WHERE credential_id = $1 AND suspended_at IS NULL
		   )
		ORDER BY created_at
	`

	students, err := s.queryStudents(ctx, query, credentialID)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, store.ErrCredentialNotFound
	}

	return students, nil
}

// CountByOrg returns the number of students in the organization.
func (s *StudentStore) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students WHERE org_id = $1`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count students: %w", mapPostgresError(err))
	}

	return count, nil
}

func (s *StudentStore) queryStudents(ctx context.Context, query string, args ...any) ([]*models.Student, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var students []*models.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating students: %w", err)
	}

	return students, nil
}

func scanStudent(row pgx.Row) (*models.Student, error) {
	var student models.Student
	err := row.Scan(
		&student.StudentID,
		&student.OrgID,
		&student.GuardianID,
		&student.ClassID,
		&student.Name,
		&student.CredentialID,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &student, nil
}
