package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/models"
)

// StudentStore defines the interface for student storage operations.
type StudentStore interface {
	// Create creates a new student.
	// Returns ErrStudentAlreadyExists if the ID is already taken.
	Create(ctx context.Context, student *models.Student) error

	// Get retrieves a student by ID.
	// Returns ErrStudentNotFound if the student doesn't exist.
	Get(ctx context.Context, studentID uuid.UUID) (*models.Student, error)

	// Update updates an existing student.
	// Returns ErrStudentNotFound if the student doesn't exist.
	Update(ctx context.Context, student *models.Student) error

	// ListByGuardian returns all students owned by the guardian principal.
	ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]*models.Student, error)

	// ListByCredential resolves a scanned credential to students: every
	// student whose own credential matches, plus every student of a guardian
	// whose credential matches (inherited credential). Returns
	// ErrCredentialNotFound when the credential resolves to no students.
	ListByCredential(ctx context.Context, credentialID string) ([]*models.Student, error)

	// CountByOrg returns the number of students in the organization.
	CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error)
}

// ClassStore defines the interface for class storage operations.
type ClassStore interface {
	// Create creates a new class.
	Create(ctx context.Context, class *models.Class) error

	// Get retrieves a class by ID.
	// Returns ErrClassNotFound if the class doesn't exist.
	Get(ctx context.Context, classID uuid.UUID) (*models.Class, error)

	// Update updates an existing class, including teacher assignment.
	Update(ctx context.Context, class *models.Class) error

	// ListByOrg returns all classes of the organization.
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Class, error)
}

// GateStore defines the interface for gate storage operations.
type GateStore interface {
	// Create creates a new gate.
	Create(ctx context.Context, gate *models.Gate) error

	// Get retrieves a gate by ID.
	// Returns ErrGateNotFound if the gate doesn't exist.
	Get(ctx context.Context, gateID uuid.UUID) (*models.Gate, error)

	// Update updates an existing gate.
	Update(ctx context.Context, gate *models.Gate) error

	// ListByOrg returns all gates of the organization.
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Gate, error)

	// CountByOrg returns the number of gates in the organization.
	CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error)
}
