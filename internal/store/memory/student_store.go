package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
)

// StudentStore implements store.StudentStore using in-memory storage.
// Credential resolution needs the guardian's credential for the inherited
// case, so the store holds a reference to the principal store.
type StudentStore struct {
	mu sync.RWMutex

	students   map[uuid.UUID]*models.Student // student_id -> Student
	principals store.PrincipalStore
}

// NewStudentStore creates a new in-memory student store.
func NewStudentStore(principals store.PrincipalStore) *StudentStore {
	return &StudentStore{
		students:   make(map[uuid.UUID]*models.Student),
		principals: principals,
	}
}

// Create creates a new student in memory.
func (s *StudentStore) Create(ctx context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.students[student.StudentID]; exists {
		return store.ErrStudentAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *student
	s.students[student.StudentID] = &clone

	return nil
}

// Get retrieves a student by ID.
func (s *StudentStore) Get(ctx context.Context, studentID uuid.UUID) (*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	student, exists := s.students[studentID]
	if !exists {
		return nil, store.ErrStudentNotFound
	}

	clone := *student
	return &clone, nil
}

// Update updates an existing student.
func (s *StudentStore) Update(ctx context.Context, student *models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.students[student.StudentID]; !exists {
		return store.ErrStudentNotFound
	}

	student.UpdatedAt = time.Now()

	clone := *student
	s.students[student.StudentID] = &clone

	return nil
}

// ListByGuardian returns all students owned by the guardian principal.
func (s *StudentStore) ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]*models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Student
	for _, st := range s.students {
		if st.GuardianID == guardianID {
			clone := *st
			result = append(result, &clone)
		}
	}

	return result, nil
}

// ListByCredential resolves a scanned credential to students: individually
// assigned credentials first, then students inheriting the guardian's.
func (s *StudentStore) ListByCredential(ctx context.Context, credentialID string) ([]*models.Student, error) {
	s.mu.RLock()
	var result []*models.Student
	seen := make(map[uuid.UUID]bool)
	for _, st := range s.students {
		if st.CredentialID != nil && *st.CredentialID == credentialID {
			clone := *st
			result = append(result, &clone)
			seen[st.StudentID] = true
		}
	}
	s.mu.RUnlock()

	guardian, err := s.principals.GetByCredential(ctx, credentialID)
	if err == nil {
		s.mu.RLock()
		for _, st := range s.students {
			if st.GuardianID == guardian.PrincipalID && !seen[st.StudentID] {
				clone := *st
				result = append(result, &clone)
			}
		}
		s.mu.RUnlock()
	}

	if len(result) == 0 {
		return nil, store.ErrCredentialNotFound
	}

	return result, nil
}

// CountByOrg returns the number of students in the organization.
func (s *StudentStore) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, st := range s.students {
		if st.OrgID == orgID {
			count++
		}
	}

	return count, nil
}
