package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
)

// ClassStore implements store.ClassStore using in-memory storage.
type ClassStore struct {
	mu sync.RWMutex

	classes map[uuid.UUID]*models.Class // class_id -> Class
}

// NewClassStore creates a new in-memory class store.
func NewClassStore() *ClassStore {
	return &ClassStore{
		classes: make(map[uuid.UUID]*models.Class),
	}
}

func cloneClass(c *models.Class) *models.Class {
	clone := *c
	clone.TeacherIDs = slices.Clone(c.TeacherIDs)
	return &clone
}

// Create creates a new class in memory.
func (s *ClassStore) Create(ctx context.Context, class *models.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.classes[class.ClassID]; exists {
		return store.ErrClassAlreadyExists
	}

	s.classes[class.ClassID] = cloneClass(class)

	return nil
}

// Get retrieves a class by ID.
func (s *ClassStore) Get(ctx context.Context, classID uuid.UUID) (*models.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	class, exists := s.classes[classID]
	if !exists {
		return nil, store.ErrClassNotFound
	}

	return cloneClass(class), nil
}

// Update updates an existing class, including teacher assignment.
func (s *ClassStore) Update(ctx context.Context, class *models.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.classes[class.ClassID]; !exists {
		return store.ErrClassNotFound
	}

	class.UpdatedAt = time.Now()
	s.classes[class.ClassID] = cloneClass(class)

	return nil
}

// ListByOrg returns all classes of the organization.
func (s *ClassStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Class
	for _, c := range s.classes {
		if c.OrgID == orgID {
			result = append(result, cloneClass(c))
		}
	}

	return result, nil
}

// GateStore implements store.GateStore using in-memory storage.
type GateStore struct {
	mu sync.RWMutex

	gates map[uuid.UUID]*models.Gate // gate_id -> Gate
}

// NewGateStore creates a new in-memory gate store.
func NewGateStore() *GateStore {
	return &GateStore{
		gates: make(map[uuid.UUID]*models.Gate),
	}
}

// Create creates a new gate in memory.
func (s *GateStore) Create(ctx context.Context, gate *models.Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.gates[gate.GateID]; exists {
		return store.ErrGateAlreadyExists
	}

	clone := *gate
	s.gates[gate.GateID] = &clone

	return nil
}

// Get retrieves a gate by ID.
func (s *GateStore) Get(ctx context.Context, gateID uuid.UUID) (*models.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gate, exists := s.gates[gateID]
	if !exists {
		return nil, store.ErrGateNotFound
	}

	clone := *gate
	return &clone, nil
}

// Update updates an existing gate.
func (s *GateStore) Update(ctx context.Context, gate *models.Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.gates[gate.GateID]; !exists {
		return store.ErrGateNotFound
	}

	gate.UpdatedAt = time.Now()

	clone := *gate
	s.gates[gate.GateID] = &clone

	return nil
}

// ListByOrg returns all gates of the organization.
func (s *GateStore) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Gate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Gate
	for _, g := range s.gates {
		if g.OrgID == orgID {
			clone := *g
			result = append(result, &clone)
		}
	}

	return result, nil
}

// CountByOrg returns the number of gates in the organization.
func (s *GateStore) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, g := range s.gates {
		if g.OrgID == orgID {
			count++
		}
	}

	return count, nil
}
