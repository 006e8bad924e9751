package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
)

// PrincipalStore implements store.PrincipalStore using in-memory storage.
type PrincipalStore struct {
	mu sync.RWMutex

	principals             map[uuid.UUID]*models.Principal // principal_id -> Principal
	principalsByCredential map[string]*models.Principal    // credential_id -> Principal
}

// NewPrincipalStore creates a new in-memory principal store.
func NewPrincipalStore() *PrincipalStore {
	return &PrincipalStore{
		principals:             make(map[uuid.UUID]*models.Principal),
		principalsByCredential: make(map[string]*models.Principal),
	}
}

// Create creates a new principal in memory.
func (s *PrincipalStore) Create(ctx context.Context, principal *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.principals[principal.PrincipalID]; exists {
		return store.ErrPrincipalAlreadyExists
	}

	if principal.CredentialID != nil {
		if _, exists := s.principalsByCredential[*principal.CredentialID]; exists {
			return store.ErrPrincipalAlreadyExists
		}
	}

	// Clone to avoid external modifications
	clone := *principal
	s.principals[principal.PrincipalID] = &clone

	if clone.CredentialID != nil {
		s.principalsByCredential[*clone.CredentialID] = &clone
	}

	return nil
}

// Get retrieves a principal by ID.
func (s *PrincipalStore) Get(ctx context.Context, principalID uuid.UUID) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	principal, exists := s.principals[principalID]
	if !exists {
		return nil, store.ErrPrincipalNotFound
	}

	clone := *principal
	return &clone, nil
}

// GetByCredential retrieves a non-suspended guardian principal by credential.
func (s *PrincipalStore) GetByCredential(ctx context.Context, credentialID string) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	principal, exists := s.principalsByCredential[credentialID]
	if !exists || principal.SuspendedAt != nil {
		return nil, store.ErrCredentialNotFound
	}

	clone := *principal
	return &clone, nil
}

// Update updates an existing principal.
func (s *PrincipalStore) Update(ctx context.Context, principal *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.principals[principal.PrincipalID]
	if !exists {
		return store.ErrPrincipalNotFound
	}

	principal.UpdatedAt = time.Now()

	// Re-index on credential change
	if existing.CredentialID != nil &&
		(principal.CredentialID == nil || *existing.CredentialID != *principal.CredentialID) {
		delete(s.principalsByCredential, *existing.CredentialID)
	}

	clone := *principal
	s.principals[principal.PrincipalID] = &clone

	if clone.CredentialID != nil {
		s.principalsByCredential[*clone.CredentialID] = &clone
	}

	return nil
}

// Suspend marks a principal suspended.
func (s *PrincipalStore) Suspend(ctx context.Context, principalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	principal, exists := s.principals[principalID]
	if !exists {
		return store.ErrPrincipalNotFound
	}

	now := time.Now()
	principal.SuspendedAt = &now
	principal.UpdatedAt = now

	return nil
}

// ListByOrg returns all principals of the organization, optionally filtered
// by role.
func (s *PrincipalStore) ListByOrg(ctx context.Context, orgID uuid.UUID, role *models.Role) ([]*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Principal
	for _, p := range s.principals {
		if p.OrgID == nil || *p.OrgID != orgID {
			continue
		}
		if role != nil && p.Role != *role {
			continue
		}
		clone := *p
		result = append(result, &clone)
	}

	return result, nil
}

// CountStaffByOrg returns the number of non-suspended staff principals in the
// organization.
func (s *PrincipalStore) CountStaffByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.principals {
		if p.OrgID == nil || *p.OrgID != orgID || p.SuspendedAt != nil {
			continue
		}
		switch p.Role {
		case models.RoleOrgAdmin, models.RoleTeacher, models.RoleSecurity:
			count++
		}
	}

	return count, nil
}
