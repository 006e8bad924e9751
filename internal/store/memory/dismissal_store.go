package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
)

// DismissalStore implements store.DismissalStore using in-memory storage.
// Records are append-and-advance only; nothing is ever deleted.
type DismissalStore struct {
	mu sync.RWMutex

	dismissals map[uuid.UUID]*models.Dismissal // dismissal_id -> Dismissal
	byStudent  map[uuid.UUID][]uuid.UUID       // student_id -> dismissal IDs, creation order
}

// NewDismissalStore creates a new in-memory dismissal store.
func NewDismissalStore() *DismissalStore {
	return &DismissalStore{
		dismissals: make(map[uuid.UUID]*models.Dismissal),
		byStudent:  make(map[uuid.UUID][]uuid.UUID),
	}
}

// Create inserts a new dismissal record.
func (s *DismissalStore) Create(ctx context.Context, d *models.Dismissal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.dismissals[d.DismissalID]; exists {
		return store.ErrDismissalAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *d
	s.dismissals[d.DismissalID] = &clone
	s.byStudent[d.StudentID] = append(s.byStudent[d.StudentID], d.DismissalID)

	return nil
}

// Get retrieves a dismissal by ID.
func (s *DismissalStore) Get(ctx context.Context, dismissalID uuid.UUID) (*models.Dismissal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.dismissals[dismissalID]
	if !exists {
		return nil, store.ErrDismissalNotFound
	}

	clone := *d
	return &clone, nil
}

// Update persists a lifecycle transition. Terminal records are immutable.
func (s *DismissalStore) Update(ctx context.Context, d *models.Dismissal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.dismissals[d.DismissalID]
	if !exists {
		return store.ErrDismissalNotFound
	}
	if existing.Terminal() {
		return store.ErrDismissalImmutable
	}

	clone := *d
	s.dismissals[d.DismissalID] = &clone

	return nil
}

// ActiveByStudent returns the most recently created non-terminal dismissal
// for the student. First match wins when duplicates exist.
func (s *DismissalStore) ActiveByStudent(ctx context.Context, studentID uuid.UUID) (*models.Dismissal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byStudent[studentID]
	for i := len(ids) - 1; i >= 0; i-- {
		d := s.dismissals[ids[i]]
		if d != nil && !d.Terminal() {
			clone := *d
			return &clone, nil
		}
	}

	return nil, store.ErrDismissalNotFound
}

// ListActiveByOrg returns all non-terminal dismissals of the organization,
// newest first.
func (s *DismissalStore) ListActiveByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Dismissal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Dismissal
	for _, d := range s.dismissals {
		if d.OrgID == orgID && !d.Terminal() {
			clone := *d
			result = append(result, &clone)
		}
	}

	sortNewestFirst(result)
	return result, nil
}

// ListActiveByGuardian returns the guardian's non-terminal dismissals,
// newest first.
func (s *DismissalStore) ListActiveByGuardian(ctx context.Context, guardianID uuid.UUID) ([]*models.Dismissal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Dismissal
	for _, d := range s.dismissals {
		if d.GuardianID == guardianID && !d.Terminal() {
			clone := *d
			result = append(result, &clone)
		}
	}

	sortNewestFirst(result)
	return result, nil
}

func sortNewestFirst(ds []*models.Dismissal) {
	sort.Slice(ds, func(i, j int) bool {
		return ds[i].ScannedAt.After(ds[j].ScannedAt)
	})
}
