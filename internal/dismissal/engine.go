// Package dismissal owns the pickup lifecycle state machine. The engine is
// the only writer of dismissal status; every transition both mutates the
// record and publishes to the notification hub before returning, which gives
// per-dismissal total ordering.
package dismissal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/notify"
	"github.com/gatepass/gatepass/internal/store"
	"github.com/gatepass/gatepass/internal/telemetry"
	"github.com/gatepass/gatepass/internal/tenant"
)

// Sentinel errors for lifecycle operations.
var (
	ErrInvalidTransition    = errors.New("invalid lifecycle transition")
	ErrSubscriptionInactive = errors.New("organization subscription inactive")
	ErrNotGuardian          = errors.New("principal is not the dismissal's guardian")
	ErrRoleNotAllowed       = errors.New("role not allowed to perform this transition")
)

// Engine coordinates dismissal records, tenancy checks and notification
// fan-out.
type Engine struct {
	orgs       store.OrganizationStore
	students   store.StudentStore
	gates      store.GateStore
	dismissals store.DismissalStore
	hub        *notify.Hub

	log     zerolog.Logger
	metrics *telemetry.Metrics

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates a lifecycle engine publishing through hub.
func NewEngine(
	orgs store.OrganizationStore,
	students store.StudentStore,
	gates store.GateStore,
	dismissals store.DismissalStore,
	hub *notify.Hub,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		orgs:       orgs,
		students:   students,
		gates:      gates,
		dismissals: dismissals,
		hub:        hub,
		log:        log,
		metrics:    telemetry.GetMetrics(),
		now:        time.Now,
	}
}

// CreateFromScan handles a credential scan at a gate. A credential linked to
// several students fans out into one dismissal per student, all entering
// ready in the same publish cycle. There is no de-duplication window:
// scanning the same credential twice creates duplicate records. The gate is
// contextual metadata on the record; its active flag never vetoes a scan.
func (e *Engine) CreateFromScan(ctx context.Context, credentialID string, gateID uuid.UUID, tc tenant.Context) ([]*models.Dismissal, error) {
	gate, err := e.gates.Get(ctx, gateID)
	if err != nil {
		return nil, err
	}
	if err := tc.Authorize(gate.OrgID); err != nil {
		return nil, err
	}

	students, err := e.students.ListByCredential(ctx, credentialID)
	if err != nil {
		return nil, err
	}

	// The gate must belong to the credential owner's organization. A
	// mismatch is fatal to the whole scan, never silently filtered.
	for _, st := range students {
		if st.OrgID != gate.OrgID {
			return nil, tenant.ErrCrossTenantAccess
		}
	}

	if err := e.requireUsableSubscription(ctx, gate.OrgID); err != nil {
		return nil, err
	}

	scannedBy := tc.PrincipalID
	now := e.now()

	created := make([]*models.Dismissal, 0, len(students))
	for _, st := range students {
		d := &models.Dismissal{
			DismissalID: uuid.Must(uuid.NewV7()),
			StudentID:   st.StudentID,
			GuardianID:  st.GuardianID,
			OrgID:       st.OrgID,
			GateID:      &gate.GateID,
			ScannedByID: &scannedBy,
			Status:      models.DismissalReady,
			ScannedAt:   now,
			CalledAt:    &now,
		}
		if err := e.dismissals.Create(ctx, d); err != nil {
			return nil, fmt.Errorf("failed to create dismissal: %w", err)
		}
		created = append(created, d)
	}

	// All records exist before any event goes out, so a multi-child scan
	// enters ready in one publish cycle.
	for i, d := range created {
		e.publish(ctx, notify.EventReady, d, students[i].ClassID)
	}

	e.metrics.DismissalsCreatedTotal.Add(ctx, int64(len(created)))
	e.log.Info().
		Str("gate_id", gateID.String()).
		Int("students", len(created)).
		Msg("dismissals created from scan")

	return created, nil
}

// CreateFromRequest handles a guardian-initiated pickup request for one
// specific student.
func (e *Engine) CreateFromRequest(ctx context.Context, studentID uuid.UUID, tc tenant.Context) (*models.Dismissal, error) {
	st, err := e.students.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := tc.Authorize(st.OrgID); err != nil {
		return nil, err
	}
	if tc.Role == models.RoleParent && st.GuardianID != tc.PrincipalID {
		return nil, ErrNotGuardian
	}
	if err := e.requireUsableSubscription(ctx, st.OrgID); err != nil {
		return nil, err
	}

	now := e.now()
	d := &models.Dismissal{
		DismissalID: uuid.Must(uuid.NewV7()),
		StudentID:   st.StudentID,
		GuardianID:  st.GuardianID,
		OrgID:       st.OrgID,
		Status:      models.DismissalReady,
		ScannedAt:   now,
		CalledAt:    &now,
	}
	if err := e.dismissals.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create dismissal: %w", err)
	}

	e.publish(ctx, notify.EventReady, d, st.ClassID)

	e.metrics.DismissalsCreatedTotal.Add(ctx, 1)
	e.log.Info().
		Str("dismissal_id", d.DismissalID.String()).
		Str("student_id", st.StudentID.String()).
		Msg("dismissal created from guardian request")

	return d, nil
}

// Advance moves a dismissal to ready, completed or cancelled on behalf of
// classroom or security staff. State only ever moves forward; re-advancing to
// the current state fails with ErrInvalidTransition and produces no second
// side effect.
func (e *Engine) Advance(ctx context.Context, dismissalID uuid.UUID, target models.DismissalStatus, tc tenant.Context) (*models.Dismissal, error) {
	switch tc.Role {
	case models.RoleTeacher, models.RoleSecurity, models.RoleOrgAdmin, models.RolePlatformOperator:
	default:
		return nil, ErrRoleNotAllowed
	}
	switch target {
	case models.DismissalReady, models.DismissalCompleted, models.DismissalCancelled:
	default:
		return nil, fmt.Errorf("%w: %s is not an advance target", ErrInvalidTransition, target)
	}

	d, err := e.dismissals.Get(ctx, dismissalID)
	if err != nil {
		return nil, err
	}
	if err := tc.Authorize(d.OrgID); err != nil {
		return nil, err
	}
	if err := e.requireUsableSubscription(ctx, d.OrgID); err != nil {
		return nil, err
	}

	if !d.CanTransition(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, target)
	}

	now := e.now()
	d.Status = target
	switch target {
	case models.DismissalReady:
		d.CalledAt = &now
	case models.DismissalCompleted:
		d.CompletedAt = &now
	case models.DismissalCancelled:
		d.CancelledAt = &now
	}

	if err := e.dismissals.Update(ctx, d); err != nil {
		return nil, err
	}

	e.publish(ctx, eventForStatus(target), d, e.classOf(ctx, d.StudentID))

	switch target {
	case models.DismissalCancelled:
		e.metrics.DismissalsCancelledTotal.Add(ctx, 1)
	default:
		e.metrics.DismissalsAdvancedTotal.Add(ctx, 1)
	}

	e.log.Info().
		Str("dismissal_id", d.DismissalID.String()).
		Str("status", string(target)).
		Msg("dismissal advanced")

	return d, nil
}

// Confirm records the guardian's acknowledgment of physical receipt. Only
// valid from completed; terminal afterwards.
func (e *Engine) Confirm(ctx context.Context, dismissalID uuid.UUID, guardianID uuid.UUID) (*models.Dismissal, error) {
	d, err := e.dismissals.Get(ctx, dismissalID)
	if err != nil {
		return nil, err
	}
	if d.GuardianID != guardianID {
		return nil, ErrNotGuardian
	}
	if !d.CanTransition(models.DismissalConfirmed) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, models.DismissalConfirmed)
	}

	now := e.now()
	d.Status = models.DismissalConfirmed
	d.ConfirmedAt = &now

	if err := e.dismissals.Update(ctx, d); err != nil {
		return nil, err
	}

	e.metrics.DismissalsConfirmedTotal.Add(ctx, 1)
	e.log.Info().
		Str("dismissal_id", d.DismissalID.String()).
		Msg("dismissal confirmed by guardian")

	return d, nil
}

// ActiveQuery narrows the pull reconciliation query. OrgID is required for
// platform operators and ignored for everyone else; ClassID filters to one
// class.
type ActiveQuery struct {
	OrgID   *uuid.UUID
	ClassID *uuid.UUID
}

// Active is the pull reconciliation query: the current set of non-terminal
// dismissals visible to the caller's tenant and role scope, newest first.
func (e *Engine) Active(ctx context.Context, tc tenant.Context, q ActiveQuery) ([]*models.Dismissal, error) {
	if tc.Role == models.RoleParent {
		return e.dismissals.ListActiveByGuardian(ctx, tc.PrincipalID)
	}

	orgID := tc.OrgID
	if tc.PlatformOperator {
		orgID = q.OrgID
	}
	if orgID == nil {
		return nil, tenant.ErrCrossTenantAccess
	}

	ds, err := e.dismissals.ListActiveByOrg(ctx, *orgID)
	if err != nil {
		return nil, err
	}

	if q.ClassID == nil {
		return ds, nil
	}

	filtered := ds[:0]
	for _, d := range ds {
		if classID := e.classOf(ctx, d.StudentID); classID != nil && *classID == *q.ClassID {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

func (e *Engine) requireUsableSubscription(ctx context.Context, orgID uuid.UUID) error {
	org, err := e.orgs.Get(ctx, orgID)
	if err != nil {
		return err
	}
	if !org.SubscriptionUsable(e.now()) {
		return fmt.Errorf("%w: %s", ErrSubscriptionInactive, org.SubscriptionStatus)
	}
	return nil
}

// classOf resolves the student's class affinity for event targeting. Lookup
// failures degrade to org-wide delivery rather than failing the transition.
func (e *Engine) classOf(ctx context.Context, studentID uuid.UUID) *uuid.UUID {
	st, err := e.students.Get(ctx, studentID)
	if err != nil {
		return nil
	}
	return st.ClassID
}

func (e *Engine) publish(ctx context.Context, t notify.EventType, d *models.Dismissal, classID *uuid.UUID) {
	e.hub.Publish(ctx, &notify.DismissalEvent{
		Type:        t,
		DismissalID: d.DismissalID,
		StudentID:   d.StudentID,
		GuardianID:  d.GuardianID,
		OrgID:       d.OrgID,
		ClassID:     classID,
		GateID:      d.GateID,
		Status:      d.Status,
		OccurredAt:  e.now(),
	})
}

func eventForStatus(s models.DismissalStatus) notify.EventType {
	switch s {
	case models.DismissalReady:
		return notify.EventReady
	case models.DismissalCompleted:
		return notify.EventCompleted
	case models.DismissalCancelled:
		return notify.EventCancelled
	default:
		return notify.EventRequested
	}
}
