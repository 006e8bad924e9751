// Package admin provisions tenant-scoped entities (students, staff, classes
// and gates) against the organization's plan ceilings. The ceiling check is
// advisory:
// the current count is re-read immediately before the guarded write, and
// concurrent creations can transiently exceed the limit by a small margin.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/gatepass/gatepass/internal/limits"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/store"
	"github.com/gatepass/gatepass/internal/telemetry"
	"github.com/gatepass/gatepass/internal/tenant"
)

// ErrRoleNotAllowed is returned when a principal without admin rights tries
// to provision entities.
var ErrRoleNotAllowed = errors.New("role may not provision entities")

// Provisioner creates tenant-scoped entities under plan ceilings.
type Provisioner struct {
	orgs       store.OrganizationStore
	students   store.StudentStore
	principals store.PrincipalStore
	classes    store.ClassStore
	gates      store.GateStore

	log     zerolog.Logger
	metrics *telemetry.Metrics
}

// NewProvisioner creates a provisioner.
func NewProvisioner(
	orgs store.OrganizationStore,
	students store.StudentStore,
	principals store.PrincipalStore,
	classes store.ClassStore,
	gates store.GateStore,
	log zerolog.Logger,
) *Provisioner {
	return &Provisioner{
		orgs:       orgs,
		students:   students,
		principals: principals,
		classes:    classes,
		gates:      gates,
		log:        log,
		metrics:    telemetry.GetMetrics(),
	}
}

// authorize requires an org-admin of the target organization or a platform
// operator.
func authorize(tc tenant.Context, orgID uuid.UUID) error {
	if err := tc.Authorize(orgID); err != nil {
		return err
	}
	if !tc.PlatformOperator && tc.Role != models.RoleOrgAdmin {
		return ErrRoleNotAllowed
	}
	return nil
}

// CreateStudent creates a student in the tenant's organization if the plan's
// student ceiling allows one more.
func (p *Provisioner) CreateStudent(ctx context.Context, student *models.Student, tc tenant.Context) error {
	if err := authorize(tc, student.OrgID); err != nil {
		return err
	}

	org, err := p.orgs.Get(ctx, student.OrgID)
	if err != nil {
		return err
	}

	count, err := p.students.CountByOrg(ctx, student.OrgID)
	if err != nil {
		return err
	}

	decision := limits.Check(limits.ForClass(org, limits.ResourceStudents), limits.ResourceStudents, count)
	if err := decision.Err(); err != nil {
		p.metrics.LimitVetoesTotal.Add(ctx, 1)
		return err
	}

	if student.StudentID == uuid.Nil {
		student.StudentID = uuid.Must(uuid.NewV7())
	}
	now := time.Now()
	student.CreatedAt = now
	student.UpdatedAt = now

	return p.students.Create(ctx, student)
}

// CreateStaff creates a staff principal (org-admin, teacher or security) if
// the plan's staff ceiling allows one more.
func (p *Provisioner) CreateStaff(ctx context.Context, principal *models.Principal, tc tenant.Context) error {
	switch principal.Role {
	case models.RoleOrgAdmin, models.RoleTeacher, models.RoleSecurity:
	default:
		return fmt.Errorf("role %s is not staff", principal.Role)
	}
	if principal.OrgID == nil {
		return tenant.ErrCrossTenantAccess
	}
	if err := authorize(tc, *principal.OrgID); err != nil {
		return err
	}

	org, err := p.orgs.Get(ctx, *principal.OrgID)
	if err != nil {
		return err
	}

	count, err := p.principals.CountStaffByOrg(ctx, *principal.OrgID)
	if err != nil {
		return err
	}

	decision := limits.Check(limits.ForClass(org, limits.ResourceStaff), limits.ResourceStaff, count)
	if err := decision.Err(); err != nil {
		p.metrics.LimitVetoesTotal.Add(ctx, 1)
		return err
	}

	if principal.PrincipalID == uuid.Nil {
		principal.PrincipalID = uuid.Must(uuid.NewV7())
	}
	now := time.Now()
	principal.CreatedAt = now
	principal.UpdatedAt = now

	return p.principals.Create(ctx, principal)
}

// CreateClass creates a class with its teacher assignments. Classes are not
// ceiling-limited; only tenancy and teacher membership are checked.
func (p *Provisioner) CreateClass(ctx context.Context, class *models.Class, tc tenant.Context) error {
	if err := authorize(tc, class.OrgID); err != nil {
		return err
	}

	for _, teacherID := range class.TeacherIDs {
		teacher, err := p.principals.Get(ctx, teacherID)
		if err != nil {
			return err
		}
		if teacher.Role != models.RoleTeacher {
			return fmt.Errorf("principal %s is not a teacher", teacherID)
		}
		if teacher.OrgID == nil || *teacher.OrgID != class.OrgID {
			return tenant.ErrCrossTenantAccess
		}
	}

	if class.ClassID == uuid.Nil {
		class.ClassID = uuid.Must(uuid.NewV7())
	}
	now := time.Now()
	class.CreatedAt = now
	class.UpdatedAt = now

	return p.classes.Create(ctx, class)
}

// CreateGate creates a gate if the plan's gate ceiling allows one more.
func (p *Provisioner) CreateGate(ctx context.Context, gate *models.Gate, tc tenant.Context) error {
	if err := authorize(tc, gate.OrgID); err != nil {
		return err
	}

	org, err := p.orgs.Get(ctx, gate.OrgID)
	if err != nil {
		return err
	}

	count, err := p.gates.CountByOrg(ctx, gate.OrgID)
	if err != nil {
		return err
	}

	decision := limits.Check(limits.ForClass(org, limits.ResourceGates), limits.ResourceGates, count)
	if err := decision.Err(); err != nil {
		p.metrics.LimitVetoesTotal.Add(ctx, 1)
		return err
	}

	if gate.GateID == uuid.Nil {
		gate.GateID = uuid.Must(uuid.NewV7())
	}
	now := time.Now()
	gate.CreatedAt = now
	gate.UpdatedAt = now

	return p.gates.Create(ctx, gate)
}
