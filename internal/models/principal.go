package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of principal roles.
type Role string

const (
	RolePlatformOperator Role = "platform-operator" // cross-tenant, no organization
	RoleOrgAdmin         Role = "org-admin"
	RoleTeacher          Role = "teacher"
	RoleSecurity         Role = "security"
	RoleParent           Role = "parent"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RolePlatformOperator, RoleOrgAdmin, RoleTeacher, RoleSecurity, RoleParent:
		return true
	}
	return false
}

// Principal represents an identity in the system. Platform operators carry a
// nil OrgID; every other role belongs to exactly one organization.
type Principal struct {
	PrincipalID uuid.UUID  // UUIDv7
	OrgID       *uuid.UUID // nil only for platform operators
	Role        Role
	Name        string
	Email       *string

	// CredentialID is the guardian-held pickup credential (e.g. a proximity
	// card UID). Only set for parent principals.
	CredentialID *string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	SuspendedAt *time.Time
	LastSeenAt  *time.Time
}

// IsSuspended reports whether the principal is blocked from all action,
// independent of organization state.
func (p *Principal) IsSuspended() bool {
	return p.SuspendedAt != nil
}
