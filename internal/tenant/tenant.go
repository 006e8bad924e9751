// Package tenant derives the tenant scope of an authenticated principal.
// Every data access in the core takes a Context and never re-derives it from
// request input.
package tenant

import (
	"errors"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/models"
)

// Sentinel errors for tenant scoping.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrCrossTenantAccess = errors.New("cross-tenant access denied")
)

// Context is the resolved tenant scope of a request. Platform operators carry
// a nil OrgID and bypass tenant filtering; every other role is pinned to its
// own organization.
type Context struct {
	PrincipalID      uuid.UUID
	Role             models.Role
	OrgID            *uuid.UUID
	PlatformOperator bool
}

// Resolve derives the tenant context from an authenticated principal. It
// fails only when there is no principal.
func Resolve(principal *models.Principal) (Context, error) {
	if principal == nil {
		return Context{}, ErrUnauthenticated
	}

	if principal.Role == models.RolePlatformOperator {
		return Context{
			PrincipalID:      principal.PrincipalID,
			Role:             principal.Role,
			PlatformOperator: true,
		}, nil
	}

	return Context{
		PrincipalID: principal.PrincipalID,
		Role:        principal.Role,
		OrgID:       principal.OrgID,
	}, nil
}

// Authorize rejects any operation whose target entity belongs to a different
// organization than the context. Cross-tenant access is always a hard
// failure, never a silent filter. Platform operators are exempt.
func (c Context) Authorize(entityOrgID uuid.UUID) error {
	if c.PlatformOperator {
		return nil
	}
	if c.OrgID == nil || *c.OrgID != entityOrgID {
		return ErrCrossTenantAccess
	}
	return nil
}
