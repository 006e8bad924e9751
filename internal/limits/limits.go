// Package limits implements advisory plan-ceiling checks. A check is a pure
// function of its inputs; callers re-read the current count immediately
// before the guarded write, and concurrent creations can transiently exceed
// the ceiling by a small margin.
package limits

import (
	"errors"
	"fmt"

	"github.com/gatepass/gatepass/internal/models"
)

// ErrLimitExceeded is returned by callers when a Decision vetoed the write.
var ErrLimitExceeded = errors.New("plan limit exceeded")

// ResourceClass identifies what kind of entity a ceiling guards.
type ResourceClass string

const (
	ResourceStudents ResourceClass = "students"
	ResourceStaff    ResourceClass = "staff"
	ResourceGates    ResourceClass = "gates"
)

// Decision is the outcome of a ceiling check.
type Decision struct {
	Allowed bool
	Limit   string
	Message string
}

// Check answers whether one more entity of the given class may be created
// given the organization's ceiling and the current count. Unlimited ceilings
// always allow.
func Check(ceiling models.Ceiling, class ResourceClass, currentCount int) Decision {
	if ceiling.Unlimited() {
		return Decision{Allowed: true, Limit: ceiling.String()}
	}

	if currentCount < ceiling.Limit() {
		return Decision{Allowed: true, Limit: ceiling.String()}
	}

	return Decision{
		Allowed: false,
		Limit:   ceiling.String(),
		Message: fmt.Sprintf("plan allows at most %s %s", ceiling, class),
	}
}

// Err converts a vetoing decision into an error carrying ErrLimitExceeded;
// allowed decisions return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrLimitExceeded, d.Message)
}

// ForClass picks the organization's ceiling for a resource class.
func ForClass(org *models.Organization, class ResourceClass) models.Ceiling {
	switch class {
	case ResourceStudents:
		return org.MaxStudents
	case ResourceStaff:
		return org.MaxStaff
	case ResourceGates:
		return org.MaxGates
	default:
		return models.Ceiling{}
	}
}
