package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the billing state of an organization.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Organization represents one school tenant. All tenant-scoped entities carry
// exactly one OrgID, immutable after creation.
type Organization struct {
	OrgID              uuid.UUID // UUIDv7
	Name               string
	Active             bool
	SubscriptionStatus SubscriptionStatus
	TrialEndsAt        *time.Time
	SubscriptionEndsAt *time.Time

	// Resource ceilings from the subscription plan.
	MaxStudents Ceiling
	MaxStaff    Ceiling
	MaxGates    Ceiling

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubscriptionUsable reports whether the organization may create or advance
// dismissals. Trial and active subscriptions are usable until their expiry
// timestamp passes; suspended, cancelled and expired never are.
func (o *Organization) SubscriptionUsable(now time.Time) bool {
	if !o.Active {
		return false
	}
	switch o.SubscriptionStatus {
	case SubscriptionActive:
		return o.SubscriptionEndsAt == nil || now.Before(*o.SubscriptionEndsAt)
	case SubscriptionTrial:
		return o.TrialEndsAt == nil || now.Before(*o.TrialEndsAt)
	default:
		return false
	}
}
