package models

import (
	"time"

	"github.com/google/uuid"
)

// DismissalStatus is the lifecycle position of a dismissal record.
type DismissalStatus string

const (
	DismissalRequested DismissalStatus = "requested"
	DismissalReady     DismissalStatus = "ready"
	DismissalCompleted DismissalStatus = "completed"
	DismissalConfirmed DismissalStatus = "confirmed"
	DismissalCancelled DismissalStatus = "cancelled"
)

// lifecyclePosition orders statuses so transitions can be checked as strictly
// forward. Cancelled is terminal but off the main line.
var lifecyclePosition = map[DismissalStatus]int{
	DismissalRequested: 0,
	DismissalReady:     1,
	DismissalCompleted: 2,
	DismissalConfirmed: 3,
}

// Dismissal is one student-pickup lifecycle record. It is never deleted, only
// superseded by a new record for a later pickup, and immutable once terminal.
type Dismissal struct {
	DismissalID uuid.UUID // UUIDv7
	StudentID   uuid.UUID
	GuardianID  uuid.UUID
	OrgID       uuid.UUID // denormalized from the student, must match
	GateID      *uuid.UUID
	// ScannedByID is the staff principal operating the gate scanner; nil when
	// the guardian self-initiated the pickup in-app.
	ScannedByID *uuid.UUID
	Status      DismissalStatus

	ScannedAt   time.Time
	CalledAt    *time.Time
	CompletedAt *time.Time
	ConfirmedAt *time.Time
	CancelledAt *time.Time
}

// Terminal reports whether no further transitions are possible.
func (d *Dismissal) Terminal() bool {
	return d.Status == DismissalConfirmed || d.Status == DismissalCancelled
}

// CanTransition reports whether moving to target is a legal forward step.
// Cancellation is allowed from requested and ready only.
func (d *Dismissal) CanTransition(target DismissalStatus) bool {
	if d.Terminal() {
		return false
	}
	if target == DismissalCancelled {
		return d.Status == DismissalRequested || d.Status == DismissalReady
	}
	from, ok := lifecyclePosition[d.Status]
	if !ok {
		return false
	}
	to, ok := lifecyclePosition[target]
	if !ok {
		return false
	}
	return to == from+1
}
