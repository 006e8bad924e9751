package models

import (
	"time"

	"github.com/google/uuid"
)

// Student is owned by exactly one guardian principal and one organization,
// optionally placed in a class. CredentialID is either inherited from the
// guardian's credential or assigned individually.
type Student struct {
	StudentID    uuid.UUID // UUIDv7
	OrgID        uuid.UUID
	GuardianID   uuid.UUID
	ClassID      *uuid.UUID
	Name         string
	CredentialID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Class is a grade+section grouping within one organization. Teacher
// assignment is many-to-many.
type Class struct {
	ClassID    uuid.UUID // UUIDv7
	OrgID      uuid.UUID
	Grade      string
	Section    string
	TeacherIDs []uuid.UUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Gate is a physical checkpoint within one organization. It is contextual
// metadata on a dismissal only and never gates dismissal logic.
type Gate struct {
	GateID uuid.UUID // UUIDv7
	OrgID  uuid.UUID
	Name   string
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
