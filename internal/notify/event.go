// Package notify delivers dismissal lifecycle events to live subscriber
// connections. Delivery is best-effort, in-memory and single-process;
// subscribers that miss events reconcile through the pull query.
package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/models"
)

// EventType identifies a wire event.
type EventType string

const (
	EventRequested     EventType = "requested"
	EventReady         EventType = "ready"
	EventCompleted     EventType = "completed"
	EventCancelled     EventType = "cancelled"
	EventConnectionAck EventType = "connectionAck"

	// Liveness rides on websocket protocol pings in the registry sweep;
	// heartbeat stays in the wire enum for application-level keepalives
	// sent by clients.
	EventHeartbeat EventType = "heartbeat"
)

// Envelope is the wire format sent to subscribers.
type Envelope struct {
	Type        EventType `json:"type"`
	Data        any       `json:"data,omitempty"`
	TimestampMS int64     `json:"timestamp_ms"`
}

// NewEnvelope wraps event data in an envelope stamped with the current time.
func NewEnvelope(t EventType, data any) *Envelope {
	return &Envelope{
		Type:        t,
		Data:        data,
		TimestampMS: time.Now().UnixMilli(),
	}
}

// DismissalEvent is the payload published by the lifecycle engine on every
// transition. The hub reads it, never mutates it.
type DismissalEvent struct {
	Type        EventType              `json:"-"`
	DismissalID uuid.UUID              `json:"dismissal_id"`
	StudentID   uuid.UUID              `json:"student_id"`
	GuardianID  uuid.UUID              `json:"guardian_id"`
	OrgID       uuid.UUID              `json:"org_id"`
	ClassID     *uuid.UUID             `json:"class_id,omitempty"`
	GateID      *uuid.UUID             `json:"gate_id,omitempty"`
	Status      models.DismissalStatus `json:"status"`
	OccurredAt  time.Time              `json:"occurred_at"`
}
