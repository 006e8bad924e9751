package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/telemetry"
)

// Hub fans lifecycle events out to the matching live subscribers. It is
// invoked synchronously by the lifecycle engine on every transition, with no
// queue and no retry: a dead or absent subscriber reconciles via the pull
// query instead.
type Hub struct {
	registry *Registry
	log      zerolog.Logger
	metrics  *telemetry.Metrics
}

// NewHub creates a hub delivering through the given registry.
func NewHub(registry *Registry, log zerolog.Logger) *Hub {
	return &Hub{
		registry: registry,
		log:      log,
		metrics:  telemetry.GetMetrics(),
	}
}

// Publish delivers the event to every matching subscriber. Send failures are
// swallowed: they downgrade to "subscriber will reconcile via pull" and never
// fail the triggering request. Because Publish runs inside the single
// mutating call, transitions of one dismissal arrive in order.
func (h *Hub) Publish(ctx context.Context, event *DismissalEvent) {
	h.metrics.EventsPublishedTotal.Add(ctx, 1)

	env := NewEnvelope(event.Type, event)

	for _, sub := range h.registry.snapshot() {
		if !matches(sub.Identity(), event) {
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, h.registry.sendTimeout)
		err := sub.conn.Send(sendCtx, env)
		cancel()

		if err != nil {
			// Dead socket: drop the subscriber now rather than waiting for
			// the sweep, and let the client's reconciliation pull catch up.
			h.log.Debug().Err(err).
				Uint64("subscriber_id", sub.id).
				Str("event", string(event.Type)).
				Msg("delivery failed, dropping subscriber")
			h.registry.Unregister(sub)
			_ = sub.conn.Close("delivery failed")
			h.metrics.EventsDroppedTotal.Add(ctx, 1)
			continue
		}

		h.metrics.EventsDeliveredTotal.Add(ctx, 1)
	}
}

// matches decides whether a subscriber receives the event. Requested, ready
// and cancelled events go to teachers of the event's organization; completed
// events additionally go to security staff. Teachers with a class affinity
// only receive events for their class, and an event is never delivered across
// organizations.
func matches(id *Identity, event *DismissalEvent) bool {
	if id == nil {
		return false
	}
	if id.OrgID == nil || *id.OrgID != event.OrgID {
		return false
	}

	switch event.Type {
	case EventRequested, EventReady, EventCancelled:
		if id.Role != models.RoleTeacher {
			return false
		}
	case EventCompleted:
		if id.Role != models.RoleTeacher && id.Role != models.RoleSecurity {
			return false
		}
	default:
		return false
	}

	// Class affinity filter applies to teachers only; security staff see the
	// whole organization.
	if id.Role == models.RoleTeacher && id.ClassID != nil && event.ClassID != nil {
		return *id.ClassID == *event.ClassID
	}

	return true
}
