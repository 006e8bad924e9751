package server

import (
	"context"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/gatepass/gatepass/internal/auth"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/notify"
	"github.com/gatepass/gatepass/internal/tenant"
)

// wsConn adapts a websocket connection to the registry's transport interface.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Send(ctx context.Context, env *notify.Envelope) error {
	return wsjson.Write(ctx, c.conn, env)
}

func (c *wsConn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *wsConn) Close(reason string) error {
	return c.conn.Close(websocket.StatusNormalClosure, reason)
}

// handleEvents upgrades to a websocket and registers the caller as a
// notification subscriber. Identity comes from the authenticated principal,
// never from request input; the optional class_id query parameter narrows a
// teacher's subscription to one class.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	tc, ok := auth.TenantFromContext(r.Context())
	if !ok {
		writeError(w, r, tenant.ErrUnauthenticated)
		return
	}

	var classID *uuid.UUID
	if raw := r.URL.Query().Get("class_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			writeBadRequest(w, "invalid class_id")
			return
		}
		classID = &parsed
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("websocket accept failed")
		return
	}

	identity := &notify.Identity{
		PrincipalID: tc.PrincipalID,
		Role:        tc.Role,
		OrgID:       tc.OrgID,
		ClassID:     classID,
	}
	// Teachers may carry a class affinity; other roles subscribe org-wide.
	if tc.Role != models.RoleTeacher {
		identity.ClassID = nil
	}

	wrapped := &wsConn{conn: conn}
	sub := s.registry.Register(wrapped, identity)
	// Closing the transport must synchronously drop the subscriber so the
	// next publish never sees a dead handle. The liveness sweep is only the
	// backstop for transports that vanish without an error.
	defer s.registry.Unregister(sub)

	ctx := r.Context()
	_ = wrapped.Send(ctx, notify.NewEnvelope(notify.EventConnectionAck, nil))

	// Subscribers only listen; the read loop exists to observe closure and
	// to service control frames.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		}
	}
}
