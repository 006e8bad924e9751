package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/gatepass/gatepass/internal/models"
)

func testEvent(t EventType, orgID uuid.UUID, classID *uuid.UUID) *DismissalEvent {
	return &DismissalEvent{
		Type:        t,
		DismissalID: uuid.Must(uuid.NewV7()),
		StudentID:   uuid.Must(uuid.NewV7()),
		GuardianID:  uuid.Must(uuid.NewV7()),
		OrgID:       orgID,
		ClassID:     classID,
		Status:      models.DismissalReady,
		OccurredAt:  time.Now(),
	}
}

func TestHubPublishTargeting(t *testing.T) {
	ctx := context.Background()
	orgA := uuid.Must(uuid.NewV7())
	orgB := uuid.Must(uuid.NewV7())

	t.Run("events never cross organizations", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{Logger: zerolog.Nop()})
		hub := NewHub(r, zerolog.Nop())

		teacherA := &fakeConn{}
		teacherB := &fakeConn{}
		r.Register(teacherA, testIdentity(models.RoleTeacher, orgA))
		r.Register(teacherB, testIdentity(models.RoleTeacher, orgB))

		hub.Publish(ctx, testEvent(EventReady, orgA, nil))

		require.Equal(t, 1, teacherA.sentCount())
		require.Equal(t, 0, teacherB.sentCount())
	})

	t.Run("ready goes to teachers only", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{Logger: zerolog.Nop()})
		hub := NewHub(r, zerolog.Nop())

		teacher := &fakeConn{}
		security := &fakeConn{}
		parent := &fakeConn{}
		r.Register(teacher, testIdentity(models.RoleTeacher, orgA))
		r.Register(security, testIdentity(models.RoleSecurity, orgA))
		r.Register(parent, testIdentity(models.RoleParent, orgA))

		hub.Publish(ctx, testEvent(EventReady, orgA, nil))

		require.Equal(t, 1, teacher.sentCount())
		require.Equal(t, 0, security.sentCount())
		require.Equal(t, 0, parent.sentCount())
	})

	t.Run("completed also goes to security", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{Logger: zerolog.Nop()})
		hub := NewHub(r, zerolog.Nop())

		teacher := &fakeConn{}
		security := &fakeConn{}
		r.Register(teacher, testIdentity(models.RoleTeacher, orgA))
		r.Register(security, testIdentity(models.RoleSecurity, orgA))

		hub.Publish(ctx, testEvent(EventCompleted, orgA, nil))

		require.Equal(t, 1, teacher.sentCount())
		require.Equal(t, 1, security.sentCount())
	})

	t.Run("class affinity narrows teacher delivery", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{Logger: zerolog.Nop()})
		hub := NewHub(r, zerolog.Nop())

		classX := uuid.Must(uuid.NewV7())
		classY := uuid.Must(uuid.NewV7())

		inClass := &fakeConn{}
		otherClass := &fakeConn{}
		orgWide := &fakeConn{}

		idX := testIdentity(models.RoleTeacher, orgA)
		idX.ClassID = &classX
		idY := testIdentity(models.RoleTeacher, orgA)
		idY.ClassID = &classY

		r.Register(inClass, idX)
		r.Register(otherClass, idY)
		r.Register(orgWide, testIdentity(models.RoleTeacher, orgA))

		hub.Publish(ctx, testEvent(EventReady, orgA, &classX))

		require.Equal(t, 1, inClass.sentCount())
		require.Equal(t, 0, otherClass.sentCount())
		require.Equal(t, 1, orgWide.sentCount())
	})

	t.Run("event without class reaches class-scoped teachers", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{Logger: zerolog.Nop()})
		hub := NewHub(r, zerolog.Nop())

		classX := uuid.Must(uuid.NewV7())
		id := testIdentity(models.RoleTeacher, orgA)
		id.ClassID = &classX

		conn := &fakeConn{}
		r.Register(conn, id)

		hub.Publish(ctx, testEvent(EventReady, orgA, nil))
		require.Equal(t, 1, conn.sentCount())
	})

	t.Run("nil identity receives nothing", func(t *testing.T) {
		r := NewRegistry(RegistryConfig{Logger: zerolog.Nop()})
		hub := NewHub(r, zerolog.Nop())

		inert := &fakeConn{}
		r.Register(inert, nil)

		hub.Publish(ctx, testEvent(EventReady, orgA, nil))
		require.Equal(t, 0, inert.sentCount())
		require.Equal(t, 1, r.Size())
	})
}

func TestHubPublishDropsDeadSubscriber(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.Must(uuid.NewV7())

	r := NewRegistry(RegistryConfig{Logger: zerolog.Nop()})
	hub := NewHub(r, zerolog.Nop())

	dead := &fakeConn{sendErr: errors.New("broken pipe")}
	alive := &fakeConn{}
	r.Register(dead, testIdentity(models.RoleTeacher, orgID))
	r.Register(alive, testIdentity(models.RoleTeacher, orgID))

	hub.Publish(ctx, testEvent(EventReady, orgID, nil))

	// The dead subscriber is removed immediately; delivery to the healthy
	// one is unaffected.
	require.Equal(t, 1, r.Size())
	require.True(t, dead.isClosed())
	require.Equal(t, 1, alive.sentCount())

	hub.Publish(ctx, testEvent(EventReady, orgID, nil))
	require.Equal(t, 2, alive.sentCount())
}

func TestEnvelopeShape(t *testing.T) {
	before := time.Now().UnixMilli()
	env := NewEnvelope(EventReady, map[string]string{"k": "v"})
	after := time.Now().UnixMilli()

	require.Equal(t, EventReady, env.Type)
	require.GreaterOrEqual(t, env.TimestampMS, before)
	require.LessOrEqual(t, env.TimestampMS, after)
}
