package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/gatepass/gatepass/internal/notify"
)

// eventLog records the order of reconciliation pulls and pushed events.
type eventLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *eventLog) append(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *eventLog) waitLen(t *testing.T, n int) []string {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(l.snapshot()) >= n
	}, 5*time.Second, 10*time.Millisecond)
	return l.snapshot()
}

func wsBase(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestChannelReconnectReconcilesFirst(t *testing.T) {
	var (
		mu       sync.Mutex
		connects int
		tokens   []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connects++
		n := connects
		tokens = append(tokens, r.URL.Query().Get("access_token"))
		mu.Unlock()

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}

		env := notify.NewEnvelope(notify.EventReady, &notify.DismissalEvent{
			DismissalID: uuid.Must(uuid.NewV7()),
		})
		if err := wsjson.Write(r.Context(), conn, env); err != nil {
			return
		}

		if n == 1 {
			// Drop the first connection to force a reconnect.
			_ = conn.Close(websocket.StatusNormalClosure, "first session over")
			return
		}

		// Keep the second connection open until the client closes it.
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	log := &eventLog{}

	ch := New(Config{
		URL:   wsBase(srv.URL) + "/v1/events",
		Token: "test-token",
		Reconcile: func(ctx context.Context) error {
			log.append("reconcile")
			return nil
		},
		BaseDelay: 10 * time.Millisecond,
		MaxDelay:  50 * time.Millisecond,
		Logger:    zerolog.Nop(),
	})
	defer ch.Close()

	ch.On(notify.EventReady, func(env *notify.Envelope) {
		log.append("event")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ch.Connect(ctx))

	// Two sessions: each one reconciles before dispatching any push.
	entries := log.waitLen(t, 4)
	require.Equal(t, "reconcile", entries[0])
	require.Equal(t, "event", entries[1])
	require.Equal(t, "reconcile", entries[2])
	require.Equal(t, "event", entries[3])

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, connects, 2)
	for _, token := range tokens {
		require.Equal(t, "test-token", token)
	}
}

func TestChannelClassAffinityParam(t *testing.T) {
	classID := uuid.Must(uuid.NewV7())
	got := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case got <- r.URL.Query().Get("class_id"):
		default:
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")
		for {
			if _, _, err := conn.Read(r.Context()); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ch := New(Config{
		URL:     wsBase(srv.URL) + "/v1/events",
		Token:   "tok",
		ClassID: &classID,
		Logger:  zerolog.Nop(),
	})
	defer ch.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ch.Connect(ctx))

	select {
	case param := <-got:
		require.Equal(t, classID.String(), param)
	case <-ctx.Done():
		t.Fatal("server never saw the connection")
	}
}

func TestChannelSendWhileDisconnected(t *testing.T) {
	ch := New(Config{URL: "ws://localhost:0/v1/events", Logger: zerolog.Nop()})
	defer ch.Close()

	err := ch.Send(context.Background(), notify.NewEnvelope(notify.EventHeartbeat, nil))
	require.ErrorIs(t, err, ErrDisconnected)
}

func TestChannelUnsubscribe(t *testing.T) {
	ch := New(Config{URL: "ws://localhost:0/v1/events", Logger: zerolog.Nop()})
	defer ch.Close()

	var calls int
	off := ch.On(notify.EventReady, func(env *notify.Envelope) { calls++ })

	ch.dispatch(notify.NewEnvelope(notify.EventReady, nil))
	require.Equal(t, 1, calls)

	off()
	ch.dispatch(notify.NewEnvelope(notify.EventReady, nil))
	require.Equal(t, 1, calls)
}
