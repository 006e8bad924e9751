package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gatepass/gatepass/internal/client"
	"github.com/gatepass/gatepass/internal/logger"
	"github.com/gatepass/gatepass/internal/notify"
)

type WatchCmd struct {
	Server  string        `help:"Server base URL" default:"http://localhost:8080" env:"GATEPASS_SERVER"`
	Token   string        `help:"JWT token for authentication" env:"GATEPASS_TOKEN"`
	ClassID string        `help:"Narrow a teacher subscription to one class"`
	Timeout time.Duration `help:"HTTP timeout for the reconciliation pull" default:"30s"`
}

func (w *WatchCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	var classID *uuid.UUID
	if w.ClassID != "" {
		id, err := uuid.Parse(w.ClassID)
		if err != nil {
			return fmt.Errorf("invalid class id: %w", err)
		}
		classID = &id
	}

	api := newAPIClient(w.Server, w.Token, w.Timeout)

	// Every (re)connect starts with a pull of the active set so nothing
	// missed while disconnected is lost.
	reconcile := func(ctx context.Context) error {
		var resp struct {
			Dismissals []dismissalView `json:"dismissals"`
		}
		if err := api.do(ctx, "GET", "/v1/dismissals/active", nil, &resp); err != nil {
			return err
		}
		fmt.Printf("--- active dismissals (%d) ---\n", len(resp.Dismissals))
		for _, d := range resp.Dismissals {
			printDismissal(d)
		}
		return nil
	}

	ch := client.New(client.Config{
		URL:       wsURL(w.Server),
		Token:     w.Token,
		ClassID:   classID,
		Reconcile: reconcile,
		Logger:    log,
	})
	defer ch.Close()

	for _, t := range []notify.EventType{
		notify.EventRequested,
		notify.EventReady,
		notify.EventCompleted,
		notify.EventCancelled,
	} {
		ch.On(t, printEvent)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ch.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	fmt.Println("Connected, watching for events (ctrl-c to stop)")

	<-ctx.Done()
	fmt.Println("Stopping")
	return nil
}

func printEvent(env *notify.Envelope) {
	data, err := json.Marshal(env.Data)
	if err != nil {
		return
	}
	var ev notify.DismissalEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}

	ts := time.UnixMilli(env.TimestampMS).Format("15:04:05")
	fmt.Printf("[%s] %-10s dismissal=%s student=%s\n", ts, env.Type, ev.DismissalID, ev.StudentID)
}

// wsURL rewrites the HTTP base URL into the websocket subscribe endpoint.
func wsURL(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/events"
	return u.String()
}
