// Package client maintains a durable logical subscription over an unreliable
// websocket transport. The channel guarantees transport continuity, not
// message completeness: delivery is best-effort server-side, so every
// reconnect is immediately followed by a reconciliation pull.
package client

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/gatepass/gatepass/internal/notify"
)

const (
	// DefaultBaseDelay is the initial reconnect backoff delay.
	DefaultBaseDelay = 500 * time.Millisecond

	// DefaultMaxDelay caps the doubling reconnect backoff.
	DefaultMaxDelay = 30 * time.Second
)

// ErrDisconnected is returned by Send while the transport is down.
var ErrDisconnected = errors.New("channel disconnected")

// Handler processes one received envelope.
type Handler func(env *notify.Envelope)

// Config configures a Channel.
type Config struct {
	// URL is the websocket endpoint, e.g. wss://host/v1/events.
	URL string

	// Token is the bearer token carrying the subscriber's identity. It is
	// replayed on every reconnect.
	Token string

	// ClassID optionally narrows a teacher subscription to one class.
	ClassID *uuid.UUID

	// Reconcile is invoked as the first action after every successful
	// connect, before any pushed event is dispatched. It should pull the
	// active dismissal set to recover anything missed while disconnected.
	Reconcile func(ctx context.Context) error

	BaseDelay time.Duration
	MaxDelay  time.Duration

	Logger zerolog.Logger
}

type handlerEntry struct {
	id uint64
	fn Handler
}

// Channel is a reconnecting subscription to the notification endpoint.
type Channel struct {
	cfg Config

	mu        sync.Mutex
	handlers  map[notify.EventType][]handlerEntry
	nextID    uint64
	conn      *websocket.Conn
	connected chan struct{} // closed once the first connect succeeds

	stopOnce sync.Once
	done     chan struct{}
}

// New creates a disconnected channel. Call Connect to start it.
func New(cfg Config) *Channel {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}

	return &Channel{
		cfg:       cfg,
		handlers:  make(map[notify.EventType][]handlerEntry),
		connected: make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// On registers a handler for an event type and returns its unsubscribe
// function. Handlers may be registered before or after Connect.
func (c *Channel) On(t notify.EventType, h Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.handlers[t] = append(c.handlers[t], handlerEntry{id: id, fn: h})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		entries := c.handlers[t]
		for i, e := range entries {
			if e.id == id {
				c.handlers[t] = append(entries[:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Send writes one envelope to the server. Fails when disconnected.
func (c *Channel) Send(ctx context.Context, env *notify.Envelope) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrDisconnected
	}
	return wsjson.Write(ctx, conn, env)
}

// Connect starts the channel and blocks until the first connection is
// established or ctx ends. The channel then keeps itself connected with
// exponential backoff (base delay doubling up to the cap, reset on success)
// until Close is called.
func (c *Channel) Connect(ctx context.Context) error {
	go c.run(ctx)

	select {
	case <-c.connected:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return context.Canceled
	}
}

// Close stops reconnecting and tears down the transport.
func (c *Channel) Close() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close(websocket.StatusNormalClosure, "client closing")
		}
		c.mu.Unlock()
	})
}

func (c *Channel) run(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BaseDelay
	b.MaxInterval = c.cfg.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()

	var once sync.Once

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		err := c.session(ctx, func() {
			b.Reset()
			once.Do(func() { close(c.connected) })
		})
		if err != nil {
			c.cfg.Logger.Debug().Err(err).Msg("session ended")
		}

		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(b.NextBackOff()):
		}
	}
}

// session dials, reconciles, then reads until the transport fails. onUp runs
// once the connection is established, before reconciliation.
func (c *Channel) session(ctx context.Context, onUp func()) error {
	conn, _, err := websocket.Dial(ctx, c.dialURL(), nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "session over")
	}()

	onUp()

	// The push stream is best-effort, so the first post-connect action is
	// always the reconciliation pull.
	if c.cfg.Reconcile != nil {
		if err := c.cfg.Reconcile(ctx); err != nil {
			c.cfg.Logger.Warn().Err(err).Msg("reconciliation pull failed")
		}
	}

	for {
		var env notify.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return err
		}
		c.dispatch(&env)
	}
}

func (c *Channel) dispatch(env *notify.Envelope) {
	c.mu.Lock()
	entries := make([]handlerEntry, len(c.handlers[env.Type]))
	copy(entries, c.handlers[env.Type])
	c.mu.Unlock()

	for _, e := range entries {
		e.fn(env)
	}
}

// dialURL carries the subscriber's identity on every (re)connect: the bearer
// token as a query parameter (websocket clients cannot set headers from all
// environments) and the optional class affinity.
func (c *Channel) dialURL() string {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return c.cfg.URL
	}
	q := u.Query()
	q.Set("access_token", c.cfg.Token)
	if c.cfg.ClassID != nil {
		q.Set("class_id", c.cfg.ClassID.String())
	}
	u.RawQuery = q.Encode()
	return u.String()
}
