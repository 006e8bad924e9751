package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/gatepass/gatepass/internal/models"
	"github.com/gatepass/gatepass/internal/telemetry"
)

const (
	// DefaultSweepInterval is how often the liveness sweep pings every
	// connection. A connection that misses one ack is gone within two
	// intervals.
	DefaultSweepInterval = 30 * time.Second

	// DefaultSendTimeout bounds a single delivery or ping so one dead
	// transport cannot stall a publish cycle.
	DefaultSendTimeout = 5 * time.Second
)

// Conn is the transport side of a subscriber connection.
type Conn interface {
	// Send writes one envelope. Errors mean the transport is dead.
	Send(ctx context.Context, env *Envelope) error

	// Ping checks liveness and waits for the acknowledgment.
	Ping(ctx context.Context) error

	// Close tears the transport down.
	Close(reason string) error
}

// Identity tags a subscriber with its role, organization and optional class
// affinity. Connections registered without an identity stay registered but
// receive no targeted broadcasts.
type Identity struct {
	PrincipalID uuid.UUID
	Role        models.Role
	OrgID       *uuid.UUID
	ClassID     *uuid.UUID
}

// Subscriber is a live registered connection.
type Subscriber struct {
	id       uint64
	conn     Conn
	identity *Identity

	// acked is set by a successful ping and consumed by the next sweep.
	acked atomic.Bool
}

// Identity returns the identity the subscriber registered with, nil for
// inert connections.
func (s *Subscriber) Identity() *Identity { return s.identity }

// Registry tracks live subscriber connections. It is the only structure in
// the core mutated from two triggers (connection handling and the periodic
// liveness sweep), so all map access is lock-protected. Construct one
// instance at process start and inject it; there is no package-level global.
type Registry struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscriber
	nextID uint64

	sweepInterval time.Duration
	sendTimeout   time.Duration

	log     zerolog.Logger
	metrics *telemetry.Metrics

	stopOnce sync.Once
	done     chan struct{}
	stopped  chan struct{}
}

// RegistryConfig configures a Registry. Zero values fall back to defaults.
type RegistryConfig struct {
	SweepInterval time.Duration
	SendTimeout   time.Duration
	Logger        zerolog.Logger
}

// NewRegistry creates a stopped registry. Call Start to begin the liveness
// sweep and Stop on shutdown.
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}

	return &Registry{
		subs:          make(map[uint64]*Subscriber),
		sweepInterval: cfg.SweepInterval,
		sendTimeout:   cfg.SendTimeout,
		log:           cfg.Logger,
		metrics:       telemetry.GetMetrics(),
		done:          make(chan struct{}),
		stopped:       make(chan struct{}),
	}
}

// Start launches the periodic liveness sweep.
func (r *Registry) Start() {
	go r.sweepLoop()
}

// Stop halts the sweep and closes every remaining connection.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		<-r.stopped

		r.mu.Lock()
		subs := make([]*Subscriber, 0, len(r.subs))
		for _, sub := range r.subs {
			subs = append(subs, sub)
		}
		r.subs = make(map[uint64]*Subscriber)
		r.mu.Unlock()

		for _, sub := range subs {
			_ = sub.conn.Close("server shutting down")
			r.metrics.ActiveConnections.Add(context.Background(), -1)
		}
	})
}

// Register adds a live connection. A nil identity is permitted but the
// connection receives no targeted broadcasts.
func (r *Registry) Register(conn Conn, identity *Identity) *Subscriber {
	r.mu.Lock()
	r.nextID++
	sub := &Subscriber{id: r.nextID, conn: conn, identity: identity}
	sub.acked.Store(true)
	r.subs[sub.id] = sub
	r.mu.Unlock()

	r.metrics.RegistrationsTotal.Add(context.Background(), 1)
	r.metrics.ActiveConnections.Add(context.Background(), 1)

	evt := r.log.Debug().Uint64("subscriber_id", sub.id)
	if identity != nil {
		evt = evt.Str("role", string(identity.Role)).
			Str("principal_id", identity.PrincipalID.String())
	}
	evt.Msg("subscriber registered")

	return sub
}

// Unregister synchronously removes a connection so the next publish does not
// attempt delivery to a dead handle. Safe to call more than once.
func (r *Registry) Unregister(sub *Subscriber) {
	if sub == nil {
		return
	}

	r.mu.Lock()
	_, present := r.subs[sub.id]
	delete(r.subs, sub.id)
	r.mu.Unlock()

	if present {
		r.metrics.ActiveConnections.Add(context.Background(), -1)
		r.log.Debug().Uint64("subscriber_id", sub.id).Msg("subscriber unregistered")
	}
}

// Size returns the number of live subscribers.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// snapshot returns the current subscriber set without holding the lock during
// delivery or pings.
func (r *Registry) snapshot() []*Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := make([]*Subscriber, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	return subs
}

func (r *Registry) sweepLoop() {
	defer close(r.stopped)

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.done:
			return
		}
	}
}

// sweep removes every connection that failed to acknowledge the previous
// ping, then pings the survivors. A connection that never acks is therefore
// removed within two sweep intervals.
func (r *Registry) sweep() {
	for _, sub := range r.snapshot() {
		if !sub.acked.Load() {
			r.log.Info().Uint64("subscriber_id", sub.id).Msg("liveness sweep removing unresponsive subscriber")
			r.Unregister(sub)
			_ = sub.conn.Close("liveness check failed")
			r.metrics.SweepRemovalsTotal.Add(context.Background(), 1)
			continue
		}

		sub.acked.Store(false)
		go func(sub *Subscriber) {
			ctx, cancel := context.WithTimeout(context.Background(), r.sendTimeout)
			defer cancel()
			if err := sub.conn.Ping(ctx); err == nil {
				sub.acked.Store(true)
			}
		}(sub)
	}
}
